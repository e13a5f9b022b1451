package repository

import (
	"context"
	"time"

	"shop_back_end/internal/models"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
)

const userColumns = `user_id, name, email, password_hash, role, status, provider, created_at, updated_at`

type userRow struct {
	id        gocql.UUID
	name      string
	email     string
	password  string
	role      string
	status    string
	provider  string
	createdAt time.Time
	updatedAt time.Time
}

func (r *userRow) dest() []interface{} {
	return []interface{}{&r.id, &r.name, &r.email, &r.password, &r.role, &r.status, &r.provider, &r.createdAt, &r.updatedAt}
}

func (r *userRow) model() models.User {
	return models.User{
		ID:        uuid.UUID(r.id),
		Name:      r.name,
		Email:     r.email,
		Password:  r.password,
		Role:      models.Role(r.role),
		Status:    models.UserStatus(r.status),
		Provider:  r.provider,
		CreatedAt: r.createdAt,
		UpdatedAt: r.updatedAt,
	}
}

type UserRepository struct {
	session SessionFunc
}

func NewUserRepository(session SessionFunc) *UserRepository {
	return &UserRepository{session: session}
}

// claimEmail réserve l'adresse dans users_by_email (IF NOT EXISTS)
func claimEmail(ctx context.Context, session *gocql.Session, email string, id uuid.UUID) error {
	applied, err := session.Query(`INSERT INTO users_by_email (email, user_id) VALUES (?, ?) IF NOT EXISTS`,
		email, cqlUUID(id)).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return err
	}
	if !applied {
		return ErrDuplicate
	}
	return nil
}

func (r *UserRepository) write(ctx context.Context, session *gocql.Session, u *models.User) error {
	return session.Query(`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cqlUUID(u.ID), u.Name, u.Email, u.Password, string(u.Role), string(u.Status), u.Provider, u.CreatedAt, u.UpdatedAt,
	).WithContext(ctx).Exec()
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	session, err := r.session()
	if err != nil {
		return err
	}
	if err := claimEmail(ctx, session, u.Email, u.ID); err != nil {
		return err
	}
	if err := r.write(ctx, session, u); err != nil {
		// libère l'adresse réservée
		_ = session.Query(`DELETE FROM users_by_email WHERE email = ?`, u.Email).WithContext(ctx).Exec()
		return err
	}
	return nil
}

func (r *UserRepository) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	var row userRow
	if err := session.Query(`SELECT `+userColumns+` FROM users WHERE user_id = ?`, cqlUUID(id)).
		WithContext(ctx).Scan(row.dest()...); err != nil {
		return nil, notFound(err)
	}
	u := row.model()
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	var id gocql.UUID
	if err := session.Query(`SELECT user_id FROM users_by_email WHERE email = ?`, email).
		WithContext(ctx).Scan(&id); err != nil {
		return nil, notFound(err)
	}
	return r.Get(ctx, uuid.UUID(id))
}

func (r *UserRepository) All(ctx context.Context) ([]models.User, error) {
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	iter := session.Query(`SELECT ` + userColumns + ` FROM users`).WithContext(ctx).Iter()

	var out []models.User
	var row userRow
	for iter.Scan(row.dest()...) {
		out = append(out, row.model())
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update maintient users_by_email quand l'adresse change
func (r *UserRepository) Update(ctx context.Context, id uuid.UUID, mutate func(*models.User) error) (*models.User, error) {
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	u, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	previousEmail := u.Email
	if err := mutate(u); err != nil {
		return nil, err
	}
	u.ID = id
	u.UpdatedAt = time.Now().UTC()

	if u.Email != previousEmail {
		if err := claimEmail(ctx, session, u.Email, id); err != nil {
			return nil, err
		}
	}
	if err := r.write(ctx, session, u); err != nil {
		return nil, err
	}
	if u.Email != previousEmail {
		if err := session.Query(`DELETE FROM users_by_email WHERE email = ?`, previousEmail).
			WithContext(ctx).Exec(); err != nil {
			return nil, err
		}
	}
	return u, nil
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	session, err := r.session()
	if err != nil {
		return err
	}
	u, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	batch := session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(`DELETE FROM users WHERE user_id = ?`, cqlUUID(id))
	batch.Query(`DELETE FROM users_by_email WHERE email = ?`, u.Email)
	return session.ExecuteBatch(batch)
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	session, err := r.session()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := session.Query(`SELECT COUNT(*) FROM users`).WithContext(ctx).Scan(&n); err != nil {
		return 0, err
	}
	return int(n), nil
}
