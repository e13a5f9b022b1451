package repository

import (
	"context"
	"time"

	"shop_back_end/internal/models"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
)

const reviewColumns = `product_id, user_id, review_id, user_name, rating, comment, status,
	moderation_comment, moderated_at, moderated_by, created_at, updated_at`

type reviewRow struct {
	productID         gocql.UUID
	userID            gocql.UUID
	id                gocql.UUID
	userName          string
	rating            int
	comment           string
	status            string
	moderationComment string
	moderatedAt       time.Time
	moderatedBy       gocql.UUID
	createdAt         time.Time
	updatedAt         time.Time
}

func (r *reviewRow) dest() []interface{} {
	return []interface{}{&r.productID, &r.userID, &r.id, &r.userName, &r.rating, &r.comment, &r.status,
		&r.moderationComment, &r.moderatedAt, &r.moderatedBy, &r.createdAt, &r.updatedAt}
}

func (r *reviewRow) model() models.Review {
	return models.Review{
		ID:                uuid.UUID(r.id),
		ProductID:         uuid.UUID(r.productID),
		UserID:            uuid.UUID(r.userID),
		UserName:          r.userName,
		Rating:            r.rating,
		Comment:           r.comment,
		Status:            models.ReviewStatus(r.status),
		ModerationComment: r.moderationComment,
		ModeratedAt:       timeOrNil(r.moderatedAt),
		ModeratedBy:       uuidOrNil(r.moderatedBy),
		CreatedAt:         r.createdAt,
		UpdatedAt:         r.updatedAt,
	}
}

// ReviewRepository : un avis par couple (produit, utilisateur), garanti par la clé primaire
type ReviewRepository struct {
	session SessionFunc
}

func NewReviewRepository(session SessionFunc) *ReviewRepository {
	return &ReviewRepository{session: session}
}

func (r *ReviewRepository) Create(ctx context.Context, rv *models.Review) error {
	session, err := r.session()
	if err != nil {
		return err
	}
	applied, err := session.Query(`INSERT INTO reviews_by_product (`+reviewColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) IF NOT EXISTS`,
		cqlUUID(rv.ProductID), cqlUUID(rv.UserID), cqlUUID(rv.ID), rv.UserName, rv.Rating, rv.Comment,
		string(rv.Status), rv.ModerationComment, optionalTime(rv.ModeratedAt), optionalUUID(rv.ModeratedBy),
		rv.CreatedAt, rv.UpdatedAt,
	).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return err
	}
	if !applied {
		return ErrDuplicate
	}
	return session.Query(`INSERT INTO reviews_by_id (review_id, product_id, user_id) VALUES (?, ?, ?)`,
		cqlUUID(rv.ID), cqlUUID(rv.ProductID), cqlUUID(rv.UserID)).WithContext(ctx).Exec()
}

func (r *ReviewRepository) GetByProductUser(ctx context.Context, productID, userID uuid.UUID) (*models.Review, error) {
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	var row reviewRow
	if err := session.Query(`SELECT `+reviewColumns+` FROM reviews_by_product WHERE product_id = ? AND user_id = ?`,
		cqlUUID(productID), cqlUUID(userID)).WithContext(ctx).Scan(row.dest()...); err != nil {
		return nil, notFound(err)
	}
	rv := row.model()
	return &rv, nil
}

func (r *ReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	var productID, userID gocql.UUID
	if err := session.Query(`SELECT product_id, user_id FROM reviews_by_id WHERE review_id = ?`, cqlUUID(id)).
		WithContext(ctx).Scan(&productID, &userID); err != nil {
		return nil, notFound(err)
	}
	return r.GetByProductUser(ctx, uuid.UUID(productID), uuid.UUID(userID))
}

func (r *ReviewRepository) scan(iter *gocql.Iter) ([]models.Review, error) {
	var out []models.Review
	var row reviewRow
	for iter.Scan(row.dest()...) {
		out = append(out, row.model())
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ReviewRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.Review, error) {
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	return r.scan(session.Query(`SELECT `+reviewColumns+` FROM reviews_by_product WHERE product_id = ?`,
		cqlUUID(productID)).WithContext(ctx).Iter())
}

func (r *ReviewRepository) All(ctx context.Context) ([]models.Review, error) {
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	return r.scan(session.Query(`SELECT ` + reviewColumns + ` FROM reviews_by_product`).WithContext(ctx).Iter())
}

// Update réécrit les champs modifiables d'un avis existant
func (r *ReviewRepository) Update(ctx context.Context, rv *models.Review) error {
	session, err := r.session()
	if err != nil {
		return err
	}
	applied, err := session.Query(`UPDATE reviews_by_product SET rating = ?, comment = ?, status = ?,
		moderation_comment = ?, moderated_at = ?, moderated_by = ?, updated_at = ?
		WHERE product_id = ? AND user_id = ? IF EXISTS`,
		rv.Rating, rv.Comment, string(rv.Status), rv.ModerationComment, optionalTime(rv.ModeratedAt),
		optionalUUID(rv.ModeratedBy), rv.UpdatedAt, cqlUUID(rv.ProductID), cqlUUID(rv.UserID),
	).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return err
	}
	if !applied {
		return ErrNotFound
	}
	return nil
}

func (r *ReviewRepository) Delete(ctx context.Context, rv *models.Review) error {
	session, err := r.session()
	if err != nil {
		return err
	}
	batch := session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(`DELETE FROM reviews_by_product WHERE product_id = ? AND user_id = ?`,
		cqlUUID(rv.ProductID), cqlUUID(rv.UserID))
	batch.Query(`DELETE FROM reviews_by_id WHERE review_id = ?`, cqlUUID(rv.ID))
	return session.ExecuteBatch(batch)
}

// DeleteByProduct supprime tous les avis d'un produit supprimé
func (r *ReviewRepository) DeleteByProduct(ctx context.Context, productID uuid.UUID) error {
	reviews, err := r.ListByProduct(ctx, productID)
	if err != nil {
		return err
	}
	session, err := r.session()
	if err != nil {
		return err
	}
	batch := session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	for _, rv := range reviews {
		batch.Query(`DELETE FROM reviews_by_id WHERE review_id = ?`, cqlUUID(rv.ID))
	}
	batch.Query(`DELETE FROM reviews_by_product WHERE product_id = ?`, cqlUUID(productID))
	return session.ExecuteBatch(batch)
}
