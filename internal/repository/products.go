package repository

import (
	"context"
	"fmt"
	"time"

	"shop_back_end/internal/models"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"gopkg.in/inf.v0"
)

const productColumns = `product_id, name, description, price, stock, category, season, image_url,
	average_rating, review_count, version, created_at, updated_at`

type productRow struct {
	id            gocql.UUID
	name          string
	description   string
	price         inf.Dec
	stock         int
	category      string
	season        string
	imageURL      string
	averageRating float64
	reviewCount   int
	version       int
	createdAt     time.Time
	updatedAt     time.Time
}

func (r *productRow) dest() []interface{} {
	return []interface{}{&r.id, &r.name, &r.description, &r.price, &r.stock, &r.category, &r.season,
		&r.imageURL, &r.averageRating, &r.reviewCount, &r.version, &r.createdAt, &r.updatedAt}
}

func (r *productRow) model() models.Product {
	return models.Product{
		ID:            uuid.UUID(r.id),
		Name:          r.name,
		Description:   r.description,
		Price:         fromCQLDecimal(&r.price),
		Stock:         r.stock,
		Category:      models.Category(r.category),
		Season:        models.Season(r.season),
		ImageURL:      r.imageURL,
		AverageRating: r.averageRating,
		ReviewCount:   r.reviewCount,
		Version:       r.version,
		CreatedAt:     r.createdAt,
		UpdatedAt:     r.updatedAt,
	}
}

type ProductRepository struct {
	session SessionFunc
}

func NewProductRepository(session SessionFunc) *ProductRepository {
	return &ProductRepository{session: session}
}

func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	session, err := r.session()
	if err != nil {
		return err
	}
	p.Version = 1
	return session.Query(`INSERT INTO products (`+productColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cqlUUID(p.ID), p.Name, p.Description, toCQLDecimal(p.Price), p.Stock, string(p.Category), string(p.Season),
		p.ImageURL, p.AverageRating, p.ReviewCount, p.Version, p.CreatedAt, p.UpdatedAt,
	).WithContext(ctx).Exec()
}

func (r *ProductRepository) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	var row productRow
	err = session.Query(`SELECT `+productColumns+` FROM products WHERE product_id = ?`, cqlUUID(id)).
		WithContext(ctx).Scan(row.dest()...)
	if err != nil {
		return nil, notFound(err)
	}
	p := row.model()
	return &p, nil
}

// GetMany conserve l'ordre des identifiants demandés ; les absents sont ignorés
func (r *ProductRepository) GetMany(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	iter := session.Query(`SELECT `+productColumns+` FROM products WHERE product_id IN ?`, cqlUUIDs(ids)).
		WithContext(ctx).Iter()

	byID := make(map[uuid.UUID]models.Product, len(ids))
	var row productRow
	for iter.Scan(row.dest()...) {
		p := row.model()
		byID[p.ID] = p
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	out := make([]models.Product, 0, len(byID))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *ProductRepository) All(ctx context.Context) ([]models.Product, error) {
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	iter := session.Query(`SELECT ` + productColumns + ` FROM products`).WithContext(ctx).Iter()

	var out []models.Product
	var row productRow
	for iter.Scan(row.dest()...) {
		out = append(out, row.model())
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update applique mutate puis écrit sous condition de version (LWT) ; relit et réessaie en cas de conflit
func (r *ProductRepository) Update(ctx context.Context, id uuid.UUID, mutate func(*models.Product) error) (*models.Product, error) {
	session, err := r.session()
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxCASRetries; attempt++ {
		p, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		expected := p.Version
		if err := mutate(p); err != nil {
			return nil, err
		}
		p.ID = id
		p.Version = expected + 1
		p.UpdatedAt = time.Now().UTC()

		applied, err := session.Query(`UPDATE products SET name = ?, description = ?, price = ?, stock = ?,
			category = ?, season = ?, image_url = ?, average_rating = ?, review_count = ?, version = ?, updated_at = ?
			WHERE product_id = ? IF version = ?`,
			p.Name, p.Description, toCQLDecimal(p.Price), p.Stock, string(p.Category), string(p.Season),
			p.ImageURL, p.AverageRating, p.ReviewCount, p.Version, p.UpdatedAt, cqlUUID(id), expected,
		).WithContext(ctx).MapScanCAS(map[string]interface{}{})
		if err != nil {
			return nil, err
		}
		if applied {
			return p, nil
		}
	}
	return nil, fmt.Errorf("product %s: %w", id, ErrConflict)
}

func (r *ProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	session, err := r.session()
	if err != nil {
		return err
	}
	applied, err := session.Query(`DELETE FROM products WHERE product_id = ? IF EXISTS`, cqlUUID(id)).
		WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return err
	}
	if !applied {
		return ErrNotFound
	}
	return nil
}

func (r *ProductRepository) Count(ctx context.Context) (int, error) {
	session, err := r.session()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := session.Query(`SELECT COUNT(*) FROM products`).WithContext(ctx).Scan(&n); err != nil {
		return 0, err
	}
	return int(n), nil
}
