// Package services porte la logique métier du magasin. Chaque service reçoit
// ses stores et intégrations par constructeur.
package services

import (
	"context"
	"errors"
	"log"

	"shop_back_end/internal/apperr"
	"shop_back_end/internal/cache"
	"shop_back_end/internal/events"
	"shop_back_end/internal/models"
	"shop_back_end/internal/payment"
	"shop_back_end/internal/query"
	"shop_back_end/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProductStore interface {
	Create(ctx context.Context, p *models.Product) error
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetMany(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	All(ctx context.Context) ([]models.Product, error)
	Update(ctx context.Context, id uuid.UUID, mutate func(*models.Product) error) (*models.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int, error)
}

type OrderStore interface {
	Create(ctx context.Context, o *models.Order) error
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	All(ctx context.Context) ([]models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	Update(ctx context.Context, id uuid.UUID, mutate func(*models.Order) error) (*models.Order, error)
	Count(ctx context.Context) (int, error)
}

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	All(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, id uuid.UUID, mutate func(*models.User) error) (*models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int, error)
}

type ReviewStore interface {
	Create(ctx context.Context, rv *models.Review) error
	GetByProductUser(ctx context.Context, productID, userID uuid.UUID) (*models.Review, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.Review, error)
	All(ctx context.Context) ([]models.Review, error)
	Update(ctx context.Context, rv *models.Review) error
	Delete(ctx context.Context, rv *models.Review) error
	DeleteByProduct(ctx context.Context, productID uuid.UUID) error
}

// ProductIndex est l'index de recherche (Elasticsearch)
type ProductIndex interface {
	Index(ctx context.Context, p models.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, q query.ProductQuery) ([]uuid.UUID, int, error)
}

type ProductCache interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.ProductDetail, bool)
	SetProduct(ctx context.Context, p *models.ProductDetail)
	GetList(ctx context.Context, key string) (*cache.ProductList, bool)
	SetList(ctx context.Context, key string, l *cache.ProductList)
	InvalidateProduct(ctx context.Context, id uuid.UUID)
	InvalidateLists(ctx context.Context)
}

type PaymentGateway interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal, metadata map[string]string) (*payment.Intent, error)
	CancelIntent(ctx context.Context, id string) error
}

// OrderNotifier envoie les emails de commande en arrière-plan
type OrderNotifier interface {
	OrderPlaced(order models.Order)
	StatusChanged(order models.Order)
}

type EventPublisher interface {
	Publish(ctx context.Context, e events.Event)
}

type InvoiceRenderer interface {
	PDF(ctx context.Context, order models.Order) ([]byte, error)
}

// SessionRevoker coupe les sessions des comptes désactivés
type SessionRevoker interface {
	DisableUser(ctx context.Context, userID string) error
	EnableUser(ctx context.Context, userID string) error
}

// StockAdjuster est implémenté par CatalogService
type StockAdjuster interface {
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*models.Product, error)
}

// storeErr traduit les erreurs des repositories en erreurs métier
func storeErr(err error, op, notFoundMsg string) error {
	var appErr *apperr.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("%s", notFoundMsg)
	case errors.Is(err, repository.ErrConflict):
		return apperr.Conflict("Resource was modified concurrently, please retry").Wrap(err)
	default:
		log.Printf("❌ %s: %v", op, err)
		return apperr.Internal(err, op)
	}
}

// page retourne la tranche demandée et la pagination correspondante
func page[T any](items []T, pageNum, limit int) ([]T, models.Pagination) {
	start, end := models.Window(len(items), pageNum, limit)
	return items[start:end], models.NewPagination(pageNum, limit, len(items))
}

func isDuplicate(err error) bool {
	return errors.Is(err, repository.ErrDuplicate)
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
