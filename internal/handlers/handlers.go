// Package handlers expose les services du magasin en HTTP (gin).
package handlers

import (
	"context"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"shop_back_end/internal/apperr"
	"shop_back_end/internal/auth"
	"shop_back_end/internal/models"
	"shop_back_end/internal/query"
	"shop_back_end/internal/services"
	"shop_back_end/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Catalog interface {
	List(ctx context.Context, q query.ProductQuery) (*services.ProductPage, error)
	Search(ctx context.Context, q query.ProductQuery) (*services.ProductPage, error)
	Get(ctx context.Context, id uuid.UUID) (*models.ProductDetail, error)
	Create(ctx context.Context, in services.ProductInput) (*models.Product, error)
	Update(ctx context.Context, id uuid.UUID, patch services.ProductPatch) (*models.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type Reviews interface {
	ListForProduct(ctx context.Context, productID uuid.UUID) ([]models.Review, error)
	Create(ctx context.Context, user *auth.Principal, productID uuid.UUID, in services.ReviewInput) (*models.Review, error)
	UpdateOwn(ctx context.Context, user *auth.Principal, productID uuid.UUID, in services.ReviewInput) (*models.Review, error)
	DeleteOwn(ctx context.Context, user *auth.Principal, productID uuid.UUID) error
	AdminList(ctx context.Context, f services.ReviewFilter) (*services.AdminReviewList, error)
	Moderate(ctx context.Context, id uuid.UUID, status, comment string, admin *auth.Principal) (*models.Review, error)
	BulkModerate(ctx context.Context, ids []uuid.UUID, status, comment string, admin *auth.Principal) (int, error)
}

type Orders interface {
	Create(ctx context.Context, principal *auth.Principal, in services.OrderInput) (*services.PlacedOrder, error)
	ListForUser(ctx context.Context, userID uuid.UUID, status string, page, limit int) (*services.OrderList, error)
	Get(ctx context.Context, id uuid.UUID, principal *auth.Principal) (*models.Order, error)
	AdminList(ctx context.Context, f services.OrderFilter) (*services.AdminOrderList, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Order, error)
	Invoice(ctx context.Context, id uuid.UUID, principal *auth.Principal) (*models.Order, []byte, error)
}

type Users interface {
	Register(ctx context.Context, name, email, password string) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	FindOrCreateOAuth(ctx context.Context, email, name, provider string) (*models.User, error)
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, f services.UserFilter) (*services.UserList, error)
	Create(ctx context.Context, in services.UserInput) (*models.User, error)
	Update(ctx context.Context, id uuid.UUID, patch services.UserPatch) (*models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type Analytics interface {
	Summary(ctx context.Context) (*services.Summary, error)
}

type Images interface {
	Upload(ctx context.Context, fh *multipart.FileHeader) (*storage.UploadedImage, error)
	Delete(ctx context.Context, publicID string) error
	PresignedURL(ctx context.Context, publicID string, ttl time.Duration) (string, error)
}

type TokenIssuer interface {
	Issue(user models.User) (string, error)
}

// TokenRevoker révoque un token au logout
type TokenRevoker interface {
	BlacklistToken(ctx context.Context, tokenID string, ttl time.Duration) error
}

// respondError traduit une erreur métier en réponse JSON {"error": ...}
func respondError(c *gin.Context, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		log.Printf("❌ %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	body := gin.H{"error": apperr.Message(err)}
	if details := apperr.Details(err); details != nil {
		body["details"] = details
	}
	c.AbortWithStatusJSON(status, body)
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, apperr.Validation("Invalid request body").WithDetails(err.Error()))
		return false
	}
	return true
}

func parseUUID(raw, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, apperr.Validation("Invalid %s id", what)
	}
	return id, nil
}

// idParam lit l'identifiant du chemin ; répond 400 s'il est invalide
func idParam(c *gin.Context, what string) (uuid.UUID, bool) {
	id, err := parseUUID(c.Param("id"), what)
	if err != nil {
		respondError(c, err)
		return uuid.Nil, false
	}
	return id, true
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
}
