package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shop_back_end/internal/apperr"
	"shop_back_end/internal/auth"
	"shop_back_end/internal/middleware"
	"shop_back_end/internal/models"
	"shop_back_end/internal/query"
	"shop_back_end/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Les stubs embarquent l'interface : une méthode non surchargée panique.

type stubCatalog struct {
	Catalog
	deleted uuid.UUID
	page    *services.ProductPage
	getErr  error
}

func (s *stubCatalog) Search(ctx context.Context, q query.ProductQuery) (*services.ProductPage, error) {
	return s.page, nil
}

func (s *stubCatalog) Get(ctx context.Context, id uuid.UUID) (*models.ProductDetail, error) {
	return nil, s.getErr
}

func (s *stubCatalog) Delete(ctx context.Context, id uuid.UUID) error {
	s.deleted = id
	return nil
}

type stubOrders struct {
	Orders
	input   services.OrderInput
	guest   bool
	status  string
	updated uuid.UUID
	order   *models.Order
}

func (s *stubOrders) Create(ctx context.Context, p *auth.Principal, in services.OrderInput) (*services.PlacedOrder, error) {
	s.input, s.guest = in, p == nil
	return &services.PlacedOrder{Order: &models.Order{ID: uuid.New(), Status: models.OrderPending}}, nil
}

func (s *stubOrders) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Order, error) {
	s.updated, s.status = id, status
	return &models.Order{ID: id, Status: models.OrderStatus(status)}, nil
}

func (s *stubOrders) Invoice(ctx context.Context, id uuid.UUID, p *auth.Principal) (*models.Order, []byte, error) {
	if p == nil {
		return nil, nil, apperr.Unauthorized("Authentication required")
	}
	return s.order, []byte("%PDF-1.4"), nil
}

type stubReviews struct {
	Reviews
	ids []uuid.UUID
}

func (s *stubReviews) BulkModerate(ctx context.Context, ids []uuid.UUID, status, comment string, admin *auth.Principal) (int, error) {
	s.ids = ids
	return len(ids), nil
}

type stubUsers struct {
	Users
}

func (s *stubUsers) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	return &models.User{ID: uuid.New(), Name: name, Email: email, Role: models.RoleUser}, nil
}

type stubIssuer struct{}

func (stubIssuer) Issue(u models.User) (string, error) { return "signed." + u.Email, nil }

type stubRevoker struct {
	tokenID string
	ttl     time.Duration
}

func (s *stubRevoker) BlacklistToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	s.tokenID, s.ttl = tokenID, ttl
	return nil
}

func as(p *auth.Principal) gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.SetPrincipal(c, p)
		c.Next()
	}
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestProductGetRejectsMalformedID(t *testing.T) {
	r := gin.New()
	r.GET("/products/:id", NewProductHandler(&stubCatalog{}).Get)

	w := do(r, http.MethodGet, "/products/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid product id", decode(t, w)["error"])
}

func TestProductGetNotFound(t *testing.T) {
	r := gin.New()
	r.GET("/products/:id", NewProductHandler(&stubCatalog{getErr: apperr.NotFound("Product not found")}).Get)

	w := do(r, http.MethodGet, "/products/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Product not found", decode(t, w)["error"])
}

func TestProductDeleteAcceptsQueryID(t *testing.T) {
	catalog := &stubCatalog{}
	r := gin.New()
	r.DELETE("/products", NewProductHandler(catalog).Delete)

	id := uuid.New()
	w := do(r, http.MethodDelete, "/products?id="+id.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, catalog.deleted)

	w = do(r, http.MethodDelete, "/products", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchReportsBackend(t *testing.T) {
	catalog := &stubCatalog{page: &services.ProductPage{
		Products:   []models.Product{},
		Pagination: models.NewPagination(1, 12, 0),
		Backend:    services.BackendStore,
	}}
	r := gin.New()
	r.GET("/products/search", NewProductHandler(catalog).Search)

	w := do(r, http.MethodGet, "/products/search?q=coat", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, services.BackendStore, w.Header().Get("X-Search-Backend"))
	assert.NotContains(t, decode(t, w), "Backend")
}

func TestGuestOrderCreate(t *testing.T) {
	orders := &stubOrders{}
	r := gin.New()
	r.POST("/orders", NewOrderHandler(orders).Create)

	pid := uuid.New()
	w := do(r, http.MethodPost, "/orders", gin.H{
		"items":        []gin.H{{"productId": pid.String(), "quantity": 2}},
		"customerInfo": gin.H{"name": "Amel", "phone": "0550000000", "address": "Alger"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, orders.guest)
	require.Len(t, orders.input.Items, 1)
	assert.Equal(t, pid, orders.input.Items[0].ProductID)
	assert.Equal(t, 2, orders.input.Items[0].Quantity)
	assert.Equal(t, "Amel", orders.input.Customer.Name)
	assert.Contains(t, decode(t, w), "order")
}

func TestOrderCreateValidation(t *testing.T) {
	r := gin.New()
	r.POST("/orders", NewOrderHandler(&stubOrders{}).Create)

	w := do(r, http.MethodPost, "/orders", gin.H{"items": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/orders", gin.H{"items": []gin.H{{"productId": "nope", "quantity": 1}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid product id", decode(t, w)["error"])
}

func TestOrderCreateAcceptsCartItemID(t *testing.T) {
	orders := &stubOrders{}
	r := gin.New()
	r.POST("/orders", NewOrderHandler(orders).Create)

	pid, other := uuid.New(), uuid.New()
	w := do(r, http.MethodPost, "/orders", gin.H{
		"items": []gin.H{
			{"id": pid.String(), "quantity": 1},
			{"productId": other.String(), "id": uuid.NewString(), "quantity": 3},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, orders.input.Items, 2)
	assert.Equal(t, pid, orders.input.Items[0].ProductID)
	assert.Equal(t, other, orders.input.Items[1].ProductID)

	w = do(r, http.MethodPost, "/orders", gin.H{"items": []gin.H{{"quantity": 1}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid product id", decode(t, w)["error"])
}

func TestUpdateStatusFromBodyOrPath(t *testing.T) {
	orders := &stubOrders{}
	h := NewOrderHandler(orders)
	r := gin.New()
	r.PUT("/orders", h.UpdateStatus)
	r.PUT("/admin/orders/:id", h.UpdateStatus)

	id := uuid.New()
	w := do(r, http.MethodPut, "/orders", gin.H{"orderId": id.String(), "status": "shipped"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, orders.updated)
	assert.Equal(t, "shipped", orders.status)

	other := uuid.New()
	w = do(r, http.MethodPut, "/admin/orders/"+other.String(), gin.H{"status": "delivered"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, other, orders.updated)

	w = do(r, http.MethodPut, "/orders", gin.H{"status": "shipped"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvoiceDownload(t *testing.T) {
	id := uuid.MustParse("1a2b3c4d-0000-4000-8000-000000000000")
	orders := &stubOrders{order: &models.Order{ID: id}}
	r := gin.New()
	r.GET("/orders/:id/invoice", as(&auth.Principal{UserID: uuid.New(), Role: models.RoleUser}), NewOrderHandler(orders).Invoice)

	w := do(r, http.MethodGet, "/orders/"+id.String()+"/invoice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="INV-1a2b3c4d.pdf"`, w.Header().Get("Content-Disposition"))
}

func TestBulkModerateMessage(t *testing.T) {
	reviews := &stubReviews{}
	r := gin.New()
	r.PUT("/admin/reviews/bulk", as(&auth.Principal{UserID: uuid.New(), Role: models.RoleAdmin}), NewReviewHandler(reviews).BulkModerate)

	w := do(r, http.MethodPut, "/admin/reviews/bulk", gin.H{
		"ids":    []string{uuid.NewString(), uuid.NewString()},
		"status": "REJECTED",
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Successfully updated 2 reviews", body["message"])
	assert.EqualValues(t, 2, body["updated"])
	assert.Len(t, reviews.ids, 2)
}

func TestRegisterIssuesToken(t *testing.T) {
	r := gin.New()
	r.POST("/auth/register", NewAuthHandler(&stubUsers{}, stubIssuer{}, nil, time.Hour).Register)

	w := do(r, http.MethodPost, "/auth/register", gin.H{"name": "Yanis", "email": "yanis@example.com", "password": "secret12"})
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, "signed.yanis@example.com", body["token"])

	w = do(r, http.MethodPost, "/auth/register", gin.H{"name": "Y", "email": "bad", "password": "1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	revoker := &stubRevoker{}
	r := gin.New()
	r.POST("/auth/logout", as(&auth.Principal{UserID: uuid.New(), TokenID: "jti-1"}), NewAuthHandler(&stubUsers{}, stubIssuer{}, revoker, time.Hour).Logout)

	w := do(r, http.MethodPost, "/auth/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jti-1", revoker.tokenID)
	assert.Equal(t, time.Hour, revoker.ttl)
}

func TestUploadWithoutStorage(t *testing.T) {
	r := gin.New()
	r.POST("/upload", NewUploadHandler(nil).Upload)

	w := do(r, http.MethodPost, "/upload", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUserDeleteRequiresID(t *testing.T) {
	r := gin.New()
	r.DELETE("/admin/users", NewUserHandler(&stubUsers{}).Delete)

	w := do(r, http.MethodDelete, "/admin/users", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "User ID is required", decode(t, w)["error"])
}
