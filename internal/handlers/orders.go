package handlers

import (
	"fmt"
	"net/http"

	"shop_back_end/internal/apperr"
	"shop_back_end/internal/invoice"
	"shop_back_end/internal/middleware"
	"shop_back_end/internal/models"
	"shop_back_end/internal/query"
	"shop_back_end/internal/services"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	orders Orders
}

func NewOrderHandler(orders Orders) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// le panier envoie "id", les anciens clients "productId"
type orderItemRequest struct {
	ProductID string `json:"productId"`
	ID        string `json:"id"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

func (r orderItemRequest) productID() string {
	if r.ProductID != "" {
		return r.ProductID
	}
	return r.ID
}

type orderRequest struct {
	Items         []orderItemRequest  `json:"items" binding:"required,min=1,dive"`
	Customer      models.CustomerInfo `json:"customerInfo"`
	PaymentMethod string              `json:"paymentMethod"`
}

type statusRequest struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status" binding:"required"`
}

// 🛒 Passage de commande, invité ou connecté
func (h *OrderHandler) Create(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("Invalid items").WithDetails(err.Error()))
		return
	}
	in := services.OrderInput{Customer: req.Customer, PaymentMethod: req.PaymentMethod}
	for _, item := range req.Items {
		id, err := parseUUID(item.productID(), "product")
		if err != nil {
			respondError(c, err)
			return
		}
		in.Items = append(in.Items, services.OrderItemInput{ProductID: id, Quantity: item.Quantity})
	}

	placed, err := h.orders.Create(c.Request.Context(), middleware.CurrentPrincipal(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, placed)
}

// 📋 Commandes de l'utilisateur connecté
func (h *OrderHandler) ListMine(c *gin.Context) {
	page, limit := query.ParsePage(c.Request.URL.Query(), query.DefaultListLimit)
	list, err := h.orders.ListForUser(c.Request.Context(), middleware.CurrentPrincipal(c).UserID, c.Query("status"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// ListForUser : commandes d'un utilisateur donné (admin)
func (h *OrderHandler) ListForUser(c *gin.Context) {
	userID, ok := idParam(c, "user")
	if !ok {
		return
	}
	page, limit := query.ParsePage(c.Request.URL.Query(), query.DefaultListLimit)
	list, err := h.orders.ListForUser(c.Request.Context(), userID, c.Query("status"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "order")
	if !ok {
		return
	}
	o, err := h.orders.Get(c.Request.Context(), id, middleware.CurrentPrincipal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// 🧾 Facture PDF
func (h *OrderHandler) Invoice(c *gin.Context) {
	id, ok := idParam(c, "order")
	if !ok {
		return
	}
	o, pdf, err := h.orders.Invoice(c.Request.Context(), id, middleware.CurrentPrincipal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pdf"`, invoice.Reference(*o)))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func (h *OrderHandler) AdminList(c *gin.Context) {
	values := c.Request.URL.Query()
	page, limit := query.ParsePage(values, query.DefaultListLimit)
	list, err := h.orders.AdminList(c.Request.Context(), services.OrderFilter{
		Status: values.Get("status"),
		Search: values.Get("search"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// UpdateStatus (admin) : /admin/orders/:id ou /orders avec {orderId, status}
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("Order ID and status are required"))
		return
	}
	raw := c.Param("id")
	if raw == "" {
		raw = req.OrderID
	}
	if raw == "" {
		respondError(c, apperr.Validation("Order ID and status are required"))
		return
	}
	id, err := parseUUID(raw, "order")
	if err != nil {
		respondError(c, err)
		return
	}
	o, err := h.orders.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}
