package handlers

import (
	"fmt"
	"net/http"

	"shop_back_end/internal/apperr"
	"shop_back_end/internal/middleware"
	"shop_back_end/internal/query"
	"shop_back_end/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ReviewHandler struct {
	reviews Reviews
}

func NewReviewHandler(reviews Reviews) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

type reviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"max=1000"`
}

func (h *ReviewHandler) List(c *gin.Context) {
	productID, ok := idParam(c, "product")
	if !ok {
		return
	}
	reviews, err := h.reviews.ListForProduct(c.Request.Context(), productID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reviews)
}

func (h *ReviewHandler) Create(c *gin.Context) {
	productID, ok := idParam(c, "product")
	if !ok {
		return
	}
	var req reviewRequest
	if !bindJSON(c, &req) {
		return
	}
	rv, err := h.reviews.Create(c.Request.Context(), middleware.CurrentPrincipal(c), productID,
		services.ReviewInput{Rating: req.Rating, Comment: req.Comment})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rv)
}

func (h *ReviewHandler) Update(c *gin.Context) {
	productID, ok := idParam(c, "product")
	if !ok {
		return
	}
	var req reviewRequest
	if !bindJSON(c, &req) {
		return
	}
	rv, err := h.reviews.UpdateOwn(c.Request.Context(), middleware.CurrentPrincipal(c), productID,
		services.ReviewInput{Rating: req.Rating, Comment: req.Comment})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rv)
}

func (h *ReviewHandler) Delete(c *gin.Context) {
	productID, ok := idParam(c, "product")
	if !ok {
		return
	}
	if err := h.reviews.DeleteOwn(c.Request.Context(), middleware.CurrentPrincipal(c), productID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// --- Modération (admin) ---

type moderateRequest struct {
	ID                string `json:"id" binding:"required"`
	Status            string `json:"status" binding:"required"`
	ModerationComment string `json:"moderationComment"`
}

type bulkModerateRequest struct {
	IDs               []string `json:"ids" binding:"required,min=1"`
	Status            string   `json:"status" binding:"required"`
	ModerationComment string   `json:"moderationComment"`
}

func (h *ReviewHandler) AdminList(c *gin.Context) {
	values := c.Request.URL.Query()
	page, limit := query.ParsePage(values, query.DefaultListLimit)
	f := services.ReviewFilter{
		Status: values.Get("status"),
		Search: values.Get("search"),
		Page:   page,
		Limit:  limit,
	}
	if raw := values.Get("productId"); raw != "" {
		id, err := parseUUID(raw, "product")
		if err != nil {
			respondError(c, err)
			return
		}
		f.ProductID = &id
	}
	if raw := values.Get("rating"); raw != "" {
		var req struct {
			Rating int `form:"rating" binding:"min=1,max=5"`
		}
		if err := c.ShouldBindQuery(&req); err != nil {
			respondError(c, apperr.Validation("Invalid rating"))
			return
		}
		f.Rating = req.Rating
	}

	list, err := h.reviews.AdminList(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *ReviewHandler) Moderate(c *gin.Context) {
	var req moderateRequest
	if !bindJSON(c, &req) {
		return
	}
	id, err := parseUUID(req.ID, "review")
	if err != nil {
		respondError(c, err)
		return
	}
	rv, err := h.reviews.Moderate(c.Request.Context(), id, req.Status, req.ModerationComment, middleware.CurrentPrincipal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rv)
}

func (h *ReviewHandler) BulkModerate(c *gin.Context) {
	var req bulkModerateRequest
	if !bindJSON(c, &req) {
		return
	}
	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := parseUUID(raw, "review")
		if err != nil {
			respondError(c, err)
			return
		}
		ids = append(ids, id)
	}
	n, err := h.reviews.BulkModerate(c.Request.Context(), ids, req.Status, req.ModerationComment, middleware.CurrentPrincipal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Successfully updated %d reviews", n), "updated": n})
}
