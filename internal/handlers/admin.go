package handlers

import (
	"net/http"
	"time"

	"shop_back_end/internal/apperr"

	"github.com/gin-gonic/gin"
)

type AnalyticsHandler struct {
	analytics Analytics
}

func NewAnalyticsHandler(analytics Analytics) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

func (h *AnalyticsHandler) Summary(c *gin.Context) {
	summary, err := h.analytics.Summary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

const signedURLTTL = 15 * time.Minute

// UploadHandler : images produits (admin)
type UploadHandler struct {
	images Images
}

func NewUploadHandler(images Images) *UploadHandler {
	return &UploadHandler{images: images}
}

func (h *UploadHandler) Upload(c *gin.Context) {
	if h.images == nil {
		respondError(c, apperr.NotFound("Image storage is not configured"))
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		respondError(c, apperr.Validation("No file uploaded"))
		return
	}
	img, err := h.images.Upload(c.Request.Context(), fh)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, img)
}

func (h *UploadHandler) Delete(c *gin.Context) {
	if h.images == nil {
		respondError(c, apperr.NotFound("Image storage is not configured"))
		return
	}
	publicID := c.Query("public_id")
	if publicID == "" {
		respondError(c, apperr.Validation("public_id is required"))
		return
	}
	if err := h.images.Delete(c.Request.Context(), publicID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SignedURL : lien de lecture temporaire (bucket privé)
func (h *UploadHandler) SignedURL(c *gin.Context) {
	if h.images == nil {
		respondError(c, apperr.NotFound("Image storage is not configured"))
		return
	}
	publicID := c.Query("public_id")
	if publicID == "" {
		respondError(c, apperr.Validation("public_id is required"))
		return
	}
	u, err := h.images.PresignedURL(c.Request.Context(), publicID, signedURLTTL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": u, "expiresIn": int(signedURLTTL.Seconds())})
}
