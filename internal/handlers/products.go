package handlers

import (
	"net/http"

	"shop_back_end/internal/apperr"
	"shop_back_end/internal/middleware"
	"shop_back_end/internal/query"
	"shop_back_end/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type ProductHandler struct {
	catalog Catalog
}

func NewProductHandler(catalog Catalog) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

type productRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description" binding:"required"`
	Price       decimal.Decimal `json:"price"`
	Stock       *int            `json:"stock" binding:"required"`
	Category    string          `json:"category" binding:"required"`
	Season      string          `json:"season" binding:"required"`
	ImageURL    string          `json:"imageUrl"`
}

type productPatchRequest struct {
	ID          string           `json:"id"`
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	Category    *string          `json:"category"`
	Season      *string          `json:"season"`
	ImageURL    *string          `json:"imageUrl"`
}

func (h *ProductHandler) parseQuery(c *gin.Context) (query.ProductQuery, bool) {
	q, err := query.ParseProductQuery(c.Request.URL.Query(), middleware.CurrentPrincipal(c).IsAdmin())
	if err != nil {
		respondError(c, err)
		return q, false
	}
	return q, true
}

// 🔵 Catalogue paginé
func (h *ProductHandler) List(c *gin.Context) {
	q, ok := h.parseQuery(c)
	if !ok {
		return
	}
	page, err := h.catalog.List(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// 🔍 Recherche texte + fourchette de prix
func (h *ProductHandler) Search(c *gin.Context) {
	q, ok := h.parseQuery(c)
	if !ok {
		return
	}
	page, err := h.catalog.Search(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("X-Search-Backend", page.Backend)
	c.JSON(http.StatusOK, page)
}

func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "product")
	if !ok {
		return
	}
	detail, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// 🟢 Création (admin)
func (h *ProductHandler) Create(c *gin.Context) {
	var req productRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.catalog.Create(c.Request.Context(), services.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       *req.Stock,
		Category:    req.Category,
		Season:      req.Season,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// 🟠 Mise à jour (admin) : id dans le chemin ou dans le corps
func (h *ProductHandler) Update(c *gin.Context) {
	var req productPatchRequest
	if !bindJSON(c, &req) {
		return
	}
	raw := c.Param("id")
	if raw == "" {
		raw = req.ID
	}
	if raw == "" {
		respondError(c, apperr.Validation("Product ID is required"))
		return
	}
	id, err := parseUUID(raw, "product")
	if err != nil {
		respondError(c, err)
		return
	}

	p, err := h.catalog.Update(c.Request.Context(), id, services.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
		Season:      req.Season,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// 🔴 Suppression (admin) : /products/:id ou /products?id=
func (h *ProductHandler) Delete(c *gin.Context) {
	raw := c.Param("id")
	if raw == "" {
		raw = c.Query("id")
	}
	if raw == "" {
		respondError(c, apperr.Validation("Product ID is required"))
		return
	}
	id, err := parseUUID(raw, "product")
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.catalog.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}
