// Package query traduit les paramètres de requête du catalogue en prédicats.
package query

import (
	"cmp"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"shop_back_end/internal/apperr"
	"shop_back_end/internal/models"

	"github.com/shopspring/decimal"
)

const (
	DefaultPage         = 1
	DefaultProductLimit = 12
	DefaultListLimit    = 10
	MaxLimit            = 100

	DefaultSort = "createdAt"
)

// SortFields : champs triables autorisés
var SortFields = map[string]bool{
	"createdAt":     true,
	"updatedAt":     true,
	"price":         true,
	"name":          true,
	"stock":         true,
	"averageRating": true,
}

type ProductQuery struct {
	Category    models.Category
	Season      models.Season
	Text        string
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	InStockOnly bool
	Page        int
	Limit       int
	SortBy      string
	Desc        bool
}

// ParseProductQuery construit le prédicat ; un appelant non admin ne voit que les produits en stock
func ParseProductQuery(values url.Values, isAdmin bool) (ProductQuery, error) {
	q := ProductQuery{
		Text:        strings.TrimSpace(values.Get("q")),
		InStockOnly: !isAdmin,
		SortBy:      DefaultSort,
		Desc:        true,
	}

	if v := values.Get("category"); v != "" {
		c, err := models.ParseCategory(v)
		if err != nil {
			return q, apperr.Validation("Invalid category: %s", v)
		}
		q.Category = c
	}
	if v := values.Get("season"); v != "" {
		s, err := models.ParseSeason(v)
		if err != nil {
			return q, apperr.Validation("Invalid season: %s", v)
		}
		q.Season = s
	}

	var err error
	if q.MinPrice, err = parsePrice(values, "minPrice"); err != nil {
		return q, err
	}
	if q.MaxPrice, err = parsePrice(values, "maxPrice"); err != nil {
		return q, err
	}
	if q.MinPrice != nil && q.MaxPrice != nil && q.MinPrice.GreaterThan(*q.MaxPrice) {
		return q, apperr.Validation("minPrice cannot be greater than maxPrice")
	}

	q.Page, q.Limit = ParsePage(values, DefaultProductLimit)

	if s := values.Get("sortBy"); SortFields[s] {
		q.SortBy = s
	}
	q.Desc = !strings.EqualFold(values.Get("order"), "asc")
	return q, nil
}

func parsePrice(values url.Values, key string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return nil, apperr.Validation("%s must be a non-negative number", key)
	}
	return &d, nil
}

// ParsePage lit page et limit ; une valeur absente ou invalide reprend la valeur par défaut
func ParsePage(values url.Values, defaultLimit int) (int, int) {
	page := positiveInt(values.Get("page"), DefaultPage)
	limit := positiveInt(values.Get("limit"), defaultLimit)
	if limit > MaxLimit {
		limit = MaxLimit
	}
	// (page-1)*limit doit rester représentable
	if page > math.MaxInt/limit {
		page = math.MaxInt / limit
	}
	return page, limit
}

func positiveInt(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func (q ProductQuery) Skip() int {
	return (q.Page - 1) * q.Limit
}

// Matches évalue le prédicat sur un produit
func (q ProductQuery) Matches(p models.Product) bool {
	if q.InStockOnly && p.Stock <= 0 {
		return false
	}
	if q.Category != "" && p.Category != q.Category {
		return false
	}
	if q.Season != "" && p.Season != q.Season {
		return false
	}
	if q.MinPrice != nil && p.Price.LessThan(*q.MinPrice) {
		return false
	}
	if q.MaxPrice != nil && p.Price.GreaterThan(*q.MaxPrice) {
		return false
	}
	if q.Text != "" {
		needle := strings.ToLower(q.Text)
		if !strings.Contains(strings.ToLower(p.Name), needle) &&
			!strings.Contains(strings.ToLower(p.Description), needle) {
			return false
		}
	}
	return true
}

// Apply filtre, trie et découpe une liste complète ; retourne la page et le total filtré
func (q ProductQuery) Apply(products []models.Product) ([]models.Product, int) {
	matched := make([]models.Product, 0, len(products))
	for _, p := range products {
		if q.Matches(p) {
			matched = append(matched, p)
		}
	}
	q.Sort(matched)

	start, end := models.Window(len(matched), q.Page, q.Limit)
	return matched[start:end], len(matched)
}

// Sort applique l'ordre demandé ; l'identifiant départage les égalités
func (q ProductQuery) Sort(products []models.Product) {
	sort.SliceStable(products, func(i, j int) bool {
		c := compareBy(q.SortBy, products[i], products[j])
		if c == 0 {
			return products[i].ID.String() < products[j].ID.String()
		}
		if q.Desc {
			return c > 0
		}
		return c < 0
	})
}

func compareBy(field string, a, b models.Product) int {
	switch field {
	case "price":
		return a.Price.Cmp(b.Price)
	case "name":
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	case "stock":
		return cmp.Compare(a.Stock, b.Stock)
	case "averageRating":
		return cmp.Compare(a.AverageRating, b.AverageRating)
	case "updatedAt":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

// CacheKey est une représentation canonique de la requête
func (q ProductQuery) CacheKey() string {
	price := func(d *decimal.Decimal) string {
		if d == nil {
			return "-"
		}
		return d.String()
	}
	dir := "asc"
	if q.Desc {
		dir = "desc"
	}
	return fmt.Sprintf("c=%s|s=%s|q=%s|min=%s|max=%s|stock=%t|p=%d|l=%d|sort=%s:%s",
		q.Category, q.Season, strings.ToLower(q.Text), price(q.MinPrice), price(q.MaxPrice),
		q.InStockOnly, q.Page, q.Limit, q.SortBy, dir)
}
