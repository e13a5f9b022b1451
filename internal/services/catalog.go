package services

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"shop_back_end/internal/apperr"
	"shop_back_end/internal/cache"
	"shop_back_end/internal/models"
	"shop_back_end/internal/query"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	BackendIndex = "elasticsearch"
	BackendStore = "scylla"
	BackendCache = "cache"
)

type ProductPage struct {
	Products   []models.Product  `json:"products"`
	Pagination models.Pagination `json:"pagination"`
	Backend    string            `json:"-"`
}

type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Category    string
	Season      string
	ImageURL    string
}

// ProductPatch : seuls les champs renseignés sont modifiés
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	Category    *string
	Season      *string
	ImageURL    *string
}

type CatalogService struct {
	products ProductStore
	reviews  ReviewStore
	index    ProductIndex
	cache    ProductCache
}

// NewCatalogService : index et cache sont optionnels (nil)
func NewCatalogService(products ProductStore, reviews ReviewStore, index ProductIndex, cache ProductCache) *CatalogService {
	return &CatalogService{products: products, reviews: reviews, index: index, cache: cache}
}

// List sert le catalogue ; les listes publiques passent par le cache
func (s *CatalogService) List(ctx context.Context, q query.ProductQuery) (*ProductPage, error) {
	cacheable := q.InStockOnly && s.cache != nil
	key := q.CacheKey()
	if cacheable {
		if cached, ok := s.cache.GetList(ctx, key); ok {
			return &ProductPage{
				Products:   cached.Products,
				Pagination: models.NewPagination(q.Page, q.Limit, cached.Total),
				Backend:    BackendCache,
			}, nil
		}
	}

	result, err := s.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	if cacheable {
		s.cache.SetList(ctx, key, &cache.ProductList{Products: result.Products, Total: result.Pagination.Total})
	}
	return result, nil
}

// Search interroge l'index et se replie sur un parcours du store si l'index est indisponible
func (s *CatalogService) Search(ctx context.Context, q query.ProductQuery) (*ProductPage, error) {
	if s.index != nil {
		ids, total, err := s.index.Search(ctx, q)
		if err == nil {
			products, err := s.products.GetMany(ctx, ids)
			if err != nil {
				return nil, storeErr(err, "load indexed products", "Product not found")
			}
			// un document obsolète (produit supprimé ou modifié) ne doit jamais violer le filtre
			kept := products[:0]
			for _, p := range products {
				if q.Matches(p) {
					kept = append(kept, p)
				}
			}
			if dropped := len(ids) - len(kept); dropped > 0 {
				total -= dropped
			}
			if total < len(kept) {
				total = len(kept)
			}
			return &ProductPage{
				Products:   kept,
				Pagination: models.NewPagination(q.Page, q.Limit, total),
				Backend:    BackendIndex,
			}, nil
		}
		log.Printf("⚠️ Recherche Elasticsearch indisponible, repli sur Scylla: %v", err)
	}

	all, err := s.products.All(ctx)
	if err != nil {
		return nil, storeErr(err, "list products", "Product not found")
	}
	products, total := q.Apply(all)
	return &ProductPage{
		Products:   products,
		Pagination: models.NewPagination(q.Page, q.Limit, total),
		Backend:    BackendStore,
	}, nil
}

// Get retourne le produit et ses avis publiés
func (s *CatalogService) Get(ctx context.Context, id uuid.UUID) (*models.ProductDetail, error) {
	if s.cache != nil {
		if cached, ok := s.cache.GetProduct(ctx, id); ok {
			return cached, nil
		}
	}
	p, err := s.products.Get(ctx, id)
	if err != nil {
		return nil, storeErr(err, "get product", "Product not found")
	}
	reviews, err := s.reviews.ListByProduct(ctx, id)
	if err != nil {
		return nil, storeErr(err, "list product reviews", "Product not found")
	}
	detail := &models.ProductDetail{Product: *p, Reviews: approvedNewestFirst(reviews)}
	if s.cache != nil {
		s.cache.SetProduct(ctx, detail)
	}
	return detail, nil
}

func approvedNewestFirst(reviews []models.Review) []models.Review {
	out := make([]models.Review, 0, len(reviews))
	for _, r := range reviews {
		if r.Status == models.ReviewApproved {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *CatalogService) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	category, err := models.ParseCategory(in.Category)
	if err != nil {
		return nil, apperr.Validation("Invalid category")
	}
	season, err := models.ParseSeason(in.Season)
	if err != nil {
		return nil, apperr.Validation("Invalid season")
	}
	now := time.Now().UTC()
	p := &models.Product{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		Stock:       in.Stock,
		Category:    category,
		Season:      season,
		ImageURL:    in.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.Validate(); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, storeErr(err, "create product", "Product not found")
	}
	s.changed(ctx, p)
	log.Printf("✅ Produit créé: %s (%s)", p.Name, p.ID)
	return p, nil
}

func (s *CatalogService) Update(ctx context.Context, id uuid.UUID, patch ProductPatch) (*models.Product, error) {
	p, err := s.products.Update(ctx, id, func(p *models.Product) error {
		if patch.Name != nil {
			p.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Description != nil {
			p.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.Price != nil {
			p.Price = *patch.Price
		}
		if patch.Stock != nil {
			p.Stock = *patch.Stock
		}
		if patch.Category != nil {
			c, err := models.ParseCategory(*patch.Category)
			if err != nil {
				return apperr.Validation("Invalid category")
			}
			p.Category = c
		}
		if patch.Season != nil {
			se, err := models.ParseSeason(*patch.Season)
			if err != nil {
				return apperr.Validation("Invalid season")
			}
			p.Season = se
		}
		if patch.ImageURL != nil {
			p.ImageURL = *patch.ImageURL
		}
		if err := p.Validate(); err != nil {
			return apperr.Validation("%s", err.Error())
		}
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "update product", "Product not found")
	}
	s.changed(ctx, p)
	return p, nil
}

// Delete supprime aussi les avis du produit
func (s *CatalogService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return storeErr(err, "delete product", "Product not found")
	}
	if err := s.reviews.DeleteByProduct(ctx, id); err != nil {
		log.Printf("⚠️ Suppression des avis du produit %s: %v", id, err)
	}
	if s.index != nil {
		if err := s.index.Delete(ctx, id); err != nil {
			log.Printf("⚠️ Suppression index produit %s: %v", id, err)
		}
	}
	if s.cache != nil {
		s.cache.InvalidateProduct(ctx, id)
	}
	log.Printf("🗑️ Produit supprimé: %s", id)
	return nil
}

// AdjustStock applique un delta de stock sous condition de version
func (s *CatalogService) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*models.Product, error) {
	p, err := s.products.Update(ctx, id, func(p *models.Product) error {
		if p.Stock+delta < 0 {
			return apperr.Validation("Insufficient stock for %s", p.Name)
		}
		p.Stock += delta
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "adjust stock", "Product not found")
	}
	s.changed(ctx, p)
	return p, nil
}

// UpdateRating écrit la note moyenne et le nombre d'avis
func (s *CatalogService) UpdateRating(ctx context.Context, id uuid.UUID, compute func() (float64, int, error)) (*models.Product, error) {
	p, err := s.products.Update(ctx, id, func(p *models.Product) error {
		avg, count, err := compute()
		if err != nil {
			return err
		}
		p.AverageRating = avg
		p.ReviewCount = count
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "update rating", "Product not found")
	}
	s.changed(ctx, p)
	return p, nil
}

// changed réindexe le produit et invalide le cache ; les échecs ne font pas échouer la requête
func (s *CatalogService) changed(ctx context.Context, p *models.Product) {
	if s.index != nil {
		if err := s.index.Index(ctx, *p); err != nil {
			log.Printf("⚠️ Indexation produit %s: %v", p.ID, err)
		}
	}
	if s.cache != nil {
		s.cache.InvalidateProduct(ctx, p.ID)
	}
}
