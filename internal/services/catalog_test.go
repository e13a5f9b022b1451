package services

import (
	"context"
	"fmt"
	"net/url"
	"testing"
	"time"

	"shop_back_end/internal/apperr"
	"shop_back_end/internal/cache"
	"shop_back_end/internal/models"
	"shop_back_end/internal/query"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product(name, price string, stock int) models.Product {
	now := time.Now().UTC()
	return models.Product{
		ID:          uuid.New(),
		Name:        name,
		Description: "A product used in tests",
		Price:       decimal.RequireFromString(price),
		Stock:       stock,
		Category:    models.CategoryUnisex,
		Season:      models.SeasonSummer,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func publicQuery(t *testing.T, raw string) query.ProductQuery {
	t.Helper()
	values, err := url.ParseQuery(raw)
	require.NoError(t, err)
	q, err := query.ParseProductQuery(values, false)
	require.NoError(t, err)
	return q
}

func TestPublicListNeverReturnsOutOfStock(t *testing.T) {
	ctx := context.Background()
	inStock := product("Linen shirt", "40", 3)
	soldOut := product("Wool coat", "120", 0)
	products := newFakeProducts(inStock, soldOut)

	// un index obsolète renvoie aussi le produit épuisé
	index := &fakeIndex{ids: []uuid.UUID{soldOut.ID, inStock.ID}}
	svc := NewCatalogService(products, newFakeReviews(), index, nil)

	page, err := svc.List(ctx, publicQuery(t, ""))
	require.NoError(t, err)
	assert.Equal(t, BackendIndex, page.Backend)
	require.Len(t, page.Products, 1)
	assert.Equal(t, inStock.ID, page.Products[0].ID)
	for _, p := range page.Products {
		assert.Greater(t, p.Stock, 0)
	}
}

func TestSearchFallsBackToStoreWhenIndexFails(t *testing.T) {
	ctx := context.Background()
	products := newFakeProducts(product("Linen shirt", "40", 3), product("Wool coat", "120", 0))
	svc := NewCatalogService(products, newFakeReviews(), &fakeIndex{err: errBoom}, nil)

	page, err := svc.Search(ctx, publicQuery(t, "q=linen"))
	require.NoError(t, err)
	assert.Equal(t, BackendStore, page.Backend)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "Linen shirt", page.Products[0].Name)
}

func TestIndexedSearchDiscountsStaleHits(t *testing.T) {
	live := product("Linen shirt", "40", 3)
	soldOut := product("Wool coat", "120", 0)
	products := newFakeProducts(live, soldOut)
	// le troisième id a été supprimé du store mais pas encore de l'index
	index := &fakeIndex{ids: []uuid.UUID{live.ID, soldOut.ID, uuid.New()}}
	svc := NewCatalogService(products, newFakeReviews(), index, nil)

	page, err := svc.Search(context.Background(), publicQuery(t, "limit=1"))
	require.NoError(t, err)
	assert.Equal(t, BackendIndex, page.Backend)
	require.Len(t, page.Products, 1)
	assert.Equal(t, live.ID, page.Products[0].ID)
	assert.Equal(t, 1, page.Pagination.Total)
	assert.Equal(t, 1, page.Pagination.Pages)
}

func TestAdminSeesOutOfStock(t *testing.T) {
	products := newFakeProducts(product("Linen shirt", "40", 3), product("Wool coat", "120", 0))
	svc := NewCatalogService(products, newFakeReviews(), nil, nil)

	q, err := query.ParseProductQuery(url.Values{}, true)
	require.NoError(t, err)
	page, err := svc.List(context.Background(), q)
	require.NoError(t, err)
	assert.Len(t, page.Products, 2)
}

func TestPaginationPagesIsCeil(t *testing.T) {
	var items []models.Product
	for i := 0; i < 25; i++ {
		items = append(items, product(fmt.Sprintf("Product %02d", i), "10", 1))
	}
	svc := NewCatalogService(newFakeProducts(items...), newFakeReviews(), nil, nil)

	for _, tc := range []struct {
		raw   string
		pages int
		count int
	}{
		{"limit=12", 3, 12},
		{"limit=12&page=3", 3, 1},
		{"limit=5", 5, 5},
		{"limit=100", 1, 25},
		{"limit=12&page=9", 3, 0},
	} {
		page, err := svc.List(context.Background(), publicQuery(t, tc.raw))
		require.NoError(t, err, tc.raw)
		assert.Equal(t, 25, page.Pagination.Total, tc.raw)
		assert.Equal(t, tc.pages, page.Pagination.Pages, tc.raw)
		assert.Len(t, page.Products, tc.count, tc.raw)
		assert.LessOrEqual(t, len(page.Products), page.Pagination.Limit, tc.raw)
	}
}

func TestListIsCachedAndInvalidatedOnMutation(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	products := newFakeProducts(product("Linen shirt", "40", 3))
	svc := NewCatalogService(products, newFakeReviews(), nil, cache.NewProductCache(rdb, time.Minute))
	q := publicQuery(t, "")

	first, err := svc.List(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, BackendStore, first.Backend)

	second, err := svc.List(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, BackendCache, second.Backend)
	assert.Equal(t, first.Pagination, second.Pagination)

	_, err = svc.Create(ctx, ProductInput{
		Name: "Straw hat", Description: "Wide brim summer hat", Price: decimal.NewFromInt(25),
		Stock: 4, Category: "unisex", Season: "summer",
	})
	require.NoError(t, err)

	third, err := svc.List(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, BackendStore, third.Backend)
	assert.Equal(t, 2, third.Pagination.Total)
}

func TestCreateValidatesProduct(t *testing.T) {
	svc := NewCatalogService(newFakeProducts(), newFakeReviews(), nil, nil)
	_, err := svc.Create(context.Background(), ProductInput{
		Name: "ab", Description: "Too short name here", Price: decimal.NewFromInt(1), Category: "men", Season: "winter",
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.Create(context.Background(), ProductInput{
		Name: "Boots", Description: "Leather boots", Price: decimal.NewFromInt(1), Category: "kids", Season: "winter",
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestUpdateAppliesPatchAndReindexes(t *testing.T) {
	p := product("Linen shirt", "40", 3)
	index := &fakeIndex{}
	svc := NewCatalogService(newFakeProducts(p), newFakeReviews(), index, nil)

	price := decimal.RequireFromString("35.50")
	season := "WINTER"
	updated, err := svc.Update(context.Background(), p.ID, ProductPatch{Price: &price, Season: &season})
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(price))
	assert.Equal(t, models.SeasonWinter, updated.Season)
	assert.Equal(t, "Linen shirt", updated.Name)
	assert.Equal(t, 1, index.indexed)

	bad := -1
	_, err = svc.Update(context.Background(), p.ID, ProductPatch{Stock: &bad})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.Update(context.Background(), uuid.New(), ProductPatch{Price: &price})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestAdjustStockNeverGoesNegative(t *testing.T) {
	p := product("Linen shirt", "40", 2)
	products := newFakeProducts(p)
	svc := NewCatalogService(products, newFakeReviews(), nil, nil)

	_, err := svc.AdjustStock(context.Background(), p.ID, -3)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, "Insufficient stock for Linen shirt", apperr.Message(err))
	assert.Equal(t, 2, products.stock(p.ID))

	_, err = svc.AdjustStock(context.Background(), p.ID, -2)
	require.NoError(t, err)
	assert.Equal(t, 0, products.stock(p.ID))
}

func TestGetReturnsApprovedReviewsNewestFirst(t *testing.T) {
	ctx := context.Background()
	p := product("Linen shirt", "40", 2)
	reviews := newFakeReviews()
	base := time.Now().UTC()
	for i, st := range []models.ReviewStatus{models.ReviewApproved, models.ReviewRejected, models.ReviewApproved} {
		require.NoError(t, reviews.Create(ctx, &models.Review{
			ID: uuid.New(), ProductID: p.ID, UserID: uuid.New(), Rating: i + 1, Status: st,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	svc := NewCatalogService(newFakeProducts(p), reviews, nil, nil)

	detail, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, detail.Reviews, 2)
	assert.Equal(t, 3, detail.Reviews[0].Rating)
	assert.Equal(t, 1, detail.Reviews[1].Rating)

	_, err = svc.Get(ctx, uuid.New())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestDeleteRemovesReviews(t *testing.T) {
	ctx := context.Background()
	p := product("Linen shirt", "40", 2)
	reviews := newFakeReviews()
	require.NoError(t, reviews.Create(ctx, &models.Review{ID: uuid.New(), ProductID: p.ID, UserID: uuid.New(), Rating: 4}))
	svc := NewCatalogService(newFakeProducts(p), reviews, nil, nil)

	require.NoError(t, svc.Delete(ctx, p.ID))
	left, _ := reviews.ListByProduct(ctx, p.ID)
	assert.Empty(t, left)

	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(svc.Delete(ctx, p.ID)))
}
