package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"shop_back_end/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const listPrefix = "products:list:"

// ProductList est une page de catalogue mise en cache
type ProductList struct {
	Products []models.Product `json:"products"`
	Total    int              `json:"total"`
}

// ProductCache : fiches produit et pages de catalogue dans Redis.
// Les erreurs Redis sont journalisées et traitées comme des absences.
type ProductCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewProductCache(rdb *redis.Client, ttl time.Duration) *ProductCache {
	return &ProductCache{rdb: rdb, ttl: ttl}
}

func productKey(id uuid.UUID) string {
	return "product:" + id.String()
}

func (c *ProductCache) get(ctx context.Context, key string, dst interface{}) bool {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("⚠️ Lecture cache %s: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		log.Printf("⚠️ Cache %s illisible: %v", key, err)
		return false
	}
	return true
}

func (c *ProductCache) set(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("⚠️ Sérialisation cache %s: %v", key, err)
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Printf("⚠️ Écriture cache %s: %v", key, err)
	}
}

func (c *ProductCache) GetProduct(ctx context.Context, id uuid.UUID) (*models.ProductDetail, bool) {
	var p models.ProductDetail
	if !c.get(ctx, productKey(id), &p) {
		return nil, false
	}
	return &p, true
}

func (c *ProductCache) SetProduct(ctx context.Context, p *models.ProductDetail) {
	c.set(ctx, productKey(p.ID), p)
}

func (c *ProductCache) GetList(ctx context.Context, key string) (*ProductList, bool) {
	var l ProductList
	if !c.get(ctx, listPrefix+key, &l) {
		return nil, false
	}
	return &l, true
}

func (c *ProductCache) SetList(ctx context.Context, key string, l *ProductList) {
	c.set(ctx, listPrefix+key, l)
}

// InvalidateProduct supprime la fiche et toutes les pages de catalogue
func (c *ProductCache) InvalidateProduct(ctx context.Context, id uuid.UUID) {
	if err := c.rdb.Del(ctx, productKey(id)).Err(); err != nil {
		log.Printf("⚠️ Invalidation cache produit %s: %v", id, err)
	}
	c.InvalidateLists(ctx)
}

func (c *ProductCache) InvalidateLists(ctx context.Context) {
	iter := c.rdb.Scan(ctx, 0, listPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Printf("⚠️ Parcours cache catalogue: %v", err)
		return
	}
	if len(keys) > 0 {
		if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
			log.Printf("⚠️ Invalidation cache catalogue: %v", err)
		}
	}
}
