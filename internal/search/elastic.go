// Package search indexe le catalogue dans Elasticsearch.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"shop_back_end/internal/models"
	"shop_back_end/internal/query"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
)

var mapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"id": map[string]interface{}{"type": "keyword"},
			"name": map[string]interface{}{
				"type":   "text",
				"fields": map[string]interface{}{"keyword": map[string]interface{}{"type": "keyword"}},
			},
			"description": map[string]interface{}{
				"type":   "text",
				"fields": map[string]interface{}{"keyword": map[string]interface{}{"type": "keyword"}},
			},
			"price":         map[string]interface{}{"type": "double"},
			"stock":         map[string]interface{}{"type": "integer"},
			"category":      map[string]interface{}{"type": "keyword"},
			"season":        map[string]interface{}{"type": "keyword"},
			"averageRating": map[string]interface{}{"type": "double"},
			"createdAt":     map[string]interface{}{"type": "date"},
			"updatedAt":     map[string]interface{}{"type": "date"},
		},
	},
}

// TieBreakField départage les égalités de tri ; mappé en keyword
const TieBreakField = "id"

// champ Elasticsearch utilisé pour chaque tri autorisé
var sortFields = map[string]string{
	"createdAt":     "createdAt",
	"updatedAt":     "updatedAt",
	"price":         "price",
	"name":          "name.keyword",
	"stock":         "stock",
	"averageRating": "averageRating",
}

type productDoc struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Price         float64   `json:"price"`
	Stock         int       `json:"stock"`
	Category      string    `json:"category"`
	Season        string    `json:"season"`
	AverageRating float64   `json:"averageRating"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func toDoc(p models.Product) productDoc {
	return productDoc{
		ID:            p.ID.String(),
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price.InexactFloat64(),
		Stock:         p.Stock,
		Category:      string(p.Category),
		Season:        string(p.Season),
		AverageRating: p.AverageRating,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

type ProductIndex struct {
	es    *elasticsearch.Client
	index string
}

func NewProductIndex(es *elasticsearch.Client, index string) *ProductIndex {
	return &ProductIndex{es: es, index: index}
}

// EnsureIndex crée l'index avec son mapping s'il n'existe pas
func (i *ProductIndex) EnsureIndex(ctx context.Context) error {
	res, err := esapi.IndicesExistsRequest{Index: []string{i.index}}.Do(ctx, i.es)
	if err != nil {
		return err
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return err
	}
	res, err = esapi.IndicesCreateRequest{Index: i.index, Body: bytes.NewReader(body)}.Do(ctx, i.es)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("création index %s: %s", i.index, res.String())
	}
	log.Printf("📇 Index Elasticsearch '%s' créé", i.index)
	return nil
}

func (i *ProductIndex) Index(ctx context.Context, p models.Product) error {
	data, err := json.Marshal(toDoc(p))
	if err != nil {
		return err
	}
	res, err := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: p.ID.String(),
		Body:       bytes.NewReader(data),
		Refresh:    "wait_for",
	}.Do(ctx, i.es)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("indexation %s: %s", p.ID, res.String())
	}
	return nil
}

func (i *ProductIndex) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := esapi.DeleteRequest{Index: i.index, DocumentID: id.String(), Refresh: "wait_for"}.Do(ctx, i.es)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("suppression %s: %s", id, res.String())
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search retourne les identifiants de la page demandée et le total
func (i *ProductIndex) Search(ctx context.Context, q query.ProductQuery) ([]uuid.UUID, int, error) {
	body, err := json.Marshal(BuildQuery(q))
	if err != nil {
		return nil, 0, err
	}
	res, err := esapi.SearchRequest{Index: []string{i.index}, Body: bytes.NewReader(body)}.Do(ctx, i.es)
	if err != nil {
		return nil, 0, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, 0, fmt.Errorf("recherche: %s", res.String())
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, 0, fmt.Errorf("décodage réponse: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		id, err := uuid.Parse(hit.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, r.Hits.Total.Value, nil
}

// BuildQuery traduit le prédicat du catalogue en requête Elasticsearch
func BuildQuery(q query.ProductQuery) map[string]interface{} {
	var filters []interface{}
	if q.Category != "" {
		filters = append(filters, term("category", string(q.Category)))
	}
	if q.Season != "" {
		filters = append(filters, term("season", string(q.Season)))
	}
	if q.MinPrice != nil || q.MaxPrice != nil {
		bounds := map[string]interface{}{}
		if q.MinPrice != nil {
			bounds["gte"] = q.MinPrice.InexactFloat64()
		}
		if q.MaxPrice != nil {
			bounds["lte"] = q.MaxPrice.InexactFloat64()
		}
		filters = append(filters, map[string]interface{}{"range": map[string]interface{}{"price": bounds}})
	}
	if q.InStockOnly {
		filters = append(filters, map[string]interface{}{"range": map[string]interface{}{"stock": map[string]interface{}{"gt": 0}}})
	}

	boolQuery := map[string]interface{}{}
	if len(filters) > 0 {
		boolQuery["filter"] = filters
	}
	if q.Text != "" {
		pattern := "*" + escapeWildcard(q.Text) + "*"
		boolQuery["should"] = []interface{}{
			wildcard("name.keyword", pattern),
			wildcard("description.keyword", pattern),
		}
		boolQuery["minimum_should_match"] = 1
	}

	order := "asc"
	if q.Desc {
		order = "desc"
	}
	field, ok := sortFields[q.SortBy]
	if !ok {
		field = sortFields[query.DefaultSort]
	}

	return map[string]interface{}{
		"query":            map[string]interface{}{"bool": boolQuery},
		"from":             q.Skip(),
		"size":             q.Limit,
		"track_total_hits": true,
		"_source":          false,
		"sort": []interface{}{
			map[string]interface{}{field: map[string]interface{}{"order": order}},
			// _id n'est pas triable par défaut en 8.x
			map[string]interface{}{TieBreakField: map[string]interface{}{"order": "asc"}},
		},
	}
}

func term(field, value string) map[string]interface{} {
	return map[string]interface{}{"term": map[string]interface{}{field: value}}
}

func wildcard(field, pattern string) map[string]interface{} {
	return map[string]interface{}{"wildcard": map[string]interface{}{
		field: map[string]interface{}{"value": pattern, "case_insensitive": true},
	}}
}

func escapeWildcard(s string) string {
	return strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`).Replace(s)
}
