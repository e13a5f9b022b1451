package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// Les montants sont rendus comme des nombres JSON, pas des chaînes
	decimal.MarshalJSONWithoutQuotes = true
}

type Category string

const (
	CategoryMen    Category = "men"
	CategoryWomen  Category = "women"
	CategoryUnisex Category = "unisex"
)

type Season string

const (
	SeasonSummer Season = "summer"
	SeasonWinter Season = "winter"
)

type Product struct {
	ID            uuid.UUID       `json:"id" db:"product_id"`
	Name          string          `json:"name" db:"name"`
	Description   string          `json:"description" db:"description"`
	Price         decimal.Decimal `json:"price" db:"price"`
	Stock         int             `json:"stock" db:"stock"`
	Category      Category        `json:"category" db:"category"`
	Season        Season          `json:"season" db:"season"`
	ImageURL      string          `json:"imageUrl" db:"image_url"`
	AverageRating float64         `json:"averageRating" db:"average_rating"`
	ReviewCount   int             `json:"reviewCount" db:"review_count"`
	Version       int             `json:"-" db:"version"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time       `json:"updatedAt" db:"updated_at"`
}

// ProductDetail est la fiche produit avec ses avis publiés
type ProductDetail struct {
	Product
	Reviews []Review `json:"reviews"`
}

func ParseCategory(s string) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryMen, CategoryWomen, CategoryUnisex:
		return c, nil
	}
	return "", fmt.Errorf("invalid category %q", s)
}

func ParseSeason(s string) (Season, error) {
	switch v := Season(strings.ToLower(strings.TrimSpace(s))); v {
	case SeasonSummer, SeasonWinter:
		return v, nil
	}
	return "", fmt.Errorf("invalid season %q", s)
}

// Validate vérifie les contraintes d'un produit avant écriture
func (p *Product) Validate() error {
	name := strings.TrimSpace(p.Name)
	if len(name) < 3 || len(name) > 100 {
		return fmt.Errorf("name must be between 3 and 100 characters")
	}
	desc := strings.TrimSpace(p.Description)
	if len(desc) < 10 || len(desc) > 1000 {
		return fmt.Errorf("description must be between 10 and 1000 characters")
	}
	if !p.Price.IsPositive() {
		return fmt.Errorf("price must be a positive number")
	}
	if p.Stock < 0 {
		return fmt.Errorf("stock must be a non-negative number")
	}
	if _, err := ParseCategory(string(p.Category)); err != nil {
		return err
	}
	if _, err := ParseSeason(string(p.Season)); err != nil {
		return err
	}
	return nil
}

// InStock indique si le produit est visible pour un client
func (p Product) InStock() bool {
	return p.Stock > 0
}
