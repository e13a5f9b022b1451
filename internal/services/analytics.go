package services

import (
	"context"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"shop_back_end/internal/models"
)

type Summary struct {
	TotalProducts int             `json:"totalProducts"`
	TotalOrders   int             `json:"totalOrders"`
	TotalUsers    int             `json:"totalUsers"`
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
}

type AnalyticsService struct {
	products ProductStore
	orders   OrderStore
	users    UserStore
}

func NewAnalyticsService(products ProductStore, orders OrderStore, users UserStore) *AnalyticsService {
	return &AnalyticsService{products: products, orders: orders, users: users}
}

// Summary collecte les compteurs en parallèle ; le chiffre d'affaires exclut les commandes annulées
func (s *AnalyticsService) Summary(ctx context.Context) (*Summary, error) {
	var out Summary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.TotalProducts, err = s.products.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.TotalUsers, err = s.users.Count(gctx)
		return err
	})
	g.Go(func() error {
		orders, err := s.orders.All(gctx)
		if err != nil {
			return err
		}
		out.TotalOrders = len(orders)
		out.TotalRevenue = revenue(orders)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, storeErr(err, "analytics summary", "Not found")
	}
	return &out, nil
}

func revenue(orders []models.Order) decimal.Decimal {
	total := decimal.Zero
	for _, o := range orders {
		if o.Status != models.OrderCancelled {
			total = total.Add(o.Total)
		}
	}
	return total
}
