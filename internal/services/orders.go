package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"shop_back_end/internal/apperr"
	"shop_back_end/internal/auth"
	"shop_back_end/internal/config"
	"shop_back_end/internal/events"
	"shop_back_end/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

type OrderInput struct {
	Items         []OrderItemInput
	Customer      models.CustomerInfo
	PaymentMethod string
}

// PlacedOrder porte le secret client Stripe pour un paiement par carte
type PlacedOrder struct {
	Order        *models.Order `json:"order"`
	ClientSecret string        `json:"clientSecret,omitempty"`
}

type OrderList struct {
	Orders     []models.Order    `json:"orders"`
	Pagination models.Pagination `json:"pagination"`
}

type OrderFilter struct {
	Status string
	Search string
	Page   int
	Limit  int
}

type OrderStatistics struct {
	TotalRevenue decimal.Decimal            `json:"totalRevenue"`
	OrderStats   map[models.OrderStatus]int `json:"orderStats"`
}

type AdminOrderList struct {
	Orders     []models.Order    `json:"orders"`
	Pagination models.Pagination `json:"pagination"`
	Statistics OrderStatistics   `json:"statistics"`
}

type OrderService struct {
	orders   OrderStore
	stock    StockAdjuster
	payments PaymentGateway
	notifier OrderNotifier
	events   EventPublisher
	invoices InvoiceRenderer
	shop     config.ShopConfig
}

type OrderDeps struct {
	Orders   OrderStore
	Stock    StockAdjuster
	Payments PaymentGateway
	Notifier OrderNotifier
	Events   EventPublisher
	Invoices InvoiceRenderer
}

// NewOrderService : Payments, Notifier, Events et Invoices peuvent être nil
func NewOrderService(deps OrderDeps, shop config.ShopConfig) *OrderService {
	return &OrderService{
		orders:   deps.Orders,
		stock:    deps.Stock,
		payments: deps.Payments,
		notifier: deps.Notifier,
		events:   deps.Events,
		invoices: deps.Invoices,
		shop:     shop,
	}
}

func validateOrderInput(in OrderInput) (models.PaymentMethod, error) {
	if len(in.Items) == 0 {
		return "", apperr.Validation("Order must contain at least one item")
	}
	for _, item := range in.Items {
		if item.ProductID == uuid.Nil {
			return "", apperr.Validation("Invalid product id")
		}
		if item.Quantity < 1 {
			return "", apperr.Validation("Quantity must be at least 1")
		}
	}
	c := in.Customer
	if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Phone) == "" || strings.TrimSpace(c.Address) == "" {
		return "", apperr.Validation("Customer name, phone and address are required")
	}
	switch method := models.PaymentMethod(strings.ToLower(strings.TrimSpace(in.PaymentMethod))); method {
	case "":
		return models.PaymentCashOnDelivery, nil
	case models.PaymentCashOnDelivery, models.PaymentCard:
		return method, nil
	}
	return "", apperr.Validation("Invalid payment method")
}

// Create place une commande, invitée si principal est nil.
// Le stock est décrémenté ligne par ligne et restauré si une ligne échoue.
func (s *OrderService) Create(ctx context.Context, principal *auth.Principal, in OrderInput) (*PlacedOrder, error) {
	method, err := validateOrderInput(in)
	if err != nil {
		return nil, err
	}
	if method == models.PaymentCard && s.payments == nil {
		return nil, apperr.Validation("Card payments are not available")
	}

	var reserved []OrderItemInput
	release := func() {
		for _, item := range reserved {
			if _, err := s.stock.AdjustStock(context.WithoutCancel(ctx), item.ProductID, item.Quantity); err != nil {
				log.Printf("❌ Restauration stock %s (+%d): %v", item.ProductID, item.Quantity, err)
			}
		}
	}

	items := make([]models.OrderItem, 0, len(in.Items))
	for _, item := range in.Items {
		p, err := s.stock.AdjustStock(ctx, item.ProductID, -item.Quantity)
		if err != nil {
			release()
			return nil, err
		}
		reserved = append(reserved, item)
		items = append(items, models.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  item.Quantity,
			Price:     p.Price,
		})
	}

	now := time.Now().UTC()
	order := &models.Order{
		ID:            uuid.New(),
		Status:        models.OrderPending,
		Items:         items,
		PaymentMethod: method,
		Customer:      in.Customer,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if principal != nil {
		userID := principal.UserID
		order.UserID = &userID
		if order.Customer.Email == "" {
			order.Customer.Email = principal.Email
		}
	}
	order.Recalculate()
	order.Shipping = models.ComputeShipping(order.Subtotal, s.shop.FreeShippingAbove, s.shop.ShippingFee)
	order.Recalculate()

	placed := &PlacedOrder{Order: order}
	if method == models.PaymentCard {
		intent, err := s.payments.CreateIntent(ctx, order.Total, map[string]string{"order_id": order.ID.String()})
		if err != nil {
			release()
			log.Printf("❌ Création PaymentIntent: %v", err)
			return nil, apperr.Internal(err, "create payment intent")
		}
		order.PaymentIntentID = intent.ID
		placed.ClientSecret = intent.ClientSecret
	}

	if err := s.orders.Create(ctx, order); err != nil {
		release()
		if order.PaymentIntentID != "" {
			if cerr := s.payments.CancelIntent(context.WithoutCancel(ctx), order.PaymentIntentID); cerr != nil {
				log.Printf("⚠️ Annulation PaymentIntent %s: %v", order.PaymentIntentID, cerr)
			}
		}
		return nil, storeErr(err, "create order", "Order not found")
	}

	log.Printf("🛒 Commande %s créée (%s, %d articles)", order.ID, order.Total.StringFixed(2), len(order.Items))
	if s.events != nil {
		s.events.Publish(ctx, events.OrderCreated(*order))
	}
	if s.notifier != nil {
		s.notifier.OrderPlaced(*order)
	}
	return placed, nil
}

func parseStatusFilter(raw string) (models.OrderStatus, error) {
	if raw == "" {
		return "", nil
	}
	st, err := models.ParseOrderStatus(raw)
	if err != nil {
		return "", apperr.Validation("Invalid status")
	}
	return st, nil
}

func newestFirst(orders []models.Order) {
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
}

func (s *OrderService) ListForUser(ctx context.Context, userID uuid.UUID, status string, pageNum, limit int) (*OrderList, error) {
	st, err := parseStatusFilter(status)
	if err != nil {
		return nil, err
	}
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "list user orders", "Order not found")
	}
	filtered := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if st == "" || o.Status == st {
			filtered = append(filtered, o)
		}
	}
	newestFirst(filtered)
	items, pagination := page(filtered, pageNum, limit)
	return &OrderList{Orders: items, Pagination: pagination}, nil
}

// Get : le propriétaire ou un admin
func (s *OrderService) Get(ctx context.Context, id uuid.UUID, principal *auth.Principal) (*models.Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, storeErr(err, "get order", "Order not found")
	}
	if principal == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}
	if !principal.IsAdmin() && !o.OwnedBy(principal.UserID) {
		return nil, apperr.Forbidden("You are not allowed to access this order")
	}
	return o, nil
}

// AdminList filtre par statut et recherche (id, nom, téléphone, email) ; les statistiques portent sur toutes les commandes
func (s *OrderService) AdminList(ctx context.Context, f OrderFilter) (*AdminOrderList, error) {
	st, err := parseStatusFilter(f.Status)
	if err != nil {
		return nil, err
	}
	all, err := s.orders.All(ctx)
	if err != nil {
		return nil, storeErr(err, "list orders", "Order not found")
	}

	stats := OrderStatistics{TotalRevenue: decimal.Zero, OrderStats: map[models.OrderStatus]int{}}
	search := strings.ToLower(strings.TrimSpace(f.Search))
	matched := make([]models.Order, 0, len(all))
	for _, o := range all {
		stats.OrderStats[o.Status]++
		if o.Status != models.OrderCancelled {
			stats.TotalRevenue = stats.TotalRevenue.Add(o.Total)
		}
		if st != "" && o.Status != st {
			continue
		}
		if search != "" && !orderMatches(o, search) {
			continue
		}
		matched = append(matched, o)
	}
	newestFirst(matched)
	items, pagination := page(matched, f.Page, f.Limit)
	return &AdminOrderList{Orders: items, Pagination: pagination, Statistics: stats}, nil
}

func orderMatches(o models.Order, search string) bool {
	for _, field := range []string{o.ID.String(), o.Customer.Name, o.Customer.Phone, o.Customer.Email} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

// UpdateStatus valide la transition sous condition de version ; l'annulation
// restaure le stock une seule fois et annule le PaymentIntent
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Order, error) {
	next, err := models.ParseOrderStatus(status)
	if err != nil {
		return nil, apperr.Validation("Invalid status")
	}

	var previous models.OrderStatus
	o, err := s.orders.Update(ctx, id, func(o *models.Order) error {
		previous = o.Status
		if !o.Status.CanTransitionTo(next) {
			return apperr.Validation("Cannot change order status from %s to %s", o.Status, next)
		}
		o.Status = next
		if next == models.OrderDelivered {
			now := time.Now().UTC()
			o.DeliveredAt = &now
		}
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "update order status", "Order not found")
	}

	var restoreErr error
	if next == models.OrderCancelled {
		restoreErr = s.restoreStock(ctx, o)
		if o.PaymentIntentID != "" && s.payments != nil {
			if err := s.payments.CancelIntent(ctx, o.PaymentIntentID); err != nil {
				log.Printf("⚠️ Annulation PaymentIntent %s: %v", o.PaymentIntentID, err)
			}
		}
	}

	log.Printf("📦 Commande %s: %s → %s", o.ID, previous, o.Status)
	if s.events != nil {
		s.events.Publish(ctx, events.StatusChanged(*o, previous))
	}
	if s.notifier != nil {
		s.notifier.StatusChanged(*o)
	}
	if restoreErr != nil {
		return nil, apperr.Internal(restoreErr, "restore stock")
	}
	return o, nil
}

const restoreAttempts = 5

var restoreBackoff = 100 * time.Millisecond

// restoreStock s'exécute après le commit de l'annulation : il ne dépend plus
// de la requête et réessaie chaque ligne avant d'abandonner
func (s *OrderService) restoreStock(ctx context.Context, o *models.Order) error {
	ctx = context.WithoutCancel(ctx)
	var failed []error
	for _, item := range o.Items {
		var err error
		for attempt := 1; attempt <= restoreAttempts; attempt++ {
			if _, err = s.stock.AdjustStock(ctx, item.ProductID, item.Quantity); err == nil {
				break
			}
			if apperr.KindOf(err) == apperr.KindNotFound {
				// produit supprimé depuis la commande
				log.Printf("⚠️ Restauration stock ignorée, produit %s introuvable (commande %s)", item.ProductID, o.ID)
				err = nil
				break
			}
			time.Sleep(time.Duration(attempt) * restoreBackoff)
		}
		if err != nil {
			log.Printf("❌ Restauration stock %s (+%d) pour la commande %s: %v", item.ProductID, item.Quantity, o.ID, err)
			failed = append(failed, fmt.Errorf("product %s (+%d): %w", item.ProductID, item.Quantity, err))
		}
	}
	return errors.Join(failed...)
}

// Invoice rend la facture PDF d'une commande
func (s *OrderService) Invoice(ctx context.Context, id uuid.UUID, principal *auth.Principal) (*models.Order, []byte, error) {
	o, err := s.Get(ctx, id, principal)
	if err != nil {
		return nil, nil, err
	}
	if s.invoices == nil {
		return nil, nil, apperr.NotFound("Invoices are not available")
	}
	pdf, err := s.invoices.PDF(ctx, *o)
	if err != nil {
		log.Printf("❌ Génération facture %s: %v", o.ID, err)
		return nil, nil, apperr.Internal(err, "render invoice")
	}
	return o, pdf, nil
}
