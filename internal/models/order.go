package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// OrderStatuses liste les statuts dans l'ordre du cycle de vie
var OrderStatuses = []OrderStatus{OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled}

// rang dans le flux normal ; cancelled n'en fait pas partie
var orderFlow = map[OrderStatus]int{
	OrderPending:    0,
	OrderProcessing: 1,
	OrderShipped:    2,
	OrderDelivered:  3,
}

// ParseOrderStatus accepte aussi les valeurs en majuscules (PENDING, ...)
func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range OrderStatuses {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid status %q", s)
}

func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// CanTransitionTo : flux pending → processing → shipped → delivered sans retour,
// annulation possible depuis tout état non terminal
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.Terminal() || s == next {
		return false
	}
	if next == OrderCancelled {
		return true
	}
	from, ok := orderFlow[s]
	if !ok {
		return false
	}
	to, ok := orderFlow[next]
	return ok && to > from
}

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cod"
	PaymentCard           PaymentMethod = "card"
)

type CustomerInfo struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Email   string `json:"email,omitempty"`
}

type OrderItem struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID              uuid.UUID       `json:"id" db:"order_id"`
	UserID          *uuid.UUID      `json:"userId,omitempty" db:"user_id"`
	Status          OrderStatus     `json:"status" db:"status"`
	Items           []OrderItem     `json:"items" db:"items"`
	Subtotal        decimal.Decimal `json:"subtotal" db:"subtotal"`
	Shipping        decimal.Decimal `json:"shipping" db:"shipping"`
	Total           decimal.Decimal `json:"total" db:"total"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod" db:"payment_method"`
	PaymentIntentID string          `json:"paymentIntentId,omitempty" db:"payment_intent_id"`
	Customer        CustomerInfo    `json:"customerInfo" db:"customer"`
	Version         int             `json:"-" db:"version"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty" db:"delivered_at"`
}

// ComputeShipping : livraison offerte au-delà du seuil, sinon forfait
func ComputeShipping(subtotal, freeAbove, fee decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThan(freeAbove) {
		return decimal.Zero
	}
	return fee
}

// Recalculate met à jour subtotal et total à partir des lignes ; total = Σ(prix × quantité) + livraison
func (o *Order) Recalculate() {
	subtotal := decimal.Zero
	for _, item := range o.Items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	o.Subtotal = subtotal
	o.Total = subtotal.Add(o.Shipping)
}

// OwnedBy indique si la commande appartient à l'utilisateur
func (o *Order) OwnedBy(userID uuid.UUID) bool {
	return o.UserID != nil && *o.UserID == userID
}
