// Package events diffuse les événements de commande aux back-offices connectés.
package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"shop_back_end/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const Channel = "orders:events"

const (
	TypeOrderCreated       = "order.created"
	TypeOrderStatusChanged = "order.status_changed"
)

type Event struct {
	Type       string             `json:"type"`
	OrderID    uuid.UUID          `json:"orderId"`
	Status     models.OrderStatus `json:"status"`
	PrevStatus models.OrderStatus `json:"previousStatus,omitempty"`
	Total      decimal.Decimal    `json:"total"`
	At         time.Time          `json:"at"`
}

func OrderCreated(o models.Order) Event {
	return Event{Type: TypeOrderCreated, OrderID: o.ID, Status: o.Status, Total: o.Total, At: o.CreatedAt}
}

func StatusChanged(o models.Order, previous models.OrderStatus) Event {
	return Event{Type: TypeOrderStatusChanged, OrderID: o.ID, Status: o.Status, PrevStatus: previous, Total: o.Total, At: o.UpdatedAt}
}

// Publisher publie sur le canal Redis ; un échec est journalisé sans bloquer la requête
type Publisher struct {
	rdb *redis.Client
}

func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

func (p *Publisher) Publish(ctx context.Context, e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		log.Printf("⚠️ Sérialisation événement %s: %v", e.Type, err)
		return
	}
	if err := p.rdb.Publish(ctx, Channel, data).Err(); err != nil {
		log.Printf("⚠️ Publication événement %s: %v", e.Type, err)
	}
}
