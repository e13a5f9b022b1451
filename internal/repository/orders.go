package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shop_back_end/internal/models"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"gopkg.in/inf.v0"
)

const orderColumns = `order_id, user_id, status, items, subtotal, shipping, total, payment_method, payment_intent_id,
	customer_name, customer_phone, customer_address, customer_email, version, created_at, updated_at, delivered_at`

type orderRow struct {
	id              gocql.UUID
	userID          gocql.UUID
	status          string
	items           string
	subtotal        inf.Dec
	shipping        inf.Dec
	total           inf.Dec
	paymentMethod   string
	paymentIntentID string
	customerName    string
	customerPhone   string
	customerAddress string
	customerEmail   string
	version         int
	createdAt       time.Time
	updatedAt       time.Time
	deliveredAt     time.Time
}

func (r *orderRow) dest() []interface{} {
	return []interface{}{&r.id, &r.userID, &r.status, &r.items, &r.subtotal, &r.shipping, &r.total,
		&r.paymentMethod, &r.paymentIntentID, &r.customerName, &r.customerPhone, &r.customerAddress,
		&r.customerEmail, &r.version, &r.createdAt, &r.updatedAt, &r.deliveredAt}
}

func (r *orderRow) model() (models.Order, error) {
	o := models.Order{
		ID:              uuid.UUID(r.id),
		UserID:          uuidOrNil(r.userID),
		Status:          models.OrderStatus(r.status),
		Subtotal:        fromCQLDecimal(&r.subtotal),
		Shipping:        fromCQLDecimal(&r.shipping),
		Total:           fromCQLDecimal(&r.total),
		PaymentMethod:   models.PaymentMethod(r.paymentMethod),
		PaymentIntentID: r.paymentIntentID,
		Customer: models.CustomerInfo{
			Name:    r.customerName,
			Phone:   r.customerPhone,
			Address: r.customerAddress,
			Email:   r.customerEmail,
		},
		Version:     r.version,
		CreatedAt:   r.createdAt,
		UpdatedAt:   r.updatedAt,
		DeliveredAt: timeOrNil(r.deliveredAt),
	}
	if r.items != "" {
		if err := json.Unmarshal([]byte(r.items), &o.Items); err != nil {
			return o, fmt.Errorf("items de la commande %s illisibles: %w", o.ID, err)
		}
	}
	return o, nil
}

type OrderRepository struct {
	session SessionFunc
}

func NewOrderRepository(session SessionFunc) *OrderRepository {
	return &OrderRepository{session: session}
}

// Create écrit la commande et son index utilisateur dans un batch journalisé
func (r *OrderRepository) Create(ctx context.Context, o *models.Order) error {
	session, err := r.session()
	if err != nil {
		return err
	}
	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	o.Version = 1

	batch := session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(`INSERT INTO orders (`+orderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cqlUUID(o.ID), optionalUUID(o.UserID), string(o.Status), string(items),
		toCQLDecimal(o.Subtotal), toCQLDecimal(o.Shipping), toCQLDecimal(o.Total),
		string(o.PaymentMethod), o.PaymentIntentID,
		o.Customer.Name, o.Customer.Phone, o.Customer.Address, o.Customer.Email,
		o.Version, o.CreatedAt, o.UpdatedAt, optionalTime(o.DeliveredAt))
	if o.UserID != nil {
		batch.Query(`INSERT INTO orders_by_user (user_id, created_at, order_id) VALUES (?, ?, ?)`,
			cqlUUID(*o.UserID), o.CreatedAt, cqlUUID(o.ID))
	}
	return session.ExecuteBatch(batch)
}

func (r *OrderRepository) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	var row orderRow
	if err := session.Query(`SELECT `+orderColumns+` FROM orders WHERE order_id = ?`, cqlUUID(id)).
		WithContext(ctx).Scan(row.dest()...); err != nil {
		return nil, notFound(err)
	}
	o, err := row.model()
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) scan(iter *gocql.Iter) ([]models.Order, error) {
	var out []models.Order
	var row orderRow
	for iter.Scan(row.dest()...) {
		o, err := row.model()
		if err != nil {
			iter.Close()
			return nil, err
		}
		out = append(out, o)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *OrderRepository) All(ctx context.Context) ([]models.Order, error) {
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	return r.scan(session.Query(`SELECT ` + orderColumns + ` FROM orders`).WithContext(ctx).Iter())
}

// ListByUser retourne les commandes d'un utilisateur, les plus récentes d'abord
func (r *OrderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	session, err := r.session()
	if err != nil {
		return nil, err
	}

	var ids []gocql.UUID
	iter := session.Query(`SELECT order_id FROM orders_by_user WHERE user_id = ?`, cqlUUID(userID)).
		WithContext(ctx).Iter()
	var id gocql.UUID
	for iter.Scan(&id) {
		ids = append(ids, id)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	orders, err := r.scan(session.Query(`SELECT `+orderColumns+` FROM orders WHERE order_id IN ?`, ids).
		WithContext(ctx).Iter())
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Order, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
	}
	out := make([]models.Order, 0, len(orders))
	for _, id := range ids {
		if o, ok := byID[uuid.UUID(id)]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

// Update applique mutate sous condition de version ; statut, paiement et date de livraison sont réécrits
func (r *OrderRepository) Update(ctx context.Context, id uuid.UUID, mutate func(*models.Order) error) (*models.Order, error) {
	session, err := r.session()
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxCASRetries; attempt++ {
		o, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		expected := o.Version
		if err := mutate(o); err != nil {
			return nil, err
		}
		o.Version = expected + 1
		o.UpdatedAt = time.Now().UTC()

		applied, err := session.Query(`UPDATE orders SET status = ?, payment_intent_id = ?, version = ?,
			updated_at = ?, delivered_at = ? WHERE order_id = ? IF version = ?`,
			string(o.Status), o.PaymentIntentID, o.Version, o.UpdatedAt, optionalTime(o.DeliveredAt),
			cqlUUID(id), expected,
		).WithContext(ctx).MapScanCAS(map[string]interface{}{})
		if err != nil {
			return nil, err
		}
		if applied {
			return o, nil
		}
	}
	return nil, fmt.Errorf("order %s: %w", id, ErrConflict)
}

func (r *OrderRepository) Count(ctx context.Context) (int, error) {
	session, err := r.session()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := session.Query(`SELECT COUNT(*) FROM orders`).WithContext(ctx).Scan(&n); err != nil {
		return 0, err
	}
	return int(n), nil
}
