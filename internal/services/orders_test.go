package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"shop_back_end/internal/apperr"
	"shop_back_end/internal/auth"
	"shop_back_end/internal/config"
	"shop_back_end/internal/events"
	"shop_back_end/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testShop = config.ShopConfig{
	FreeShippingAbove: decimal.NewFromInt(200),
	ShippingFee:       decimal.NewFromInt(15),
}

var testCustomer = models.CustomerInfo{Name: "Ada", Phone: "+33600000000", Address: "1 rue de la Paix"}

type orderFixture struct {
	products *fakeProducts
	orders   *fakeOrders
	payments *fakePayments
	notifier *fakeNotifier
	events   *fakeEvents
	svc      *OrderService
}

func newOrderFixture(withPayments bool, products ...models.Product) *orderFixture {
	f := &orderFixture{
		products: newFakeProducts(products...),
		orders:   newFakeOrders(),
		notifier: &fakeNotifier{},
		events:   &fakeEvents{},
	}
	deps := OrderDeps{
		Orders:   f.orders,
		Stock:    NewCatalogService(f.products, newFakeReviews(), nil, nil),
		Notifier: f.notifier,
		Events:   f.events,
	}
	if withPayments {
		f.payments = &fakePayments{}
		deps.Payments = f.payments
	}
	f.svc = NewOrderService(deps, testShop)
	return f
}

func TestCreateOrderWithoutItemsPersistsNothing(t *testing.T) {
	f := newOrderFixture(false)
	_, err := f.svc.Create(context.Background(), nil, OrderInput{Customer: testCustomer})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Zero(t, f.orders.len())
	assert.Empty(t, f.events.events)
}

func TestCreateOrderValidatesInput(t *testing.T) {
	p := product("Linen shirt", "40", 5)
	f := newOrderFixture(false, p)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, nil, OrderInput{Items: []OrderItemInput{{ProductID: p.ID, Quantity: 0}}, Customer: testCustomer})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = f.svc.Create(ctx, nil, OrderInput{Items: []OrderItemInput{{ProductID: p.ID, Quantity: 1}}})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = f.svc.Create(ctx, nil, OrderInput{
		Items: []OrderItemInput{{ProductID: p.ID, Quantity: 1}}, Customer: testCustomer, PaymentMethod: "bitcoin",
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = f.svc.Create(ctx, nil, OrderInput{
		Items: []OrderItemInput{{ProductID: p.ID, Quantity: 1}}, Customer: testCustomer, PaymentMethod: "card",
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), "card without gateway")

	assert.Zero(t, f.orders.len())
	assert.Equal(t, 5, f.products.stock(p.ID))
}

func TestCreateGuestOrderSnapshotsCatalogPrices(t *testing.T) {
	shirt := product("Linen shirt", "22.74", 5)
	f := newOrderFixture(false, shirt)

	placed, err := f.svc.Create(context.Background(), nil, OrderInput{
		Items:    []OrderItemInput{{ProductID: shirt.ID, Quantity: 2}},
		Customer: testCustomer,
	})
	require.NoError(t, err)

	o := placed.Order
	assert.Nil(t, o.UserID)
	assert.Equal(t, models.OrderPending, o.Status)
	assert.Equal(t, models.PaymentCashOnDelivery, o.PaymentMethod)
	assert.Equal(t, "Linen shirt", o.Items[0].Name)
	assert.Equal(t, "45.48", o.Subtotal.StringFixed(2))
	assert.Equal(t, "15.00", o.Shipping.StringFixed(2))
	assert.Equal(t, "60.48", o.Total.StringFixed(2))
	assert.Equal(t, 3, f.products.stock(shirt.ID))
	assert.Equal(t, 1, f.orders.len())

	require.Len(t, f.events.events, 1)
	assert.Equal(t, events.TypeOrderCreated, f.events.events[0].Type)
	assert.Equal(t, 1, f.notifier.placed)
}

func TestFreeShippingAboveThreshold(t *testing.T) {
	coat := product("Wool coat", "201", 1)
	f := newOrderFixture(false, coat)
	placed, err := f.svc.Create(context.Background(), nil, OrderInput{
		Items: []OrderItemInput{{ProductID: coat.ID, Quantity: 1}}, Customer: testCustomer,
	})
	require.NoError(t, err)
	assert.True(t, placed.Order.Shipping.IsZero())
	assert.Equal(t, "201.00", placed.Order.Total.StringFixed(2))
}

func TestAuthenticatedOrderUsesPrincipalEmail(t *testing.T) {
	shirt := product("Linen shirt", "40", 5)
	f := newOrderFixture(false, shirt)
	user := &auth.Principal{UserID: uuid.New(), Email: "ada@example.com", Role: models.RoleUser}

	placed, err := f.svc.Create(context.Background(), user, OrderInput{
		Items: []OrderItemInput{{ProductID: shirt.ID, Quantity: 1}}, Customer: testCustomer,
	})
	require.NoError(t, err)
	require.NotNil(t, placed.Order.UserID)
	assert.Equal(t, user.UserID, *placed.Order.UserID)
	assert.Equal(t, "ada@example.com", placed.Order.Customer.Email)
}

func TestCreateOrderReleasesStockWhenALineFails(t *testing.T) {
	shirt := product("Linen shirt", "40", 5)
	coat := product("Wool coat", "120", 1)
	f := newOrderFixture(false, shirt, coat)

	_, err := f.svc.Create(context.Background(), nil, OrderInput{
		Items: []OrderItemInput{
			{ProductID: shirt.ID, Quantity: 2},
			{ProductID: coat.ID, Quantity: 3},
		},
		Customer: testCustomer,
	})
	require.Error(t, err)
	assert.Equal(t, "Insufficient stock for Wool coat", apperr.Message(err))
	assert.Equal(t, 5, f.products.stock(shirt.ID))
	assert.Equal(t, 1, f.products.stock(coat.ID))
	assert.Zero(t, f.orders.len())
}

func TestCreateOrderReleasesStockWhenPersistFails(t *testing.T) {
	shirt := product("Linen shirt", "40", 5)
	f := newOrderFixture(true, shirt)
	f.orders.createErr = errBoom

	_, err := f.svc.Create(context.Background(), nil, OrderInput{
		Items: []OrderItemInput{{ProductID: shirt.ID, Quantity: 2}}, Customer: testCustomer, PaymentMethod: "card",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Equal(t, 5, f.products.stock(shirt.ID))
	assert.Equal(t, []string{"pi_test"}, f.payments.cancelled)
}

func TestCardOrderReturnsClientSecret(t *testing.T) {
	shirt := product("Linen shirt", "40", 5)
	f := newOrderFixture(true, shirt)

	placed, err := f.svc.Create(context.Background(), nil, OrderInput{
		Items: []OrderItemInput{{ProductID: shirt.ID, Quantity: 1}}, Customer: testCustomer, PaymentMethod: "CARD",
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_test_secret", placed.ClientSecret)
	assert.Equal(t, "pi_test", placed.Order.PaymentIntentID)
	require.Len(t, f.payments.created, 1)
	assert.True(t, f.payments.created[0].Equal(placed.Order.Total))
}

func placeOrder(t *testing.T, f *orderFixture, items ...OrderItemInput) *models.Order {
	t.Helper()
	placed, err := f.svc.Create(context.Background(), nil, OrderInput{Items: items, Customer: testCustomer})
	require.NoError(t, err)
	return placed.Order
}

func TestCancelRestoresExactQuantitiesOnce(t *testing.T) {
	shirt := product("Linen shirt", "40", 10)
	coat := product("Wool coat", "120", 4)
	f := newOrderFixture(false, shirt, coat)
	o := placeOrder(t, f, OrderItemInput{ProductID: shirt.ID, Quantity: 3}, OrderItemInput{ProductID: coat.ID, Quantity: 2})
	require.Equal(t, 7, f.products.stock(shirt.ID))
	require.Equal(t, 2, f.products.stock(coat.ID))

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.UpdateStatus(context.Background(), o.ID, "CANCELLED"); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 10, f.products.stock(shirt.ID))
	assert.Equal(t, 4, f.products.stock(coat.ID))
}

func TestCancelCancelsPaymentIntent(t *testing.T) {
	shirt := product("Linen shirt", "40", 10)
	f := newOrderFixture(true, shirt)
	placed, err := f.svc.Create(context.Background(), nil, OrderInput{
		Items: []OrderItemInput{{ProductID: shirt.ID, Quantity: 1}}, Customer: testCustomer, PaymentMethod: "card",
	})
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(context.Background(), placed.Order.ID, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, []string{"pi_test"}, f.payments.cancelled)
}

// flakyStock refuse tout appel sur un contexte annulé et échoue les
// premières restaurations par conflit de version
type flakyStock struct {
	StockAdjuster
	mu       sync.Mutex
	failures int
	calls    int
}

func (f *flakyStock) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.calls++
	fail := delta > 0 && f.failures > 0
	if fail {
		f.failures--
	}
	f.mu.Unlock()
	if fail {
		return nil, apperr.Conflict("Resource was modified concurrently, please retry")
	}
	return f.StockAdjuster.AdjustStock(ctx, id, delta)
}

func withFastRestore(t *testing.T) {
	t.Helper()
	previous := restoreBackoff
	restoreBackoff = time.Millisecond
	t.Cleanup(func() { restoreBackoff = previous })
}

func TestCancelRestoresStockAfterClientDisconnect(t *testing.T) {
	withFastRestore(t)
	shirt := product("Linen shirt", "40", 10)
	products := newFakeProducts(shirt)
	stock := &flakyStock{StockAdjuster: NewCatalogService(products, newFakeReviews(), nil, nil), failures: 2}
	orders := newFakeOrders()
	svc := NewOrderService(OrderDeps{Orders: orders, Stock: stock}, testShop)

	placed, err := svc.Create(context.Background(), nil, OrderInput{
		Items: []OrderItemInput{{ProductID: shirt.ID, Quantity: 3}}, Customer: testCustomer,
	})
	require.NoError(t, err)
	require.Equal(t, 7, products.stock(shirt.ID))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o, err := svc.UpdateStatus(ctx, placed.Order.ID, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, o.Status)
	assert.Equal(t, 10, products.stock(shirt.ID))
}

func TestCancelReportsUnrestoredStock(t *testing.T) {
	withFastRestore(t)
	shirt := product("Linen shirt", "40", 10)
	products := newFakeProducts(shirt)
	stock := &flakyStock{StockAdjuster: NewCatalogService(products, newFakeReviews(), nil, nil), failures: restoreAttempts}
	svc := NewOrderService(OrderDeps{Orders: newFakeOrders(), Stock: stock}, testShop)

	placed, err := svc.Create(context.Background(), nil, OrderInput{
		Items: []OrderItemInput{{ProductID: shirt.ID, Quantity: 3}}, Customer: testCustomer,
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), placed.Order.ID, "cancelled")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Equal(t, 7, products.stock(shirt.ID))
}

func TestStatusTransitions(t *testing.T) {
	shirt := product("Linen shirt", "40", 10)
	f := newOrderFixture(false, shirt)
	o := placeOrder(t, f, OrderItemInput{ProductID: shirt.ID, Quantity: 1})
	ctx := context.Background()

	_, err := f.svc.UpdateStatus(ctx, o.ID, "pending")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), "same state")

	_, err = f.svc.UpdateStatus(ctx, o.ID, "unknown")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	for _, next := range []string{"processing", "SHIPPED"} {
		_, err = f.svc.UpdateStatus(ctx, o.ID, next)
		require.NoError(t, err, next)
	}
	_, err = f.svc.UpdateStatus(ctx, o.ID, "processing")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), "backwards")

	delivered, err := f.svc.UpdateStatus(ctx, o.ID, "delivered")
	require.NoError(t, err)
	require.NotNil(t, delivered.DeliveredAt)
	assert.WithinDuration(t, time.Now(), *delivered.DeliveredAt, time.Minute)

	_, err = f.svc.UpdateStatus(ctx, o.ID, "cancelled")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), "terminal")
	assert.Equal(t, 9, f.products.stock(shirt.ID))

	_, err = f.svc.UpdateStatus(ctx, uuid.New(), "processing")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, 3, f.notifier.changed)
}

func TestGetEnforcesOwnership(t *testing.T) {
	shirt := product("Linen shirt", "40", 10)
	f := newOrderFixture(false, shirt)
	owner := &auth.Principal{UserID: uuid.New(), Role: models.RoleUser}
	placed, err := f.svc.Create(context.Background(), owner, OrderInput{
		Items: []OrderItemInput{{ProductID: shirt.ID, Quantity: 1}}, Customer: testCustomer,
	})
	require.NoError(t, err)
	id := placed.Order.ID

	_, err = f.svc.Get(context.Background(), id, owner)
	assert.NoError(t, err)
	_, err = f.svc.Get(context.Background(), id, &auth.Principal{UserID: uuid.New(), Role: models.RoleAdmin})
	assert.NoError(t, err)
	_, err = f.svc.Get(context.Background(), id, &auth.Principal{UserID: uuid.New(), Role: models.RoleUser})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestListForUserFiltersAndPaginates(t *testing.T) {
	shirt := product("Linen shirt", "40", 50)
	f := newOrderFixture(false, shirt)
	user := &auth.Principal{UserID: uuid.New(), Role: models.RoleUser}
	for i := 0; i < 3; i++ {
		_, err := f.svc.Create(context.Background(), user, OrderInput{
			Items: []OrderItemInput{{ProductID: shirt.ID, Quantity: 1}}, Customer: testCustomer,
		})
		require.NoError(t, err)
	}
	placeOrder(t, f, OrderItemInput{ProductID: shirt.ID, Quantity: 1})

	list, err := f.svc.ListForUser(context.Background(), user.UserID, "", 1, 2)
	require.NoError(t, err)
	assert.Len(t, list.Orders, 2)
	assert.Equal(t, 3, list.Pagination.Total)
	assert.Equal(t, 2, list.Pagination.Pages)

	list, err = f.svc.ListForUser(context.Background(), user.UserID, "delivered", 1, 10)
	require.NoError(t, err)
	assert.Empty(t, list.Orders)
}

func TestAdminListStatistics(t *testing.T) {
	shirt := product("Linen shirt", "100", 50)
	f := newOrderFixture(false, shirt)
	a := placeOrder(t, f, OrderItemInput{ProductID: shirt.ID, Quantity: 1}) // 115
	placeOrder(t, f, OrderItemInput{ProductID: shirt.ID, Quantity: 3})      // 300
	_, err := f.svc.UpdateStatus(context.Background(), a.ID, "cancelled")
	require.NoError(t, err)

	list, err := f.svc.AdminList(context.Background(), OrderFilter{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, "300.00", list.Statistics.TotalRevenue.StringFixed(2))
	assert.Equal(t, 1, list.Statistics.OrderStats[models.OrderCancelled])
	assert.Equal(t, 1, list.Statistics.OrderStats[models.OrderPending])
	assert.Len(t, list.Orders, 2)

	list, err = f.svc.AdminList(context.Background(), OrderFilter{Status: "PENDING", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, list.Orders, 1)

	list, err = f.svc.AdminList(context.Background(), OrderFilter{Search: a.ID.String()[:8], Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, a.ID, list.Orders[0].ID)
}
