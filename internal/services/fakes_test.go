package services

import (
	"context"
	"errors"
	"sync"

	"shop_back_end/internal/events"
	"shop_back_end/internal/models"
	"shop_back_end/internal/payment"
	"shop_back_end/internal/query"
	"shop_back_end/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type fakeProducts struct {
	mu    sync.Mutex
	items map[uuid.UUID]models.Product
}

func newFakeProducts(products ...models.Product) *fakeProducts {
	f := &fakeProducts{items: map[uuid.UUID]models.Product{}}
	for _, p := range products {
		f.items[p.ID] = p
	}
	return f
}

func (f *fakeProducts) Create(_ context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.Version = 1
	f.items[p.ID] = *p
	return nil
}

func (f *fakeProducts) Get(_ context.Context, id uuid.UUID) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (f *fakeProducts) GetMany(_ context.Context, ids []uuid.UUID) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Product
	for _, id := range ids {
		if p, ok := f.items[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProducts) All(context.Context) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Product, 0, len(f.items))
	for _, p := range f.items {
		out = append(out, p)
	}
	return out, nil
}

// Update est atomique : équivalent d'une LWT qui réussit du premier coup
func (f *fakeProducts) Update(_ context.Context, id uuid.UUID, mutate func(*models.Product) error) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if err := mutate(&p); err != nil {
		return nil, err
	}
	p.Version++
	f.items[id] = p
	return &p, nil
}

func (f *fakeProducts) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeProducts) Count(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items), nil
}

func (f *fakeProducts) stock(id uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id].Stock
}

type fakeOrders struct {
	mu        sync.Mutex
	items     map[uuid.UUID]models.Order
	createErr error
}

func newFakeOrders(orders ...models.Order) *fakeOrders {
	f := &fakeOrders{items: map[uuid.UUID]models.Order{}}
	for _, o := range orders {
		f.items[o.ID] = o
	}
	return f
}

func (f *fakeOrders) Create(_ context.Context, o *models.Order) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	o.Version = 1
	f.items[o.ID] = *o
	return nil
}

func (f *fakeOrders) Get(_ context.Context, id uuid.UUID) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &o, nil
}

func (f *fakeOrders) All(context.Context) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Order, 0, len(f.items))
	for _, o := range f.items {
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeOrders) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Order
	for _, o := range f.items {
		if o.OwnedBy(userID) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrders) Update(_ context.Context, id uuid.UUID, mutate func(*models.Order) error) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	items := append([]models.OrderItem(nil), o.Items...)
	o.Items = items
	if err := mutate(&o); err != nil {
		return nil, err
	}
	o.Version++
	f.items[id] = o
	return &o, nil
}

func (f *fakeOrders) Count(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items), nil
}

func (f *fakeOrders) len() int {
	n, _ := f.Count(context.Background())
	return n
}

type fakeUsers struct {
	mu    sync.Mutex
	items map[uuid.UUID]models.User
}

func newFakeUsers(users ...models.User) *fakeUsers {
	f := &fakeUsers{items: map[uuid.UUID]models.User{}}
	for _, u := range users {
		f.items[u.ID] = u
	}
	return f
}

func (f *fakeUsers) emailTaken(email string, except uuid.UUID) bool {
	for _, u := range f.items {
		if u.Email == email && u.ID != except {
			return true
		}
	}
	return false
}

func (f *fakeUsers) Create(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.emailTaken(u.Email, u.ID) {
		return repository.ErrDuplicate
	}
	f.items[u.ID] = *u
	return nil
}

func (f *fakeUsers) Get(_ context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.items {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) All(context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.User, 0, len(f.items))
	for _, u := range f.items {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUsers) Update(_ context.Context, id uuid.UUID, mutate func(*models.User) error) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if err := mutate(&u); err != nil {
		return nil, err
	}
	if f.emailTaken(u.Email, id) {
		return nil, repository.ErrDuplicate
	}
	f.items[id] = u
	return &u, nil
}

func (f *fakeUsers) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeUsers) Count(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items), nil
}

type reviewKey struct{ product, user uuid.UUID }

type fakeReviews struct {
	mu    sync.Mutex
	items map[reviewKey]models.Review
}

func newFakeReviews() *fakeReviews {
	return &fakeReviews{items: map[reviewKey]models.Review{}}
}

func (f *fakeReviews) Create(_ context.Context, rv *models.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := reviewKey{rv.ProductID, rv.UserID}
	if _, ok := f.items[k]; ok {
		return repository.ErrDuplicate
	}
	f.items[k] = *rv
	return nil
}

func (f *fakeReviews) GetByProductUser(_ context.Context, productID, userID uuid.UUID) (*models.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rv, ok := f.items[reviewKey{productID, userID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rv, nil
}

func (f *fakeReviews) GetByID(_ context.Context, id uuid.UUID) (*models.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rv := range f.items {
		if rv.ID == id {
			return &rv, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeReviews) ListByProduct(_ context.Context, productID uuid.UUID) ([]models.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Review
	for k, rv := range f.items {
		if k.product == productID {
			out = append(out, rv)
		}
	}
	return out, nil
}

func (f *fakeReviews) All(context.Context) ([]models.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Review, 0, len(f.items))
	for _, rv := range f.items {
		out = append(out, rv)
	}
	return out, nil
}

func (f *fakeReviews) Update(_ context.Context, rv *models.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := reviewKey{rv.ProductID, rv.UserID}
	if _, ok := f.items[k]; !ok {
		return repository.ErrNotFound
	}
	f.items[k] = *rv
	return nil
}

func (f *fakeReviews) Delete(_ context.Context, rv *models.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, reviewKey{rv.ProductID, rv.UserID})
	return nil
}

func (f *fakeReviews) DeleteByProduct(_ context.Context, productID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k := range f.items {
		if k.product == productID {
			delete(f.items, k)
		}
	}
	return nil
}

// fakeIndex renvoie tous les produits connus, éventuellement obsolètes
type fakeIndex struct {
	mu      sync.Mutex
	ids     []uuid.UUID
	err     error
	indexed int
}

func (f *fakeIndex) Index(_ context.Context, p models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed++
	return nil
}

func (f *fakeIndex) Delete(context.Context, uuid.UUID) error { return nil }

func (f *fakeIndex) Search(context.Context, query.ProductQuery) ([]uuid.UUID, int, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.ids, len(f.ids), nil
}

type fakePayments struct {
	mu        sync.Mutex
	created   []decimal.Decimal
	cancelled []string
}

func (f *fakePayments) CreateIntent(_ context.Context, amount decimal.Decimal, _ map[string]string) (*payment.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, amount)
	return &payment.Intent{ID: "pi_test", ClientSecret: "pi_test_secret"}, nil
}

func (f *fakePayments) CancelIntent(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, id)
	return nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	placed  int
	changed int
}

func (f *fakeNotifier) OrderPlaced(models.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placed++
}

func (f *fakeNotifier) StatusChanged(models.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changed++
}

type fakeEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (f *fakeEvents) Publish(_ context.Context, e events.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

type fakeSessions struct {
	disabled map[string]bool
}

func (f *fakeSessions) DisableUser(_ context.Context, id string) error {
	f.disabled[id] = true
	return nil
}

func (f *fakeSessions) EnableUser(_ context.Context, id string) error {
	delete(f.disabled, id)
	return nil
}

var errBoom = errors.New("boom")
