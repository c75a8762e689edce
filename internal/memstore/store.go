// Package memstore keeps catalog, cart and order records in memory. It backs
// the "memory" database driver and the service tests.
package memstore

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nexusmart/shop/internal/domain"
)

type txKey struct{}

type Store struct {
	mu         sync.RWMutex
	products   map[string]domain.Product
	categories map[string]domain.Category
	carts      map[string]domain.Cart
	orders     []domain.Order
}

func New() *Store {
	return &Store{
		products:   make(map[string]domain.Product),
		categories: make(map[string]domain.Category),
		carts:      make(map[string]domain.Cart),
	}
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

func (s *Store) rlock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// WithTransaction serializes fn against every other store access and restores
// the previous state if fn fails.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

type state struct {
	products   map[string]domain.Product
	categories map[string]domain.Category
	carts      map[string]domain.Cart
	orders     []domain.Order
}

func (s *Store) snapshot() state {
	carts := make(map[string]domain.Cart, len(s.carts))
	for k, c := range s.carts {
		carts[k] = copyCart(c)
	}
	orders := make([]domain.Order, len(s.orders))
	for i, o := range s.orders {
		orders[i] = copyOrder(o)
	}
	return state{
		products:   maps.Clone(s.products),
		categories: maps.Clone(s.categories),
		carts:      carts,
		orders:     orders,
	}
}

func (s *Store) restore(st state) {
	s.products = st.products
	s.categories = st.categories
	s.carts = st.carts
	s.orders = st.orders
}

func copyCart(c domain.Cart) domain.Cart {
	c.Items = slices.Clone(c.Items)
	if c.Items == nil {
		c.Items = []domain.CartItem{}
	}
	return c
}

func copyOrder(o domain.Order) domain.Order {
	o.Items = slices.Clone(o.Items)
	return o
}

func (s *Store) CreateProduct(ctx context.Context, p *domain.Product) error {
	defer s.lock(ctx)()

	p.ID = uuid.New().String()
	s.products[p.ID] = *p
	return nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	defer s.rlock(ctx)()

	p, ok := s.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	defer s.rlock(ctx)()

	products := slices.Collect(maps.Values(s.products))
	sort.Slice(products, func(i, j int) bool {
		if products[i].CreatedAt.Equal(products[j].CreatedAt) {
			return products[i].ID < products[j].ID
		}
		return products[i].CreatedAt.After(products[j].CreatedAt)
	})
	return products, nil
}

func (s *Store) UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch, updatedAt time.Time) (*domain.Product, error) {
	defer s.lock(ctx)()

	p, ok := s.products[id]
	if !ok {
		return nil, nil
	}
	patch.Apply(&p)
	p.UpdatedAt = updatedAt
	s.products[id] = p
	return &p, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) (bool, error) {
	defer s.lock(ctx)()

	if _, ok := s.products[id]; !ok {
		return false, nil
	}
	delete(s.products, id)
	return true, nil
}

func (s *Store) CountProductsByCategory(ctx context.Context, categoryID string) (int, error) {
	defer s.rlock(ctx)()

	n := 0
	for _, p := range s.products {
		if p.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

// DecrementStock lowers stock only when enough units remain.
func (s *Store) DecrementStock(ctx context.Context, productID string, quantity int) error {
	defer s.lock(ctx)()

	p, ok := s.products[productID]
	if !ok || p.Stock < quantity {
		return domain.ErrInsufficientStock
	}
	p.Stock -= quantity
	s.products[productID] = p
	return nil
}

func (s *Store) CreateCategory(ctx context.Context, c *domain.Category) error {
	defer s.lock(ctx)()

	if s.nameTaken(c.Name, "") {
		return domain.ErrDuplicateName
	}
	c.ID = uuid.New().String()
	s.categories[c.ID] = *c
	return nil
}

func (s *Store) nameTaken(name, exceptID string) bool {
	for _, c := range s.categories {
		if c.ID != exceptID && c.Name == name {
			return true
		}
	}
	return false
}

func (s *Store) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	defer s.rlock(ctx)()

	c, ok := s.categories[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	defer s.rlock(ctx)()

	categories := slices.Collect(maps.Values(s.categories))
	sort.Slice(categories, func(i, j int) bool {
		return strings.Compare(categories[i].Name, categories[j].Name) < 0
	})
	return categories, nil
}

func (s *Store) RenameCategory(ctx context.Context, id, name string, updatedAt time.Time) (*domain.Category, error) {
	defer s.lock(ctx)()

	c, ok := s.categories[id]
	if !ok {
		return nil, nil
	}
	if s.nameTaken(name, id) {
		return nil, domain.ErrDuplicateName
	}
	c.Name = name
	c.UpdatedAt = updatedAt
	s.categories[id] = c
	return &c, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id string) (bool, error) {
	defer s.lock(ctx)()

	if _, ok := s.categories[id]; !ok {
		return false, nil
	}
	delete(s.categories, id)
	return true, nil
}

func (s *Store) GetCart(ctx context.Context, ownerID string) (*domain.Cart, error) {
	defer s.rlock(ctx)()

	c, ok := s.carts[ownerID]
	if !ok {
		return nil, nil
	}
	c = copyCart(c)
	return &c, nil
}

func (s *Store) GetOrCreateCart(ctx context.Context, ownerID string) (*domain.Cart, error) {
	defer s.lock(ctx)()

	c, ok := s.carts[ownerID]
	if !ok {
		now := time.Now().UTC()
		c = domain.Cart{
			ID:        uuid.New().String(),
			OwnerID:   ownerID,
			Items:     []domain.CartItem{},
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.carts[ownerID] = c
	}
	c = copyCart(c)
	return &c, nil
}

func (s *Store) SaveCart(ctx context.Context, cart *domain.Cart) error {
	defer s.lock(ctx)()

	cart.UpdatedAt = time.Now().UTC()
	s.carts[cart.OwnerID] = copyCart(*cart)
	return nil
}

func (s *Store) CreateOrder(ctx context.Context, o *domain.Order) error {
	defer s.lock(ctx)()

	o.ID = uuid.New().String()
	s.orders = append(s.orders, copyOrder(*o))
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	defer s.rlock(ctx)()

	for _, o := range s.orders {
		if o.ID == id {
			o = s.withProductDetails(copyOrder(o))
			return &o, nil
		}
	}
	return nil, nil
}

// ListOrdersByCustomer returns the customer's orders newest first.
func (s *Store) ListOrdersByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	defer s.rlock(ctx)()

	orders := []domain.Order{}
	for i := len(s.orders) - 1; i >= 0; i-- {
		if s.orders[i].CustomerID == customerID {
			orders = append(orders, s.withProductDetails(copyOrder(s.orders[i])))
		}
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func (s *Store) withProductDetails(o domain.Order) domain.Order {
	for i := range o.Items {
		if p, ok := s.products[o.Items[i].ProductID]; ok {
			o.Items[i].Name = p.Name
			o.Items[i].Image = p.Image
		}
	}
	return o
}
