// Package orders turns a user's cart into an immutable order and keeps the
// order history.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/nexusmart/shop/internal/apperr"
	"github.com/nexusmart/shop/internal/catalog"
	"github.com/nexusmart/shop/internal/domain"
)

type Store interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrdersByCustomer(ctx context.Context, customerID string) ([]domain.Order, error)
}

type CartStore interface {
	GetCart(ctx context.Context, ownerID string) (*domain.Cart, error)
	SaveCart(ctx context.Context, cart *domain.Cart) error
}

type StockStore interface {
	catalog.ProductGetter
	// DecrementStock returns domain.ErrInsufficientStock when fewer than
	// quantity units remain.
	DecrementStock(ctx context.Context, productID string, quantity int) error
}

type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event domain.OrderPlacedEvent) error
}

type IdempotencyStore interface {
	Reserve(ctx context.Context, userID, key string) (string, error)
	Complete(ctx context.Context, userID, key, orderID string) error
	Release(ctx context.Context, userID, key string) error
}

type Option func(*Service)

func WithPublisher(p EventPublisher) Option {
	return func(s *Service) {
		s.events = p
	}
}

func WithIdempotency(store IdempotencyStore) Option {
	return func(s *Service) {
		s.keys = store
	}
}

type Service struct {
	orders   Store
	carts    CartStore
	products StockStore
	tx       TxManager
	events   EventPublisher
	keys     IdempotencyStore
	logger   *slog.Logger
	now      func() time.Time

	placed   metric.Int64Counter
	degraded metric.Int64Counter
}

func NewService(orders Store, carts CartStore, products StockStore, tx TxManager, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		orders:   orders,
		carts:    carts,
		products: products,
		tx:       tx,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}

	meter := otel.Meter("github.com/nexusmart/shop/internal/orders")
	var err error
	if s.placed, err = meter.Int64Counter("orders.placed",
		metric.WithDescription("Orders committed")); err != nil {
		logger.Warn("orders.placed counter unavailable", "error", err)
		s.placed = noop.Int64Counter{}
	}
	if s.degraded, err = meter.Int64Counter("orders.degraded",
		metric.WithDescription("Committed orders whose follow-up steps failed")); err != nil {
		logger.Warn("orders.degraded counter unavailable", "error", err)
		s.degraded = noop.Int64Counter{}
	}
	return s
}

type PlaceOrderRequest struct {
	CustomerID     string
	CustomerEmail  string
	Address        string
	IdempotencyKey string
}

// Placement is the outcome of a successful PlaceOrder. Warnings lists the
// follow-up steps that failed after the order was committed.
type Placement struct {
	Order    *domain.Order
	Replayed bool
	Warnings []apperr.Detail
}

// PlaceOrder converts the customer's cart into a PENDING order. Validation
// happens before anything is written; the order, the stock decrements and the
// cart reset commit together.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Placement, error) {
	address := strings.TrimSpace(req.Address)
	if address == "" {
		return nil, apperr.InvalidInput("shipping address is required",
			apperr.Detail{Field: "address", Message: "is required"})
	}

	reserved := false
	if s.keys != nil && req.IdempotencyKey != "" {
		orderID, err := s.keys.Reserve(ctx, req.CustomerID, req.IdempotencyKey)
		if errors.Is(err, domain.ErrRequestInFlight) {
			return nil, apperr.InvalidState("an order with this idempotency key is already being placed")
		}
		if err != nil {
			return nil, err
		}
		if orderID != "" {
			return s.replay(ctx, req.CustomerID, orderID)
		}
		reserved = true
	}

	order, err := s.place(ctx, req.CustomerID, address)
	if err != nil {
		if reserved {
			if rerr := s.keys.Release(context.WithoutCancel(ctx), req.CustomerID, req.IdempotencyKey); rerr != nil {
				s.logger.Error("failed to release idempotency key", "error", rerr, "customer_id", req.CustomerID)
			}
		}
		return nil, err
	}

	s.logger.Info("order placed", "order_id", order.ID, "customer_id", order.CustomerID, "total", order.Total.String())

	placement := &Placement{Order: order}
	ctx = context.WithoutCancel(ctx)

	if s.events != nil {
		if err := s.events.PublishOrderPlaced(ctx, domain.NewOrderPlacedEvent(order, req.CustomerEmail)); err != nil {
			s.logger.Error("failed to publish order placed event", "error", err, "order_id", order.ID)
			placement.Warnings = append(placement.Warnings, apperr.Detail{
				Field:   "notification",
				Message: "order confirmation could not be queued",
			})
		}
	}

	if reserved {
		if err := s.keys.Complete(ctx, req.CustomerID, req.IdempotencyKey, order.ID); err != nil {
			s.logger.Error("failed to record idempotency key", "error", err, "order_id", order.ID)
			placement.Warnings = append(placement.Warnings, apperr.Detail{
				Field:   "idempotencyKey",
				Message: "idempotency key could not be recorded",
			})
		}
	}

	s.placed.Add(ctx, 1)
	if len(placement.Warnings) > 0 {
		s.degraded.Add(ctx, 1)
	}
	return placement, nil
}

func (s *Service) replay(ctx context.Context, customerID, orderID string) (*Placement, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil || order.CustomerID != customerID {
		return nil, fmt.Errorf("idempotency key refers to unknown order %s", orderID)
	}

	s.logger.Info("order placement replayed", "order_id", order.ID, "customer_id", customerID)
	return &Placement{Order: order, Replayed: true}, nil
}

func (s *Service) place(ctx context.Context, customerID, address string) (*domain.Order, error) {
	cart, err := s.carts.GetCart(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if cart == nil || cart.IsEmpty() {
		return nil, apperr.InvalidState("cart is empty")
	}

	ids := make([]string, len(cart.Items))
	for i, line := range cart.Items {
		ids[i] = line.ProductID
	}
	products, err := catalog.ResolveProducts(ctx, s.products, ids)
	if err != nil {
		return nil, err
	}

	items := make([]domain.OrderItem, 0, len(cart.Items))
	names := make(map[string]string, len(cart.Items))
	total := decimal.Zero
	for i, line := range cart.Items {
		product := products[i]
		if product == nil {
			return nil, apperr.NotFound(fmt.Sprintf("product not found (ID: %s)", line.ProductID))
		}
		if product.Stock < line.Quantity {
			return nil, apperr.InvalidState(fmt.Sprintf("product '%s' is out of stock, available: %d", product.Name, product.Stock))
		}

		items = append(items, domain.OrderItem{
			ProductID: product.ID,
			Quantity:  line.Quantity,
			Price:     product.Price,
		})
		names[product.ID] = product.Name
		total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	now := s.now()
	order := &domain.Order{
		CustomerID: customerID,
		Items:      items,
		Total:      total,
		Address:    address,
		Status:     domain.OrderStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		// The cart is locked for the rest of the transaction. A concurrent
		// placement that already cleared it loses here.
		locked, err := s.carts.GetCart(ctx, customerID)
		if err != nil {
			return err
		}
		if locked == nil || locked.IsEmpty() {
			return apperr.InvalidState("cart is empty")
		}
		if !slices.Equal(locked.Items, cart.Items) {
			return apperr.InvalidState("cart changed while the order was being placed")
		}

		if err := s.orders.CreateOrder(ctx, order); err != nil {
			return err
		}

		for _, item := range order.Items {
			if err := s.products.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				if errors.Is(err, domain.ErrInsufficientStock) {
					return apperr.InvalidState(fmt.Sprintf("product '%s' is out of stock", names[item.ProductID]))
				}
				return err
			}
		}

		locked.Clear()
		return s.carts.SaveCart(ctx, locked)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrders returns the customer's orders, newest first.
func (s *Service) ListOrders(ctx context.Context, customerID string) ([]domain.Order, error) {
	return s.orders.ListOrdersByCustomer(ctx, customerID)
}
