package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/nexusmart/shop/internal/domain"
	"github.com/nexusmart/shop/internal/postgres"
)

const orderColumns = `id, customer_id, address, status, total, payment_id, created_at, updated_at`

type OrderRepository struct {
	db *sql.DB
	tx *postgres.TxManager
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db, tx: postgres.NewTxManager(db)}
}

// CreateOrder writes the order and its lines. It joins the caller's
// transaction when there is one.
func (r *OrderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	const op = "orders.OrderRepository.CreateOrder"

	order.ID = uuid.New().String()
	err := r.tx.WithTransaction(ctx, func(ctx context.Context) error {
		q, _ := postgres.Conn(ctx, r.db)

		_, err := q.ExecContext(ctx, `
			INSERT INTO orders (`+orderColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, order.ID, order.CustomerID, order.Address, order.Status, order.Total,
			sql.NullString{String: order.PaymentID, Valid: order.PaymentID != ""},
			order.CreatedAt, order.UpdatedAt)
		if err != nil {
			return err
		}

		for i, item := range order.Items {
			_, err = q.ExecContext(ctx, `
				INSERT INTO order_items (id, order_id, position, product_id, quantity, price)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, uuid.New().String(), order.ID, i, item.ProductID, item.Quantity, item.Price)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		order.ID = ""
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func scanOrder(row interface{ Scan(dest ...any) error }) (*domain.Order, error) {
	var (
		order     domain.Order
		paymentID sql.NullString
	)
	err := row.Scan(&order.ID, &order.CustomerID, &order.Address, &order.Status, &order.Total,
		&paymentID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}
	order.PaymentID = paymentID.String
	order.Items = []domain.OrderItem{}
	return &order, nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	const op = "orders.OrderRepository.GetOrder"
	q, _ := postgres.Conn(ctx, r.db)

	order, err := scanOrder(q.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := r.loadItems(ctx, q, map[string]*domain.Order{order.ID: order}, []string{order.ID}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return order, nil
}

// ListOrdersByCustomer returns the customer's orders newest first. Items are
// loaded with one query for all orders.
func (r *OrderRepository) ListOrdersByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	const op = "orders.OrderRepository.ListOrdersByCustomer"
	q, _ := postgres.Conn(ctx, r.db)

	rows, err := q.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC, id
	`, customerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[string]*domain.Order)
	var orderIDs []string
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		orderMap[order.ID] = order
		orderIDs = append(orderIDs, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	if err := r.loadItems(ctx, q, orderMap, orderIDs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	orders := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[id])
	}
	return orders, nil
}

// loadItems attaches lines to the orders, with the product name and image
// left empty for products that have since been deleted.
func (r *OrderRepository) loadItems(ctx context.Context, q postgres.Querier, orderMap map[string]*domain.Order, orderIDs []string) error {
	rows, err := q.QueryContext(ctx, `
		SELECT oi.order_id, oi.product_id, oi.quantity, oi.price,
			COALESCE(p.name, ''), COALESCE(p.image, '')
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1::uuid[])
		ORDER BY oi.order_id, oi.position
	`, pq.Array(orderIDs))
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			orderID string
			item    domain.OrderItem
		)
		if err := rows.Scan(&orderID, &item.ProductID, &item.Quantity, &item.Price, &item.Name, &item.Image); err != nil {
			return err
		}
		order := orderMap[orderID]
		order.Items = append(order.Items, item)
	}
	return rows.Err()
}
