package cart

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nexusmart/shop/internal/domain"
	"github.com/nexusmart/shop/internal/postgres"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetCart(ctx context.Context, ownerID string) (*domain.Cart, error) {
	const op = "cart.Repository.GetCart"
	q, inTx := postgres.Conn(ctx, r.db)

	query := `
		SELECT id, owner_id, items, created_at, updated_at
		FROM carts
		WHERE owner_id = $1`
	if inTx {
		query += ` FOR UPDATE`
	}

	var (
		c     domain.Cart
		items []byte
	)
	err := q.QueryRowContext(ctx, query, ownerID).Scan(&c.ID, &c.OwnerID, &items, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := json.Unmarshal(items, &c.Items); err != nil {
		return nil, fmt.Errorf("%s: decode items: %w", op, err)
	}
	if c.Items == nil {
		c.Items = []domain.CartItem{}
	}
	return &c, nil
}

// GetOrCreateCart inserts an empty cart for ownerID unless one exists, then
// reads it back.
func (r *Repository) GetOrCreateCart(ctx context.Context, ownerID string) (*domain.Cart, error) {
	const op = "cart.Repository.GetOrCreateCart"
	q, _ := postgres.Conn(ctx, r.db)

	now := time.Now().UTC()
	_, err := q.ExecContext(ctx, `
		INSERT INTO carts (id, owner_id, items, created_at, updated_at)
		VALUES ($1, $2, '[]'::jsonb, $3, $3)
		ON CONFLICT (owner_id) DO NOTHING
	`, uuid.New().String(), ownerID, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c, err := r.GetCart(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("%s: cart for %s vanished after insert", op, ownerID)
	}
	return c, nil
}

func (r *Repository) SaveCart(ctx context.Context, cart *domain.Cart) error {
	const op = "cart.Repository.SaveCart"
	q, _ := postgres.Conn(ctx, r.db)

	items := cart.Items
	if items == nil {
		items = []domain.CartItem{}
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("%s: encode items: %w", op, err)
	}

	updatedAt := time.Now().UTC()
	result, err := q.ExecContext(ctx, `
		UPDATE carts SET items = $2::jsonb, updated_at = $3
		WHERE id = $1
	`, cart.ID, string(encoded), updatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: cart %s does not exist", op, cart.ID)
	}

	cart.UpdatedAt = updatedAt
	return nil
}
