package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusmart/shop/internal/domain"
)

func seedProduct(t *testing.T, s *Store, stock int) *domain.Product {
	t.Helper()
	p := &domain.Product{Name: "Mug", Image: "mug.png", Price: decimal.NewFromInt(5), Stock: stock}
	require.NoError(t, s.CreateProduct(context.Background(), p))
	return p
}

func TestStore_WithTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		s := New()
		p := seedProduct(t, s, 5)

		err := s.WithTransaction(ctx, func(ctx context.Context) error {
			return s.DecrementStock(ctx, p.ID, 2)
		})
		require.NoError(t, err)

		got, err := s.GetProduct(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, got.Stock)
	})

	t.Run("restores state on failure", func(t *testing.T) {
		s := New()
		p := seedProduct(t, s, 5)
		cart, err := s.GetOrCreateCart(ctx, "user-1")
		require.NoError(t, err)
		cart.SetItem(p.ID, 1)
		require.NoError(t, s.SaveCart(ctx, cart))

		boom := errors.New("boom")
		err = s.WithTransaction(ctx, func(ctx context.Context) error {
			if err := s.DecrementStock(ctx, p.ID, 2); err != nil {
				return err
			}
			if err := s.CreateOrder(ctx, &domain.Order{CustomerID: "user-1"}); err != nil {
				return err
			}
			cart.Clear()
			if err := s.SaveCart(ctx, cart); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		got, _ := s.GetProduct(ctx, p.ID)
		assert.Equal(t, 5, got.Stock)

		orders, _ := s.ListOrdersByCustomer(ctx, "user-1")
		assert.Empty(t, orders)

		storedCart, _ := s.GetCart(ctx, "user-1")
		assert.Len(t, storedCart.Items, 1)
	})
}

func TestStore_DecrementStock(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := seedProduct(t, s, 3)

	assert.ErrorIs(t, s.DecrementStock(ctx, p.ID, 4), domain.ErrInsufficientStock)
	assert.ErrorIs(t, s.DecrementStock(ctx, "missing", 1), domain.ErrInsufficientStock)
	require.NoError(t, s.DecrementStock(ctx, p.ID, 3))

	got, _ := s.GetProduct(ctx, p.ID)
	assert.Equal(t, 0, got.Stock)
}

func TestStore_Categories(t *testing.T) {
	ctx := context.Background()
	s := New()

	books := &domain.Category{Name: "Books"}
	require.NoError(t, s.CreateCategory(ctx, books))
	assert.ErrorIs(t, s.CreateCategory(ctx, &domain.Category{Name: "Books"}), domain.ErrDuplicateName)

	games := &domain.Category{Name: "Games"}
	require.NoError(t, s.CreateCategory(ctx, games))

	_, err := s.RenameCategory(ctx, games.ID, "Books", time.Now())
	assert.ErrorIs(t, err, domain.ErrDuplicateName)

	renamed, err := s.RenameCategory(ctx, games.ID, "Board games", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "Board games", renamed.Name)

	list, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Board games", list[0].Name)
}

func TestStore_ListOrdersByCustomer(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := seedProduct(t, s, 10)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := range 3 {
		require.NoError(t, s.CreateOrder(ctx, &domain.Order{
			CustomerID: "user-1",
			Address:    "addr",
			Items:      []domain.OrderItem{{ProductID: p.ID, Quantity: 1, Price: p.Price}},
			CreatedAt:  base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, s.CreateOrder(ctx, &domain.Order{CustomerID: "user-2", CreatedAt: base}))

	orders, err := s.ListOrdersByCustomer(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, base.Add(2*time.Hour), orders[0].CreatedAt)
	assert.Equal(t, base, orders[2].CreatedAt)
	assert.Equal(t, "Mug", orders[0].Items[0].Name)
	assert.Equal(t, "mug.png", orders[0].Items[0].Image)
}
