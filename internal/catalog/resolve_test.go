package catalog_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusmart/shop/internal/catalog"
	"github.com/nexusmart/shop/internal/domain"
)

type slowGetter struct {
	mu       sync.Mutex
	products map[string]*domain.Product
	inFlight atomic.Int32
	peak     atomic.Int32
	err      error
}

func (g *slowGetter) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		peak := g.peak.Load()
		if n <= peak || g.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	if g.err != nil {
		return nil, g.err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.products[id], nil
}

func TestResolveProducts(t *testing.T) {
	t.Run("keeps order and marks missing products", func(t *testing.T) {
		getter := &slowGetter{products: map[string]*domain.Product{
			"a": {ID: "a"},
			"c": {ID: "c"},
		}}

		products, err := catalog.ResolveProducts(context.Background(), getter, []string{"a", "b", "c"})
		require.NoError(t, err)

		require.Len(t, products, 3)
		assert.Equal(t, "a", products[0].ID)
		assert.Nil(t, products[1])
		assert.Equal(t, "c", products[2].ID)
	})

	t.Run("limits concurrent lookups", func(t *testing.T) {
		getter := &slowGetter{products: map[string]*domain.Product{}}
		ids := make([]string, 40)
		for i := range ids {
			ids[i] = string(rune('a' + i))
		}

		_, err := catalog.ResolveProducts(context.Background(), getter, ids)
		require.NoError(t, err)
		assert.LessOrEqual(t, getter.peak.Load(), int32(8))
	})

	t.Run("returns lookup error", func(t *testing.T) {
		getter := &slowGetter{err: errors.New("connection refused")}

		_, err := catalog.ResolveProducts(context.Background(), getter, []string{"a", "b"})
		assert.EqualError(t, err, "connection refused")
	})
}
