package catalog

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/nexusmart/shop/internal/domain"
)

const maxConcurrentLookups = 8

type ProductGetter interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

// ResolveProducts fetches the products for ids with at most eight lookups in
// flight. The result is index-aligned with ids; a nil entry is a product that
// does not exist.
func ResolveProducts(ctx context.Context, getter ProductGetter, ids []string) ([]*domain.Product, error) {
	products := make([]*domain.Product, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)
	for i, id := range ids {
		g.Go(func() error {
			p, err := getter.GetProduct(ctx, id)
			if err != nil {
				return err
			}
			products[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return products, nil
}
