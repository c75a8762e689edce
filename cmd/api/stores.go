package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nexusmart/shop/config"
	"github.com/nexusmart/shop/internal/cart"
	"github.com/nexusmart/shop/internal/catalog"
	"github.com/nexusmart/shop/internal/memstore"
	"github.com/nexusmart/shop/internal/orders"
	"github.com/nexusmart/shop/internal/postgres"
	"github.com/nexusmart/shop/internal/telemetry"
)

type txManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// stores is the storage backend selected by database.driver.
type stores struct {
	products   catalog.ProductStore
	categories catalog.CategoryStore
	stock      orders.StockStore
	carts      cart.Store
	orders     orders.Store
	tx         txManager
	ping       func(ctx context.Context) error
	close      func() error
}

func openStores(ctx context.Context, cfg config.Database, logger *slog.Logger) (*stores, error) {
	switch cfg.Driver {
	case "memory":
		logger.Warn("using in-memory storage, data is lost on restart")
		return memoryStores(memstore.New()), nil
	case "postgres":
		if cfg.URL == "" {
			return nil, fmt.Errorf("database.url is required for the postgres driver")
		}
		db, err := telemetry.OpenDB(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		products := catalog.NewRepository(db)
		return &stores{
			products:   products,
			categories: products,
			stock:      products,
			carts:      cart.NewRepository(db),
			orders:     orders.NewOrderRepository(db),
			tx:         postgres.NewTxManager(db),
			ping:       db.PingContext,
			close:      db.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func memoryStores(mem *memstore.Store) *stores {
	return &stores{
		products:   mem,
		categories: mem,
		stock:      mem,
		carts:      mem,
		orders:     mem,
		tx:         mem,
		ping:       func(context.Context) error { return nil },
		close:      func() error { return nil },
	}
}
