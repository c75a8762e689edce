package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/nexusmart/shop/internal/apperr"
	"github.com/nexusmart/shop/internal/auth"
	"github.com/nexusmart/shop/internal/cart"
	"github.com/nexusmart/shop/internal/catalog"
	"github.com/nexusmart/shop/internal/orders"
	"github.com/nexusmart/shop/internal/respond"
	"github.com/nexusmart/shop/internal/telemetry"
)

type handlers struct {
	catalog *catalog.Handler
	cart    *cart.Handler
	orders  *orders.Handler
}

func newHandlers(st *stores, logger *slog.Logger, opts ...orders.Option) handlers {
	catalogService := catalog.NewService(st.products, st.categories, logger)
	cartService := cart.NewService(st.carts, st.stock, st.tx, logger)
	orderService := orders.NewService(st.orders, st.carts, st.stock, st.tx, logger, opts...)

	return handlers{
		catalog: catalog.NewHandler(catalogService, logger),
		cart:    cart.NewHandler(cartService, logger),
		orders:  orders.NewHandler(orderService, logger),
	}
}

func newMux(h handlers, verifier *auth.Verifier, ping func(ctx context.Context) error, logger *slog.Logger) *http.ServeMux {
	public := telemetry.WithHTTPRoute
	private := func(fn http.HandlerFunc) http.HandlerFunc {
		return telemetry.WithHTTPRoute(verifier.Require(fn))
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/products", public(h.catalog.HandleListProducts))
	mux.HandleFunc("GET /api/v1/products/{productId}", public(h.catalog.HandleGetProduct))
	mux.HandleFunc("POST /api/v1/products", private(h.catalog.HandleCreateProduct))
	mux.HandleFunc("PATCH /api/v1/products/{productId}", private(h.catalog.HandleUpdateProduct))
	mux.HandleFunc("DELETE /api/v1/products/{productId}", private(h.catalog.HandleDeleteProduct))

	mux.HandleFunc("GET /api/v1/categories", public(h.catalog.HandleListCategories))
	mux.HandleFunc("POST /api/v1/categories", private(h.catalog.HandleCreateCategory))
	mux.HandleFunc("PATCH /api/v1/categories/{categoryId}", private(h.catalog.HandleUpdateCategory))
	mux.HandleFunc("DELETE /api/v1/categories/{categoryId}", private(h.catalog.HandleDeleteCategory))

	mux.HandleFunc("POST /api/v1/cart", private(h.cart.HandleAddItem))
	mux.HandleFunc("GET /api/v1/cart", private(h.cart.HandleGetCart))
	mux.HandleFunc("DELETE /api/v1/cart/item/{productId}", private(h.cart.HandleRemoveItem))
	mux.HandleFunc("DELETE /api/v1/cart", private(h.cart.HandleClear))

	mux.HandleFunc("POST /api/v1/orders", private(h.orders.HandlePlaceOrder))
	mux.HandleFunc("GET /api/v1/orders", private(h.orders.HandleListOrders))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := ping(ctx); err != nil {
			respond.Error(w, logger, apperr.Internal("database unavailable", err))
			return
		}
		respond.JSON(w, logger, http.StatusOK, map[string]string{"status": "ok"}, "OK")
	})

	return mux
}
