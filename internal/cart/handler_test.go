package cart_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusmart/shop/internal/auth"
	"github.com/nexusmart/shop/internal/cart"
)

const secret = "cart-secret"

func newMux(t *testing.T, svc *cart.Service) *http.ServeMux {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := cart.NewHandler(svc, logger)
	verifier := auth.NewVerifier(secret, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/cart", verifier.Require(handler.HandleAddItem))
	mux.HandleFunc("GET /api/v1/cart", verifier.Require(handler.HandleGetCart))
	mux.HandleFunc("DELETE /api/v1/cart/item/{productId}", verifier.Require(handler.HandleRemoveItem))
	mux.HandleFunc("DELETE /api/v1/cart", verifier.Require(handler.HandleClear))
	return mux
}

type envelope struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
}

func do(t *testing.T, mux http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{UserID: userID}).SignedString([]byte(secret))
	require.NoError(t, err)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: token})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestHandler_Cart(t *testing.T) {
	svc, store := newService(t)
	mux := newMux(t, svc)
	product := seedProduct(t, store, "Mug", "8.50", 10)

	t.Run("clear without cart is not found", func(t *testing.T) {
		rec, env := do(t, mux, http.MethodDelete, "/api/v1/cart", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "cart not found", env.Message)
	})

	t.Run("add defaults quantity to one", func(t *testing.T) {
		rec, env := do(t, mux, http.MethodPost, "/api/v1/cart", `{"productId":"`+product.ID+`"}`)
		require.Equal(t, http.StatusOK, rec.Code, env.Message)
		assert.Equal(t, "Item added to cart", env.Message)

		var c struct {
			Items []struct {
				ProductID string `json:"productId"`
				Quantity  int    `json:"quantity"`
			} `json:"items"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &c))
		require.Len(t, c.Items, 1)
		assert.Equal(t, 1, c.Items[0].Quantity)
	})

	t.Run("add above stock conflicts", func(t *testing.T) {
		rec, env := do(t, mux, http.MethodPost, "/api/v1/cart", `{"productId":"`+product.ID+`","quantity":11}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.False(t, env.Success)
	})

	t.Run("get returns summary with total", func(t *testing.T) {
		rec, env := do(t, mux, http.MethodGet, "/api/v1/cart", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var summary struct {
			CartTotal string `json:"cartTotal"`
			Items     []struct {
				Product struct {
					Name string `json:"name"`
				} `json:"product"`
			} `json:"items"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &summary))
		assert.Equal(t, "8.5", summary.CartTotal)
		require.Len(t, summary.Items, 1)
		assert.Equal(t, "Mug", summary.Items[0].Product.Name)
	})

	t.Run("remove item", func(t *testing.T) {
		rec, env := do(t, mux, http.MethodDelete, "/api/v1/cart/item/"+product.ID, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Item removed from cart", env.Message)
	})

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
