package main

import (
	"context"
	"encoding/json"
	"errors"
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
	"github.com/nexusmart/shop/internal/memstore"
)

const testSecret = "api-secret"

type envelope struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
}

func testServer(t *testing.T, ping func(context.Context) error) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := memoryStores(memstore.New())
	if ping != nil {
		st.ping = ping
	}
	mux := newMux(newHandlers(st, logger), auth.NewVerifier(testSecret, logger), st.ping, logger)
	return http.MaxBytesHandler(mux, 16<<10)
}

func call(t *testing.T, h http.Handler, method, path, userID, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{UserID: userID}).SignedString([]byte(testSecret))
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: "accessToken", Value: signed})
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func dataID(t *testing.T, env envelope) string {
	t.Helper()
	var v struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &v))
	require.NotEmpty(t, v.ID)
	return v.ID
}

func TestAPI_CheckoutFlow(t *testing.T) {
	h := testServer(t, nil)

	code, env := call(t, h, http.MethodPost, "/api/v1/categories", "seller", `{"name":"Books"}`)
	require.Equal(t, http.StatusCreated, code)
	categoryID := dataID(t, env)

	code, env = call(t, h, http.MethodPost, "/api/v1/products", "seller",
		`{"name":"Go book","description":"Learn Go","image":"https://img/go.png","price":"12.50","stock":3,"categoryId":"`+categoryID+`"}`)
	require.Equal(t, http.StatusCreated, code)
	productID := dataID(t, env)

	code, _ = call(t, h, http.MethodPost, "/api/v1/cart", "buyer", `{"productId":"`+productID+`","quantity":2}`)
	require.Equal(t, http.StatusOK, code)

	code, env = call(t, h, http.MethodPost, "/api/v1/orders", "buyer", `{"address":"1 Main St"}`)
	require.Equal(t, http.StatusCreated, code)
	assert.True(t, env.Success)

	var order struct {
		Total string `json:"orderPrice"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.Equal(t, "25", order.Total)

	code, env = call(t, h, http.MethodGet, "/api/v1/products/"+productID, "", "")
	require.Equal(t, http.StatusOK, code)
	var product struct {
		Stock int `json:"stock"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &product))
	assert.Equal(t, 1, product.Stock)

	code, env = call(t, h, http.MethodGet, "/api/v1/orders", "buyer", "")
	require.Equal(t, http.StatusOK, code)
	var history []json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &history))
	assert.Len(t, history, 1)
}

func TestAPI_Auth(t *testing.T) {
	h := testServer(t, nil)

	code, env := call(t, h, http.MethodGet, "/api/v1/cart", "", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "unauthorized request", env.Message)

	code, _ = call(t, h, http.MethodGet, "/api/v1/categories", "", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestAPI_Healthz(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		code, env := call(t, testServer(t, nil), http.MethodGet, "/healthz", "", "")
		assert.Equal(t, http.StatusOK, code)
		assert.True(t, env.Success)
	})

	t.Run("database down", func(t *testing.T) {
		down := func(context.Context) error { return errors.New("connection refused") }
		code, env := call(t, testServer(t, down), http.MethodGet, "/healthz", "", "")
		assert.Equal(t, http.StatusInternalServerError, code)
		assert.False(t, env.Success)
	})
}
