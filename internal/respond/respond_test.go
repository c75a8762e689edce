package respond

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusmart/shop/internal/apperr"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestJSON(t *testing.T) {
	t.Run("writes success envelope", func(t *testing.T) {
		rec := httptest.NewRecorder()
		JSON(rec, discardLogger(), http.StatusCreated, map[string]string{"id": "1"}, "Created")

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		env := decodeEnvelope(t, rec)
		assert.True(t, env.Success)
		assert.Equal(t, http.StatusCreated, env.StatusCode)
		assert.Equal(t, "Created", env.Message)
		assert.Equal(t, map[string]any{"id": "1"}, env.Data)
		assert.Empty(t, env.Errors)
	})

	t.Run("carries degraded details", func(t *testing.T) {
		rec := httptest.NewRecorder()
		JSON(rec, discardLogger(), http.StatusCreated, nil, "Created",
			apperr.Detail{Field: "event", Message: "not published"})

		env := decodeEnvelope(t, rec)
		assert.True(t, env.Success)
		require.Len(t, env.Errors, 1)
		assert.Equal(t, "not published", env.Errors[0].Message)
	})
}

func TestError(t *testing.T) {
	t.Run("maps app errors to status", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Error(rec, discardLogger(), apperr.InvalidInput("bad", apperr.Detail{Field: "name", Message: "required"}))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		env := decodeEnvelope(t, rec)
		assert.False(t, env.Success)
		assert.Nil(t, env.Data)
		assert.Equal(t, "bad", env.Message)
		assert.Equal(t, []apperr.Detail{{Field: "name", Message: "required"}}, env.Errors)
	})

	t.Run("hides internal errors", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Error(rec, discardLogger(), errors.New("pq: connection refused"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		env := decodeEnvelope(t, rec)
		assert.Equal(t, "internal server error", env.Message)
	})
}

func TestDecode(t *testing.T) {
	type body struct {
		Name string `json:"name"`
	}

	t.Run("decodes valid json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
		var b body
		require.NoError(t, Decode(req, &b))
		assert.Equal(t, "x", b.Name)
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
		var b body
		err := Decode(req, &b)
		assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
	})

	t.Run("rejects oversized body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"`+strings.Repeat("a", 64)+`"}`))
		req.Body = http.MaxBytesReader(rec, req.Body, 16)

		var b body
		err := Decode(req, &b)

		var appErr *apperr.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "request body too large", appErr.Message)
	})
}
