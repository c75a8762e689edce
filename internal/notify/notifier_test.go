package notify_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusmart/shop/internal/domain"
	"github.com/nexusmart/shop/internal/messaging"
	"github.com/nexusmart/shop/internal/notify"
)

type emailServer struct {
	*httptest.Server
	calls    atomic.Int32
	statuses []int
	last     atomic.Value
}

func newEmailServer(t *testing.T, statuses ...int) *emailServer {
	t.Helper()
	s := &emailServer{statuses: statuses}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(s.calls.Add(1))
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		s.last.Store(body)

		status := http.StatusOK
		if n <= len(s.statuses) {
			status = s.statuses[n-1]
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(s.Close)
	return s
}

func newNotifier(url string) *notify.Notifier {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return notify.NewNotifier(url, http.DefaultClient, logger, notify.WithRetry(4, time.Millisecond))
}

func orderPlaced(t *testing.T, email string) messaging.Message {
	t.Helper()
	payload, err := json.Marshal(domain.OrderPlacedEvent{
		OrderID:       "order-1",
		CustomerID:    "customer-1",
		CustomerEmail: email,
		Items:         []domain.OrderItem{{ProductID: "p", Quantity: 2, Price: decimal.NewFromInt(10)}},
		Total:         decimal.NewFromInt(20),
		Address:       "X",
	})
	require.NoError(t, err)
	return messaging.Message{Key: "order-1", EventType: messaging.EventOrderPlaced, Payload: payload}
}

func TestNotifier_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("sends confirmation", func(t *testing.T) {
		server := newEmailServer(t)

		require.NoError(t, newNotifier(server.URL).Handle(ctx, orderPlaced(t, "c1@example.com")))

		assert.Equal(t, int32(1), server.calls.Load())
		body := server.last.Load().(map[string]string)
		assert.Equal(t, "c1@example.com", body["to"])
		assert.Equal(t, "Order Confirmation: order-1", body["subject"])
		assert.Contains(t, body["body"], "20.00")
	})

	t.Run("retries transient failures", func(t *testing.T) {
		server := newEmailServer(t, http.StatusServiceUnavailable, http.StatusTooManyRequests)

		require.NoError(t, newNotifier(server.URL).Handle(ctx, orderPlaced(t, "c1@example.com")))
		assert.Equal(t, int32(3), server.calls.Load())
	})

	t.Run("gives up after max tries", func(t *testing.T) {
		server := newEmailServer(t, 500, 500, 500, 500, 500, 500)

		require.NoError(t, newNotifier(server.URL).Handle(ctx, orderPlaced(t, "c1@example.com")))
		assert.Equal(t, int32(4), server.calls.Load())
	})

	t.Run("does not retry rejected messages", func(t *testing.T) {
		server := newEmailServer(t, http.StatusBadRequest)

		require.NoError(t, newNotifier(server.URL).Handle(ctx, orderPlaced(t, "c1@example.com")))
		assert.Equal(t, int32(1), server.calls.Load())
	})

	t.Run("skips events without email", func(t *testing.T) {
		server := newEmailServer(t)

		require.NoError(t, newNotifier(server.URL).Handle(ctx, orderPlaced(t, "")))
		assert.Zero(t, server.calls.Load())
	})

	t.Run("acknowledges undecodable payload", func(t *testing.T) {
		server := newEmailServer(t)

		err := newNotifier(server.URL).Handle(ctx, messaging.Message{EventType: messaging.EventOrderPlaced, Payload: []byte("{")})
		require.NoError(t, err)
		assert.Zero(t, server.calls.Load())
	})

	t.Run("ignores other event types", func(t *testing.T) {
		server := newEmailServer(t)
		msg := orderPlaced(t, "c1@example.com")
		msg.EventType = "order.cancelled"

		require.NoError(t, newNotifier(server.URL).Handle(ctx, msg))
		assert.Zero(t, server.calls.Load())
	})

	t.Run("returns context cancellation", func(t *testing.T) {
		server := newEmailServer(t, 500, 500, 500, 500)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		err := newNotifier(server.URL).Handle(cancelled, orderPlaced(t, "c1@example.com"))
		assert.ErrorIs(t, err, context.Canceled)
	})
}
