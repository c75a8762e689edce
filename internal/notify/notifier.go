// Package notify sends order confirmations for order.placed events.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/nexusmart/shop/internal/domain"
	"github.com/nexusmart/shop/internal/messaging"
)

const (
	defaultMaxTries        = 5
	defaultInitialInterval = 200 * time.Millisecond
)

type Notifier struct {
	emailServiceURL string
	httpClient      *http.Client
	logger          *slog.Logger
	maxTries        uint
	initialInterval time.Duration
}

type Option func(*Notifier)

// WithRetry overrides how often and how soon a failed email is retried.
func WithRetry(maxTries uint, initialInterval time.Duration) Option {
	return func(n *Notifier) {
		n.maxTries = maxTries
		n.initialInterval = initialInterval
	}
}

func NewNotifier(emailServiceURL string, client *http.Client, logger *slog.Logger, opts ...Option) *Notifier {
	n := &Notifier{
		emailServiceURL: emailServiceURL,
		httpClient:      client,
		logger:          logger,
		maxTries:        defaultMaxTries,
		initialInterval: defaultInitialInterval,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

type email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Handle sends the confirmation for one event. Events that can never be
// delivered are logged and acknowledged; only context cancellation is
// returned so the message stays uncommitted.
func (n *Notifier) Handle(ctx context.Context, msg messaging.Message) error {
	if msg.EventType != "" && msg.EventType != messaging.EventOrderPlaced {
		n.logger.Debug("ignoring event", "event_type", msg.EventType, "key", msg.Key)
		return nil
	}

	var event domain.OrderPlacedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		n.logger.Error("dropping undecodable order placed event", "error", err, "key", msg.Key)
		return nil
	}

	if event.CustomerEmail == "" {
		n.logger.Warn("order has no customer email, skipping confirmation", "order_id", event.OrderID, "customer_id", event.CustomerID)
		return nil
	}

	n.logger.Info("processing order placed event", "order_id", event.OrderID, "customer_id", event.CustomerID)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = n.initialInterval

	attempts := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		return struct{}{}, n.sendEmail(ctx, confirmation(event))
	}, backoff.WithBackOff(b), backoff.WithMaxTries(n.maxTries))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		n.logger.Error("giving up on order confirmation", "error", err, "order_id", event.OrderID, "attempts", attempts)
		return nil
	}

	n.logger.Info("order confirmation sent", "order_id", event.OrderID, "attempts", attempts)
	return nil
}

func confirmation(event domain.OrderPlacedEvent) email {
	units := 0
	for _, item := range event.Items {
		units += item.Quantity
	}
	return email{
		To:      event.CustomerEmail,
		Subject: "Order Confirmation: " + event.OrderID,
		Body: fmt.Sprintf("Your order %s for %d items totalling %s has been placed and will ship to %s.",
			event.OrderID, units, event.Total.StringFixed(2), event.Address),
	}
}

// sendEmail marks client errors other than 429 as permanent.
func (n *Notifier) sendEmail(ctx context.Context, body email) error {
	data, err := json.Marshal(body)
	if err != nil {
		return backoff.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.emailServiceURL+"/send", bytes.NewReader(data))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return backoff.Permanent(err)
		}
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	default:
		return backoff.Permanent(fmt.Errorf("email service rejected message with status %d", resp.StatusCode))
	}
}
