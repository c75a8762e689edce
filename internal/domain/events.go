package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderPlacedEvent struct {
	OrderID       string          `json:"orderId"`
	CustomerID    string          `json:"customerId"`
	CustomerEmail string          `json:"customerEmail,omitempty"`
	Items         []OrderItem     `json:"items"`
	Total         decimal.Decimal `json:"orderPrice"`
	Address       string          `json:"address"`
	Timestamp     time.Time       `json:"timestamp"`
}

func NewOrderPlacedEvent(order *Order, customerEmail string) OrderPlacedEvent {
	return OrderPlacedEvent{
		OrderID:       order.ID,
		CustomerID:    order.CustomerID,
		CustomerEmail: customerEmail,
		Items:         order.Items,
		Total:         order.Total,
		Address:       order.Address,
		Timestamp:     order.CreatedAt,
	}
}
