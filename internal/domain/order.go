package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// OrderItem holds the price captured when the order was placed. Name and
// Image are filled in for display when orders are listed.
type OrderItem struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Name      string          `json:"name,omitempty"`
	Image     string          `json:"image,omitempty"`
}

type Order struct {
	ID         string          `json:"id"`
	CustomerID string          `json:"customerId"`
	Items      []OrderItem     `json:"orderItems"`
	Total      decimal.Decimal `json:"orderPrice"`
	Address    string          `json:"address"`
	Status     OrderStatus     `json:"status"`
	PaymentID  string          `json:"paymentId,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// ItemsTotal sums price * quantity over the order lines.
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}
