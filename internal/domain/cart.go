package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

type CartItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Cart is a user's line-item collection. Lines keep insertion order and a
// product appears at most once.
type Cart struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"ownerId"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// SetItem replaces the quantity of an existing line or appends a new one.
func (c *Cart) SetItem(productID string, quantity int) {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = quantity
			return
		}
	}
	c.Items = append(c.Items, CartItem{ProductID: productID, Quantity: quantity})
}

func (c *Cart) RemoveItem(productID string) {
	c.Items = slices.DeleteFunc(c.Items, func(item CartItem) bool {
		return item.ProductID == productID
	})
}

func (c *Cart) Clear() {
	c.Items = []CartItem{}
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

type CartLine struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Product   Product `json:"product"`
}

// CartSummary is a cart with live product data and a derived total. It is
// never persisted.
type CartSummary struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"ownerId"`
	Items     []CartLine      `json:"items"`
	CartTotal decimal.Decimal `json:"cartTotal"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
