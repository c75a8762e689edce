package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	CategoryID  string          `json:"categoryId"`
	OwnerID     string          `json:"ownerId"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ProductPatch carries the fields of a partial product update. A nil field
// keeps the stored value.
type ProductPatch struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Image       *string          `json:"image"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	CategoryID  *string          `json:"categoryId"`
}

func (p ProductPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Image == nil &&
		p.Price == nil && p.Stock == nil && p.CategoryID == nil
}

// Apply merges the patch into the product in place.
func (p ProductPatch) Apply(product *Product) {
	if p.Name != nil {
		product.Name = *p.Name
	}
	if p.Description != nil {
		product.Description = *p.Description
	}
	if p.Image != nil {
		product.Image = *p.Image
	}
	if p.Price != nil {
		product.Price = *p.Price
	}
	if p.Stock != nil {
		product.Stock = *p.Stock
	}
	if p.CategoryID != nil {
		product.CategoryID = *p.CategoryID
	}
}
