package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nexusmart/shop/internal/domain"
)

func TestCart_SetItem(t *testing.T) {
	t.Run("appends new products in insertion order", func(t *testing.T) {
		cart := &domain.Cart{}
		cart.SetItem("p1", 2)
		cart.SetItem("p2", 1)

		assert.Equal(t, []domain.CartItem{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 1},
		}, cart.Items)
	})

	t.Run("replaces quantity of an existing line", func(t *testing.T) {
		cart := &domain.Cart{}
		cart.SetItem("p1", 2)
		cart.SetItem("p2", 1)
		cart.SetItem("p1", 5)

		assert.Equal(t, []domain.CartItem{
			{ProductID: "p1", Quantity: 5},
			{ProductID: "p2", Quantity: 1},
		}, cart.Items)
	})
}

func TestCart_RemoveItem(t *testing.T) {
	cart := &domain.Cart{Items: []domain.CartItem{
		{ProductID: "p1", Quantity: 1},
		{ProductID: "p2", Quantity: 3},
	}}

	cart.RemoveItem("p1")
	assert.Equal(t, []domain.CartItem{{ProductID: "p2", Quantity: 3}}, cart.Items)

	cart.RemoveItem("missing")
	assert.Len(t, cart.Items, 1)
}

func TestCart_Clear(t *testing.T) {
	cart := &domain.Cart{Items: []domain.CartItem{{ProductID: "p1", Quantity: 1}}}
	cart.Clear()

	assert.True(t, cart.IsEmpty())
	assert.NotNil(t, cart.Items)
}
