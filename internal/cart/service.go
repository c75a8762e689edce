// Package cart owns the per-user shopping cart: adding, replacing and
// removing lines, and the priced summary shown to the user.
package cart

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nexusmart/shop/internal/apperr"
	"github.com/nexusmart/shop/internal/catalog"
	"github.com/nexusmart/shop/internal/domain"
)

type Store interface {
	// GetCart returns nil when the user has no cart. Inside a transaction the
	// cart stays locked until commit.
	GetCart(ctx context.Context, ownerID string) (*domain.Cart, error)
	GetOrCreateCart(ctx context.Context, ownerID string) (*domain.Cart, error)
	SaveCart(ctx context.Context, cart *domain.Cart) error
}

type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	carts    Store
	products catalog.ProductGetter
	tx       TxManager
	logger   *slog.Logger
}

func NewService(carts Store, products catalog.ProductGetter, tx TxManager, logger *slog.Logger) *Service {
	return &Service{
		carts:    carts,
		products: products,
		tx:       tx,
		logger:   logger,
	}
}

// AddItem sets the quantity of productID in the user's cart, replacing any
// quantity already there.
func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, apperr.InvalidInput("product ID is required",
			apperr.Detail{Field: "productId", Message: "is required"})
	}
	if !domain.ValidID(productID) {
		return nil, apperr.InvalidInput("invalid product ID",
			apperr.Detail{Field: "productId", Message: "must be a valid id"})
	}
	if quantity < 1 {
		return nil, apperr.InvalidInput("quantity must be at least 1",
			apperr.Detail{Field: "quantity", Message: "must be at least 1"})
	}

	var cart *domain.Cart
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		product, err := s.products.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if product == nil {
			return apperr.NotFound("product not found")
		}
		if product.Stock < quantity {
			return apperr.InvalidState(fmt.Sprintf("product '%s' is out of stock, available: %d", product.Name, product.Stock))
		}

		cart, err = s.carts.GetOrCreateCart(ctx, userID)
		if err != nil {
			return err
		}
		cart.SetItem(productID, quantity)
		return s.carts.SaveCart(ctx, cart)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("cart item set", "user_id", userID, "product_id", productID, "quantity", quantity)
	return cart, nil
}

// GetCart returns the user's cart priced with live product data. Lines whose
// product no longer exists are left out of the summary.
func (s *Service) GetCart(ctx context.Context, userID string) (*domain.CartSummary, error) {
	cart, err := s.carts.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(cart.Items))
	for i, item := range cart.Items {
		ids[i] = item.ProductID
	}
	products, err := catalog.ResolveProducts(ctx, s.products, ids)
	if err != nil {
		return nil, err
	}

	summary := &domain.CartSummary{
		ID:        cart.ID,
		OwnerID:   cart.OwnerID,
		Items:     make([]domain.CartLine, 0, len(cart.Items)),
		CartTotal: decimal.Zero,
		CreatedAt: cart.CreatedAt,
		UpdatedAt: cart.UpdatedAt,
	}
	for i, item := range cart.Items {
		product := products[i]
		if product == nil {
			s.logger.Warn("dropping cart line for missing product", "cart_id", cart.ID, "product_id", item.ProductID)
			continue
		}
		summary.Items = append(summary.Items, domain.CartLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Product:   *product,
		})
		summary.CartTotal = summary.CartTotal.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return summary, nil
}

// RemoveItem drops productID from the user's cart. Removing a product that is
// not in the cart is not an error.
func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (*domain.Cart, error) {
	cart, err := s.mutate(ctx, userID, func(c *domain.Cart) {
		c.RemoveItem(productID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("cart item removed", "user_id", userID, "product_id", productID)
	return cart, nil
}

func (s *Service) Clear(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.mutate(ctx, userID, (*domain.Cart).Clear)
	if err != nil {
		return nil, err
	}

	s.logger.Info("cart cleared", "user_id", userID)
	return cart, nil
}

func (s *Service) mutate(ctx context.Context, userID string, change func(*domain.Cart)) (*domain.Cart, error) {
	var cart *domain.Cart
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		cart, err = s.carts.GetCart(ctx, userID)
		if err != nil {
			return err
		}
		if cart == nil {
			return apperr.NotFound("cart not found")
		}
		change(cart)
		return s.carts.SaveCart(ctx, cart)
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}
