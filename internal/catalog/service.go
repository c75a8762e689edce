package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nexusmart/shop/internal/apperr"
	"github.com/nexusmart/shop/internal/domain"
)

const priceScale = 2

type ProductStore interface {
	CreateProduct(ctx context.Context, p *domain.Product) error
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch, updatedAt time.Time) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) (bool, error)
	CountProductsByCategory(ctx context.Context, categoryID string) (int, error)
}

type CategoryStore interface {
	CreateCategory(ctx context.Context, c *domain.Category) error
	GetCategory(ctx context.Context, id string) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	RenameCategory(ctx context.Context, id, name string, updatedAt time.Time) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id string) (bool, error)
}

type Service struct {
	products   ProductStore
	categories CategoryStore
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(products ProductStore, categories CategoryStore, logger *slog.Logger) *Service {
	return &Service{
		products:   products,
		categories: categories,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type NewProduct struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Image       string           `json:"image"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	CategoryID  string           `json:"categoryId"`
}

func (s *Service) CreateProduct(ctx context.Context, ownerID string, in NewProduct) (*domain.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Image = strings.TrimSpace(in.Image)

	var missing []apperr.Detail
	for field, empty := range map[string]bool{
		"name":        in.Name == "",
		"description": in.Description == "",
		"image":       in.Image == "",
		"price":       in.Price == nil,
		"stock":       in.Stock == nil,
		"categoryId":  in.CategoryID == "",
	} {
		if empty {
			missing = append(missing, apperr.Detail{Field: field, Message: "is required"})
		}
	}
	if len(missing) > 0 {
		sortDetails(missing)
		return nil, apperr.InvalidInput("all fields (name, description, image, price, stock, categoryId) are required", missing...)
	}

	price := in.Price.Round(priceScale)
	details := validateValues(&price, in.Stock, &in.CategoryID)
	if len(details) > 0 {
		return nil, apperr.InvalidInput("invalid product fields", details...)
	}

	if err := s.requireCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	now := s.now()
	product := &domain.Product{
		Name:        in.Name,
		Description: in.Description,
		Image:       in.Image,
		Price:       price,
		Stock:       *in.Stock,
		CategoryID:  in.CategoryID,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.products.CreateProduct(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("product created", "product_id", product.ID, "owner_id", ownerID)
	return product, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if !domain.ValidID(id) {
		return nil, apperr.InvalidInput("invalid product ID")
	}
	product, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, apperr.NotFound("product not found")
	}
	return product, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.products.ListProducts(ctx)
}

func (s *Service) UpdateProduct(ctx context.Context, userID, id string, patch domain.ProductPatch) (*domain.Product, error) {
	product, err := s.ownedProduct(ctx, userID, id, "update")
	if err != nil {
		return nil, err
	}

	if patch.IsEmpty() {
		return nil, apperr.InvalidInput("no fields to update")
	}

	var details []apperr.Detail
	for field, value := range map[string]*string{
		"name":        patch.Name,
		"description": patch.Description,
		"image":       patch.Image,
	} {
		if value == nil {
			continue
		}
		*value = strings.TrimSpace(*value)
		if *value == "" {
			details = append(details, apperr.Detail{Field: field, Message: "must not be empty"})
		}
	}
	if patch.Price != nil {
		rounded := patch.Price.Round(priceScale)
		patch.Price = &rounded
	}
	details = append(details, validateValues(patch.Price, patch.Stock, patch.CategoryID)...)
	if len(details) > 0 {
		sortDetails(details)
		return nil, apperr.InvalidInput("invalid product fields", details...)
	}

	if patch.CategoryID != nil && *patch.CategoryID != product.CategoryID {
		if err := s.requireCategory(ctx, *patch.CategoryID); err != nil {
			return nil, err
		}
	}

	updated, err := s.products.UpdateProduct(ctx, id, patch, s.now())
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperr.NotFound("product not found")
	}

	s.logger.Info("product updated", "product_id", id)
	return updated, nil
}

func (s *Service) DeleteProduct(ctx context.Context, userID, id string) error {
	if _, err := s.ownedProduct(ctx, userID, id, "delete"); err != nil {
		return err
	}

	deleted, err := s.products.DeleteProduct(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return apperr.NotFound("product not found")
	}

	s.logger.Info("product deleted", "product_id", id)
	return nil
}

func (s *Service) ownedProduct(ctx context.Context, userID, id, action string) (*domain.Product, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.OwnerID != userID {
		return nil, apperr.Forbidden(fmt.Sprintf("you are not authorized to %s this product", action))
	}
	return product, nil
}

func (s *Service) requireCategory(ctx context.Context, id string) error {
	category, err := s.categories.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	if category == nil {
		return apperr.NotFound("category not found")
	}
	return nil
}

func validateValues(price *decimal.Decimal, stock *int, categoryID *string) []apperr.Detail {
	var details []apperr.Detail
	if price != nil && price.IsNegative() {
		details = append(details, apperr.Detail{Field: "price", Message: "price cannot be negative"})
	}
	if stock != nil && *stock < 0 {
		details = append(details, apperr.Detail{Field: "stock", Message: "stock cannot be negative"})
	}
	if categoryID != nil && !domain.ValidID(*categoryID) {
		details = append(details, apperr.Detail{Field: "categoryId", Message: "must be a valid id"})
	}
	return details
}

func sortDetails(details []apperr.Detail) {
	slices.SortFunc(details, func(a, b apperr.Detail) int {
		return strings.Compare(a.Field, b.Field)
	})
}

func (s *Service) CreateCategory(ctx context.Context, ownerID, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.InvalidInput("category name is required")
	}

	now := s.now()
	category := &domain.Category{Name: name, OwnerID: ownerID, CreatedAt: now, UpdatedAt: now}
	if err := s.categories.CreateCategory(ctx, category); err != nil {
		if errors.Is(err, domain.ErrDuplicateName) {
			return nil, apperr.InvalidState("category with this name already exists")
		}
		return nil, err
	}

	s.logger.Info("category created", "category_id", category.ID)
	return category, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.categories.ListCategories(ctx)
}

func (s *Service) RenameCategory(ctx context.Context, id, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.InvalidInput("category name is required")
	}
	if !domain.ValidID(id) {
		return nil, apperr.InvalidInput("invalid category ID")
	}

	category, err := s.categories.RenameCategory(ctx, id, name, s.now())
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateName) {
			return nil, apperr.InvalidState("category with this name already exists")
		}
		return nil, err
	}
	if category == nil {
		return nil, apperr.NotFound("category not found")
	}

	s.logger.Info("category updated", "category_id", id)
	return category, nil
}

// DeleteCategory refuses to remove a category that products still reference.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if !domain.ValidID(id) {
		return apperr.InvalidInput("invalid category ID")
	}
	if err := s.requireCategory(ctx, id); err != nil {
		return err
	}

	n, err := s.products.CountProductsByCategory(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.InvalidState(fmt.Sprintf("category is used by %d products", n))
	}

	deleted, err := s.categories.DeleteCategory(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return apperr.NotFound("category not found")
	}

	s.logger.Info("category deleted", "category_id", id)
	return nil
}
