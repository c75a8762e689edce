package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nexusmart/shop/internal/domain"
	"github.com/nexusmart/shop/internal/postgres"
)

const productColumns = `id, name, description, image, price, stock, category_id, owner_id, created_at, updated_at`

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Image, &p.Price, &p.Stock,
		&p.CategoryID, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) CreateProduct(ctx context.Context, p *domain.Product) error {
	const op = "catalog.Repository.CreateProduct"
	q, _ := postgres.Conn(ctx, r.db)

	p.ID = uuid.New().String()
	_, err := q.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, p.ID, p.Name, p.Description, p.Image, p.Price, p.Stock, p.CategoryID, p.OwnerID, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *Repository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	const op = "catalog.Repository.GetProduct"
	q, _ := postgres.Conn(ctx, r.db)

	p, err := scanProduct(q.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func (r *Repository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	const op = "catalog.Repository.ListProducts"
	q, _ := postgres.Conn(ctx, r.db)

	rows, err := q.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return products, nil
}

// UpdateProduct merges the patch in a single statement. It returns nil when
// the product does not exist.
func (r *Repository) UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch, updatedAt time.Time) (*domain.Product, error) {
	const op = "catalog.Repository.UpdateProduct"
	q, _ := postgres.Conn(ctx, r.db)

	p, err := scanProduct(q.QueryRowContext(ctx, `
		UPDATE products SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			image = COALESCE($4, image),
			price = COALESCE($5, price),
			stock = COALESCE($6, stock),
			category_id = COALESCE($7, category_id),
			updated_at = $8
		WHERE id = $1
		RETURNING `+productColumns,
		id, patch.Name, patch.Description, patch.Image, patch.Price, patch.Stock, patch.CategoryID, updatedAt))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func (r *Repository) DeleteProduct(ctx context.Context, id string) (bool, error) {
	const op = "catalog.Repository.DeleteProduct"
	q, _ := postgres.Conn(ctx, r.db)

	result, err := q.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

func (r *Repository) CountProductsByCategory(ctx context.Context, categoryID string) (int, error) {
	const op = "catalog.Repository.CountProductsByCategory"
	q, _ := postgres.Conn(ctx, r.db)

	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE category_id = $1`, categoryID).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// DecrementStock lowers stock only when enough units remain, in one
// statement. It returns domain.ErrInsufficientStock otherwise.
func (r *Repository) DecrementStock(ctx context.Context, productID string, quantity int) error {
	const op = "catalog.Repository.DecrementStock"
	q, _ := postgres.Conn(ctx, r.db)

	result, err := q.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2
	`, productID, quantity)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return domain.ErrInsufficientStock
	}
	return nil
}

func scanCategory(row scanner) (*domain.Category, error) {
	var (
		c     domain.Category
		owner sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Name, &owner, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.OwnerID = owner.String
	return &c, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *Repository) CreateCategory(ctx context.Context, c *domain.Category) error {
	const op = "catalog.Repository.CreateCategory"
	q, _ := postgres.Conn(ctx, r.db)

	c.ID = uuid.New().String()
	_, err := q.ExecContext(ctx, `
		INSERT INTO categories (id, name, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, c.ID, c.Name, nullable(c.OwnerID), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return domain.ErrDuplicateName
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *Repository) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	const op = "catalog.Repository.GetCategory"
	q, _ := postgres.Conn(ctx, r.db)

	c, err := scanCategory(q.QueryRowContext(ctx, `
		SELECT id, name, owner_id, created_at, updated_at
		FROM categories
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

func (r *Repository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	const op = "catalog.Repository.ListCategories"
	q, _ := postgres.Conn(ctx, r.db)

	rows, err := q.QueryContext(ctx, `
		SELECT id, name, owner_id, created_at, updated_at
		FROM categories
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	categories := []domain.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		categories = append(categories, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return categories, nil
}

func (r *Repository) RenameCategory(ctx context.Context, id, name string, updatedAt time.Time) (*domain.Category, error) {
	const op = "catalog.Repository.RenameCategory"
	q, _ := postgres.Conn(ctx, r.db)

	c, err := scanCategory(q.QueryRowContext(ctx, `
		UPDATE categories SET name = $2, updated_at = $3
		WHERE id = $1
		RETURNING id, name, owner_id, created_at, updated_at
	`, id, name, updatedAt))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, nil
		case postgres.IsUniqueViolation(err):
			return nil, domain.ErrDuplicateName
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

func (r *Repository) DeleteCategory(ctx context.Context, id string) (bool, error) {
	const op = "catalog.Repository.DeleteCategory"
	q, _ := postgres.Conn(ctx, r.db)

	result, err := q.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}
