package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/database"
	"storefront/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrProductSlugTaken = errors.New("product with this slug already exists")
	ErrUnknownCategory  = errors.New("category does not exist")
)

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindBySlug(ctx context.Context, slug string) (*domain.Product, error)
	List(ctx context.Context, filter domain.ProductFilter, page domain.PageRequest) ([]*domain.Product, int, error)
	SlugsWithPrefix(ctx context.Context, prefix string) ([]string, error)
	SetImage(ctx context.Context, id uuid.UUID, key string) error
}

type productRepository struct {
	db database.DBTX
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db database.DBTX) ProductRepository {
	return &productRepository{db: db}
}

// Create inserts a new product into the database using parameterized queries
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, name, slug, description, price, category_id, stock_quantity,
		                      image, is_active, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Slug,
		product.Description,
		product.Price.StringFixed(2),
		product.CategoryID,
		product.StockQuantity,
		product.Image,
		product.IsActive,
		nullableUUID(product.CreatedBy),
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		return translateProductError("create", err)
	}

	return nil
}

// Update overwrites the mutable columns of a product
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, slug = $3, description = $4, price = $5, category_id = $6,
		    stock_quantity = $7, image = $8, is_active = $9, updated_at = $10
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Slug,
		product.Description,
		product.Price.StringFixed(2),
		product.CategoryID,
		product.StockQuantity,
		product.Image,
		product.IsActive,
		product.UpdatedAt,
	)

	if err != nil {
		return translateProductError("update", err)
	}

	return expectOneRow(result, ErrProductNotFound)
}

// Delete removes a product from the database using parameterized queries
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	return expectOneRow(result, ErrProductNotFound)
}

// FindBySlug retrieves a product with its category and creator regardless of is_active
func (r *productRepository) FindBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	query := "SELECT" + productColumns + productJoins + "\n\t\tWHERE p.slug = $1"

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by slug: %w", err)
	}

	return product, nil
}

// List runs the filtered listing and returns one page together with the total match count
func (r *productRepository) List(ctx context.Context, filter domain.ProductFilter, page domain.PageRequest) ([]*domain.Product, int, error) {
	q := BuildProductListQuery(filter, page)

	var total int
	if err := r.db.QueryRowContext(ctx, q.CountSQL, q.CountArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	products := []*domain.Product{}
	if total == 0 || page.Offset() >= total {
		return products, total, nil
	}

	rows, err := r.db.QueryContext(ctx, q.SelectSQL, q.SelectArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating products: %w", err)
	}

	return products, total, nil
}

// SlugsWithPrefix returns existing slugs equal to prefix or of the form prefix-N
func (r *productRepository) SlugsWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	return slugsWithPrefix(ctx, r.db, "products", prefix)
}

// SetImage stores the object key of the product image
func (r *productRepository) SetImage(ctx context.Context, id uuid.UUID, key string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE products SET image = $2 WHERE id = $1`, id, key)
	if err != nil {
		return fmt.Errorf("failed to set product image: %w", err)
	}

	return expectOneRow(result, ErrProductNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	product := &domain.Product{Category: &domain.Category{}}
	var createdBy uuid.NullUUID

	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Slug,
		&product.Description,
		&product.Price,
		&product.CategoryID,
		&product.StockQuantity,
		&product.Image,
		&product.IsActive,
		&createdBy,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Category.ID,
		&product.Category.Name,
		&product.Category.Slug,
		&product.Category.Description,
		&product.Category.CreatedAt,
		&product.Category.UpdatedAt,
		&product.CreatedByUsername,
	)
	if err != nil {
		return nil, err
	}

	if createdBy.Valid {
		id := createdBy.UUID
		product.CreatedBy = &id
	}

	return product, nil
}

func translateProductError(op string, err error) error {
	if constraint, ok := uniqueViolation(err); ok && constraint == constraintProductsSlug {
		return ErrProductSlugTaken
	}
	if constraint, ok := foreignKeyViolation(err); ok && constraint == constraintProductCategory {
		return ErrUnknownCategory
	}
	return fmt.Errorf("failed to %s product: %w", op, err)
}

func expectOneRow(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return notFound
	}

	return nil
}

func nullableUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

// slugsWithPrefix is shared by products and categories. table is a trusted identifier.
func slugsWithPrefix(ctx context.Context, db database.DBTX, table, prefix string) ([]string, error) {
	query := fmt.Sprintf(`SELECT slug FROM %s WHERE slug = $1 OR slug LIKE $2 ESCAPE '\'`, table)

	rows, err := db.QueryContext(ctx, query, prefix, escapeLike(prefix)+"-%")
	if err != nil {
		return nil, fmt.Errorf("failed to query %s slugs: %w", table, err)
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, fmt.Errorf("failed to scan slug: %w", err)
		}
		slugs = append(slugs, slug)
	}

	return slugs, rows.Err()
}
