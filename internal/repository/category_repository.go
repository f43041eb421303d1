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
	ErrCategoryNotFound      = errors.New("category not found")
	ErrCategoryAlreadyExists = errors.New("category with this name already exists")
	ErrCategorySlugTaken     = errors.New("category with this slug already exists")
	ErrCategoryInUse         = errors.New("category still has products")
)

// CategoryRepository defines the interface for category data access
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	Update(ctx context.Context, category *domain.Category) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, page domain.PageRequest) ([]*domain.Category, int, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	SlugsWithPrefix(ctx context.Context, prefix string) ([]string, error)
}

type categoryRepository struct {
	db database.DBTX
}

// NewCategoryRepository creates a new instance of CategoryRepository
func NewCategoryRepository(db database.DBTX) CategoryRepository {
	return &categoryRepository{db: db}
}

const categorySelect = `
		SELECT c.id, c.name, c.slug, c.description, c.created_at, c.updated_at,
		       (SELECT COUNT(*) FROM products p WHERE p.category_id = c.id AND p.is_active = TRUE)
		FROM categories c`

// Create inserts a new category into the database using parameterized queries
func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	query := `
		INSERT INTO categories (id, name, slug, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		category.ID,
		category.Name,
		category.Slug,
		category.Description,
		category.CreatedAt,
		category.UpdatedAt,
	)

	if err != nil {
		return translateCategoryError("create", err)
	}

	return nil
}

// Update overwrites name, slug and description
func (r *categoryRepository) Update(ctx context.Context, category *domain.Category) error {
	query := `
		UPDATE categories
		SET name = $2, slug = $3, description = $4, updated_at = $5
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		category.ID,
		category.Name,
		category.Slug,
		category.Description,
		category.UpdatedAt,
	)

	if err != nil {
		return translateCategoryError("update", err)
	}

	return expectOneRow(result, ErrCategoryNotFound)
}

// Delete removes a category. Categories referenced by products cannot be removed.
func (r *categoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		if _, ok := foreignKeyViolation(err); ok {
			return ErrCategoryInUse
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}

	return expectOneRow(result, ErrCategoryNotFound)
}

// List returns one page of categories ordered by name
func (r *categoryRepository) List(ctx context.Context, page domain.PageRequest) ([]*domain.Category, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count categories: %w", err)
	}

	categories := []*domain.Category{}
	if page.Offset() >= total {
		return categories, total, nil
	}

	query := categorySelect + `
		ORDER BY c.name ASC, c.id ASC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, total, nil
}

// FindBySlug retrieves a category by its slug
func (r *categoryRepository) FindBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	category, err := scanCategory(r.db.QueryRowContext(ctx, categorySelect+"\n\t\tWHERE c.slug = $1", slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to find category by slug: %w", err)
	}

	return category, nil
}

// FindByID retrieves a category by ID using parameterized queries
func (r *categoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	category, err := scanCategory(r.db.QueryRowContext(ctx, categorySelect+"\n\t\tWHERE c.id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to find category by ID: %w", err)
	}

	return category, nil
}

// SlugsWithPrefix returns existing slugs equal to prefix or of the form prefix-N
func (r *categoryRepository) SlugsWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	return slugsWithPrefix(ctx, r.db, "categories", prefix)
}

func scanCategory(row rowScanner) (*domain.Category, error) {
	category := &domain.Category{}
	err := row.Scan(
		&category.ID,
		&category.Name,
		&category.Slug,
		&category.Description,
		&category.CreatedAt,
		&category.UpdatedAt,
		&category.ProductCount,
	)
	if err != nil {
		return nil, err
	}
	return category, nil
}

func translateCategoryError(op string, err error) error {
	if constraint, ok := uniqueViolation(err); ok {
		switch constraint {
		case constraintCategoriesName:
			return ErrCategoryAlreadyExists
		case constraintCategoriesSlug:
			return ErrCategorySlugTaken
		}
	}
	return fmt.Errorf("failed to %s category: %w", op, err)
}
