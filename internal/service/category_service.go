package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/authz"
	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const (
	categoryNameMaxLength = 200
	categorySlugMaxLength = 200
)

// CategoryInput is a create or update payload; nil fields were not supplied
type CategoryInput struct {
	Name        *string
	Slug        *string
	Description *string
}

// CategoryService defines the interface for category business logic
type CategoryService interface {
	List(ctx context.Context, page domain.PageRequest) (*domain.Page[*domain.Category], error)
	Get(ctx context.Context, slug string) (*domain.Category, error)
	Create(ctx context.Context, caller *authz.Caller, in CategoryInput) (*domain.Category, error)
	Update(ctx context.Context, caller *authz.Caller, slug string, in CategoryInput, partial bool) (*domain.Category, error)
	Delete(ctx context.Context, caller *authz.Caller, slug string) error
}

type categoryService struct {
	categories repository.CategoryRepository
	gate       *authz.Gate
	now        func() time.Time
}

// NewCategoryService creates a new instance of CategoryService
func NewCategoryService(categories repository.CategoryRepository, gate *authz.Gate) CategoryService {
	return &categoryService{
		categories: categories,
		gate:       gate,
		now:        time.Now,
	}
}

// List returns one page of categories ordered by name
func (s *categoryService) List(ctx context.Context, page domain.PageRequest) (*domain.Page[*domain.Category], error) {
	items, total, err := s.categories.List(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return &domain.Page[*domain.Category]{Items: items, Total: total, PageRequest: page}, nil
}

// Get retrieves a category by slug
func (s *categoryService) Get(ctx context.Context, slug string) (*domain.Category, error) {
	category, err := s.categories.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, notFound(err)
		}
		return nil, fmt.Errorf("failed to find category: %w", err)
	}
	return category, nil
}

// Create stores a new category. The slug is derived from the name unless given.
func (s *categoryService) Create(ctx context.Context, caller *authz.Caller, in CategoryInput) (*domain.Category, error) {
	if err := s.gate.Check(caller, authz.Categories(), authz.OpCreate); err != nil {
		return nil, err
	}

	now := s.now()
	category := &domain.Category{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := applyCategory(category, in, false); err != nil {
		return nil, err
	}

	if category.Slug == "" {
		generated, err := uniqueSlug(ctx, category.Name, categorySlugMaxLength, s.categories.SlugsWithPrefix)
		if err != nil {
			return nil, fmt.Errorf("failed to derive slug: %w", err)
		}
		category.Slug = generated
	}

	if err := s.categories.Create(ctx, category); err != nil {
		return nil, translateCategoryWriteError(err)
	}

	return category, nil
}

// Update changes a category. The slug only changes when one is supplied.
func (s *categoryService) Update(ctx context.Context, caller *authz.Caller, slug string, in CategoryInput, partial bool) (*domain.Category, error) {
	if err := s.gate.Check(caller, authz.Categories(), authz.OpUpdate); err != nil {
		return nil, err
	}

	category, err := s.Get(ctx, slug)
	if err != nil {
		return nil, err
	}

	if err := applyCategory(category, in, partial); err != nil {
		return nil, err
	}
	category.UpdatedAt = s.now()

	if err := s.categories.Update(ctx, category); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, notFound(err)
		}
		return nil, translateCategoryWriteError(err)
	}

	return category, nil
}

// Delete removes an unused category
func (s *categoryService) Delete(ctx context.Context, caller *authz.Caller, slug string) error {
	if err := s.gate.Check(caller, authz.Categories(), authz.OpDelete); err != nil {
		return err
	}

	category, err := s.Get(ctx, slug)
	if err != nil {
		return err
	}

	if err := s.categories.Delete(ctx, category.ID); err != nil {
		switch {
		case errors.Is(err, repository.ErrCategoryInUse):
			return ErrCategoryInUse
		case errors.Is(err, repository.ErrCategoryNotFound):
			return notFound(err)
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}

	return nil
}

func applyCategory(category *domain.Category, in CategoryInput, partial bool) error {
	errs := domain.FieldErrors{}

	if in.Name == nil {
		if !partial {
			errs.Add("name", "This field is required.")
		}
	} else if name := strings.TrimSpace(*in.Name); name == "" {
		errs.Add("name", "This field may not be blank.")
	} else if len([]rune(name)) > categoryNameMaxLength {
		errs.Add("name", fmt.Sprintf("Ensure this field has no more than %d characters.", categoryNameMaxLength))
	} else {
		category.Name = name
	}

	if in.Slug != nil {
		raw := strings.TrimSpace(*in.Slug)
		switch {
		case raw == "":
			errs.Add("slug", "This field may not be blank.")
		case !slug.IsSlug(raw):
			errs.Add("slug", "Enter a valid \"slug\" consisting of lowercase letters, numbers or hyphens.")
		case len(raw) > categorySlugMaxLength:
			errs.Add("slug", fmt.Sprintf("Ensure this field has no more than %d characters.", categorySlugMaxLength))
		default:
			category.Slug = raw
		}
	}

	if in.Description != nil {
		category.Description = strings.TrimSpace(*in.Description)
	}

	return errs.Err()
}

func translateCategoryWriteError(err error) error {
	switch {
	case errors.Is(err, repository.ErrCategoryAlreadyExists):
		return domain.NewFieldError("name", "category with this name already exists.")
	case errors.Is(err, repository.ErrCategorySlugTaken):
		return domain.NewFieldError("slug", "category with this slug already exists.")
	}
	return fmt.Errorf("failed to save category: %w", err)
}
