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
	"storefront/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	productNameMaxLength = 255
	productSlugMaxLength = 255
)

var maxPrice = decimal.New(1, 8) // NUMERIC(10,2)

// allowedImageTypes maps accepted upload content types to file extensions
var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ProductInput is a create or update payload; nil fields were not supplied
type ProductInput struct {
	Name          *string
	Description   *string
	Price         *decimal.Decimal
	CategoryID    *uuid.UUID
	StockQuantity *int
	IsActive      *bool
}

// ImageUpload is the result of reserving an image slot for a product
type ImageUpload struct {
	Product  *domain.Product
	Upload   *storage.PresignedUpload
	ImageURL string
}

// ProductService defines the interface for product business logic
type ProductService interface {
	List(ctx context.Context, caller *authz.Caller, filter domain.ProductFilter, page domain.PageRequest) (*domain.Page[*domain.Product], error)
	ListByCategory(ctx context.Context, caller *authz.Caller, categorySlug string, filter domain.ProductFilter, page domain.PageRequest) (*domain.Page[*domain.Product], error)
	Get(ctx context.Context, caller *authz.Caller, slug string) (*domain.Product, error)
	Create(ctx context.Context, caller *authz.Caller, in ProductInput) (*domain.Product, error)
	Update(ctx context.Context, caller *authz.Caller, slug string, in ProductInput, partial bool) (*domain.Product, error)
	Delete(ctx context.Context, caller *authz.Caller, slug string) error
	PresignImage(ctx context.Context, caller *authz.Caller, slug, contentType string) (*ImageUpload, error)
	ImageURL(key string) string
}

type productService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	gate       *authz.Gate
	images     storage.ImageStore
	now        func() time.Time
}

// NewProductService creates a new instance of ProductService. images may be nil
// when object storage is not configured.
func NewProductService(
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	gate *authz.Gate,
	images storage.ImageStore,
) ProductService {
	return &productService{
		products:   products,
		categories: categories,
		gate:       gate,
		images:     images,
		now:        time.Now,
	}
}

// List returns one page of the products visible to caller
func (s *productService) List(ctx context.Context, caller *authz.Caller, filter domain.ProductFilter, page domain.PageRequest) (*domain.Page[*domain.Product], error) {
	if err := s.gate.Check(caller, authz.Products(), authz.OpRead); err != nil {
		return nil, err
	}

	filter.Visibility = s.gate.ProductVisibility(caller)

	items, total, err := s.products.List(ctx, filter, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return &domain.Page[*domain.Product]{Items: items, Total: total, PageRequest: page}, nil
}

// ListByCategory lists products of one category; the other filters still apply
func (s *productService) ListByCategory(ctx context.Context, caller *authz.Caller, categorySlug string, filter domain.ProductFilter, page domain.PageRequest) (*domain.Page[*domain.Product], error) {
	category, err := s.categories.FindBySlug(ctx, categorySlug)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, notFound(err)
		}
		return nil, fmt.Errorf("failed to find category: %w", err)
	}

	filter.Category = category.ID.String()
	return s.List(ctx, caller, filter, page)
}

// Get returns a product by slug. Products the caller may not see are reported as missing.
func (s *productService) Get(ctx context.Context, caller *authz.Caller, slug string) (*domain.Product, error) {
	product, err := s.products.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, notFound(err)
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}

	if !s.gate.CanView(caller, product) {
		return nil, notFound(repository.ErrProductNotFound)
	}

	return product, nil
}

// Create validates in, derives a unique slug and stores the product owned by caller
func (s *productService) Create(ctx context.Context, caller *authz.Caller, in ProductInput) (*domain.Product, error) {
	if err := s.gate.Check(caller, authz.Products(), authz.OpCreate); err != nil {
		return nil, err
	}

	now := s.now()
	product := &domain.Product{
		ID:        uuid.New(),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	ownerID := caller.UserID
	product.CreatedBy = &ownerID

	if err := s.apply(ctx, product, in, false); err != nil {
		return nil, err
	}

	slug, err := uniqueSlug(ctx, product.Name, productSlugMaxLength, s.products.SlugsWithPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to derive slug: %w", err)
	}
	product.Slug = slug

	if err := s.products.Create(ctx, product); err != nil {
		return nil, s.translateWriteError(err, in)
	}

	return s.reload(ctx, product.Slug)
}

// Update applies in to the product. A full update requires every mandatory field.
func (s *productService) Update(ctx context.Context, caller *authz.Caller, slug string, in ProductInput, partial bool) (*domain.Product, error) {
	product, err := s.Get(ctx, caller, slug)
	if err != nil {
		return nil, err
	}

	if err := s.gate.Check(caller, authz.Product(product), authz.OpUpdate); err != nil {
		return nil, err
	}

	if err := s.apply(ctx, product, in, partial); err != nil {
		return nil, err
	}
	product.UpdatedAt = s.now()

	if err := s.products.Update(ctx, product); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, notFound(err)
		}
		return nil, s.translateWriteError(err, in)
	}

	return s.reload(ctx, product.Slug)
}

// Delete removes the product when caller owns it or is an admin
func (s *productService) Delete(ctx context.Context, caller *authz.Caller, slug string) error {
	product, err := s.Get(ctx, caller, slug)
	if err != nil {
		return err
	}

	if err := s.gate.Check(caller, authz.Product(product), authz.OpDelete); err != nil {
		return err
	}

	if err := s.products.Delete(ctx, product.ID); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return notFound(err)
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}

	return nil
}

// PresignImage reserves an object key for the product image and returns an upload URL for it
func (s *productService) PresignImage(ctx context.Context, caller *authz.Caller, slug, contentType string) (*ImageUpload, error) {
	if s.images == nil {
		return nil, ErrUploadsDisabled
	}

	product, err := s.Get(ctx, caller, slug)
	if err != nil {
		return nil, err
	}

	if err := s.gate.Check(caller, authz.Product(product), authz.OpUploadImage); err != nil {
		return nil, err
	}

	ext, ok := allowedImageTypes[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return nil, domain.NewFieldError("content_type", "Upload a valid image. Supported types are JPEG, PNG, WebP and GIF.")
	}

	now := s.now().UTC()
	key := fmt.Sprintf("products/%04d/%02d/%02d/%s%s", now.Year(), now.Month(), now.Day(), uuid.NewString(), ext)

	upload, err := s.images.PresignUpload(ctx, key, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to presign image upload: %w", err)
	}

	if err := s.products.SetImage(ctx, product.ID, key); err != nil {
		return nil, fmt.Errorf("failed to store image key: %w", err)
	}
	product.Image = key

	return &ImageUpload{
		Product:  product,
		Upload:   upload,
		ImageURL: s.images.PublicURL(key),
	}, nil
}

// ImageURL resolves a stored key to a URL. Keys are returned unchanged without object storage.
func (s *productService) ImageURL(key string) string {
	if s.images == nil || key == "" {
		return key
	}
	return s.images.PublicURL(key)
}

// apply validates the supplied fields and copies them onto product. No write happens on failure.
func (s *productService) apply(ctx context.Context, product *domain.Product, in ProductInput, partial bool) error {
	errs := domain.FieldErrors{}

	if in.Name == nil {
		if !partial {
			errs.Add("name", "This field is required.")
		}
	} else if name := strings.TrimSpace(*in.Name); name == "" {
		errs.Add("name", "Product name cannot be empty.")
	} else if len([]rune(name)) > productNameMaxLength {
		errs.Add("name", fmt.Sprintf("Ensure this field has no more than %d characters.", productNameMaxLength))
	} else {
		product.Name = name
	}

	if in.Price == nil {
		if !partial {
			errs.Add("price", "This field is required.")
		}
	} else {
		for _, msg := range priceProblems(*in.Price) {
			errs.Add("price", msg)
		}
		product.Price = *in.Price
	}

	if in.StockQuantity != nil {
		if *in.StockQuantity < 0 {
			errs.Add("stock_quantity", "Stock quantity cannot be negative.")
		}
		product.StockQuantity = *in.StockQuantity
	}

	if in.CategoryID == nil {
		if !partial {
			errs.Add("category", "This field is required.")
		}
	} else {
		if _, err := s.categories.FindByID(ctx, *in.CategoryID); err != nil {
			if !errors.Is(err, repository.ErrCategoryNotFound) {
				return fmt.Errorf("failed to find category: %w", err)
			}
			errs.Add("category", invalidCategoryMessage(*in.CategoryID))
		}
		product.CategoryID = *in.CategoryID
	}

	if in.Description != nil {
		product.Description = strings.TrimSpace(*in.Description)
	}
	if in.IsActive != nil {
		product.IsActive = *in.IsActive
	}

	return errs.Err()
}

func (s *productService) reload(ctx context.Context, slug string) (*domain.Product, error) {
	product, err := s.products.FindBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to reload product: %w", err)
	}
	return product, nil
}

func (s *productService) translateWriteError(err error, in ProductInput) error {
	switch {
	case errors.Is(err, repository.ErrProductSlugTaken):
		return domain.NewFieldError("slug", "product with this slug already exists.")
	case errors.Is(err, repository.ErrUnknownCategory) && in.CategoryID != nil:
		return domain.NewFieldError("category", invalidCategoryMessage(*in.CategoryID))
	}
	return fmt.Errorf("failed to save product: %w", err)
}

// priceProblems checks a price against NUMERIC(10,2) and the non-negative rule
func priceProblems(price decimal.Decimal) []string {
	var problems []string
	if price.IsNegative() {
		problems = append(problems, "Ensure this value is greater than or equal to 0.")
	}
	if !price.Equal(price.Truncate(2)) {
		problems = append(problems, "Ensure that there are no more than 2 decimal places.")
	}
	if price.Abs().GreaterThanOrEqual(maxPrice) {
		problems = append(problems, "Ensure that there are no more than 10 digits in total.")
	}
	return problems
}

func invalidCategoryMessage(id uuid.UUID) string {
	return fmt.Sprintf("Invalid pk \"%s\" - object does not exist.", id)
}
