package transport

import (
	"time"

	"storefront/internal/domain"
)

// UserProfile is the public view of an account
type UserProfile struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	FullName   string    `json:"full_name"`
	Phone      string    `json:"phone"`
	Address    string    `json:"address"`
	Role       string    `json:"role"`
	IsActive   bool      `json:"is_active"`
	DateJoined time.Time `json:"date_joined"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func newUserProfile(u *domain.User) UserProfile {
	return UserProfile{
		ID:         u.ID.String(),
		Username:   u.Username,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		FullName:   u.FullName(),
		Phone:      u.Phone,
		Address:    u.Address,
		Role:       u.Role,
		IsActive:   u.IsActive,
		DateJoined: u.CreatedAt,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// CategoryResponse is a category with its product count
type CategoryResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description"`
	ProductCount int       `json:"product_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func newCategoryResponse(c *domain.Category) CategoryResponse {
	return CategoryResponse{
		ID:           c.ID.String(),
		Name:         c.Name,
		Slug:         c.Slug,
		Description:  c.Description,
		ProductCount: c.ProductCount,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

// ProductListItem is the compact row returned by product listings
type ProductListItem struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Slug               string    `json:"slug"`
	Price              string    `json:"price"`
	Category           string    `json:"category"`
	CategoryName       string    `json:"category_name"`
	StockQuantity      int       `json:"stock_quantity"`
	InStock            bool      `json:"in_stock"`
	AvailabilityStatus string    `json:"availability_status"`
	Image              *string   `json:"image"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
}

// ProductDetail is the full product representation
type ProductDetail struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	Slug               string            `json:"slug"`
	Description        string            `json:"description"`
	Price              string            `json:"price"`
	Category           *CategoryResponse `json:"category"`
	StockQuantity      int               `json:"stock_quantity"`
	InStock            bool              `json:"in_stock"`
	AvailabilityStatus string            `json:"availability_status"`
	Image              *string           `json:"image"`
	IsActive           bool              `json:"is_active"`
	CreatedBy          *string           `json:"created_by"`
	CreatedByUsername  *string           `json:"created_by_username"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// productPresenter renders products with the configured stock threshold and image URLs
type productPresenter struct {
	lowStockThreshold int
	imageURL          func(key string) string
}

func (p productPresenter) listItem(product *domain.Product) ProductListItem {
	item := ProductListItem{
		ID:                 product.ID.String(),
		Name:               product.Name,
		Slug:               product.Slug,
		Price:              product.Price.StringFixed(2),
		Category:           product.CategoryID.String(),
		StockQuantity:      product.StockQuantity,
		InStock:            product.InStock(),
		AvailabilityStatus: product.AvailabilityStatus(p.lowStockThreshold),
		Image:              p.image(product.Image),
		IsActive:           product.IsActive,
		CreatedAt:          product.CreatedAt,
	}
	if product.Category != nil {
		item.CategoryName = product.Category.Name
	}
	return item
}

func (p productPresenter) detail(product *domain.Product) ProductDetail {
	detail := ProductDetail{
		ID:                 product.ID.String(),
		Name:               product.Name,
		Slug:               product.Slug,
		Description:        product.Description,
		Price:              product.Price.StringFixed(2),
		StockQuantity:      product.StockQuantity,
		InStock:            product.InStock(),
		AvailabilityStatus: product.AvailabilityStatus(p.lowStockThreshold),
		Image:              p.image(product.Image),
		IsActive:           product.IsActive,
		CreatedAt:          product.CreatedAt,
		UpdatedAt:          product.UpdatedAt,
	}
	if product.Category != nil {
		category := newCategoryResponse(product.Category)
		detail.Category = &category
	}
	if product.CreatedBy != nil {
		createdBy := product.CreatedBy.String()
		detail.CreatedBy = &createdBy
		if product.CreatedByUsername != "" {
			username := product.CreatedByUsername
			detail.CreatedByUsername = &username
		}
	}
	return detail
}

func (p productPresenter) image(key string) *string {
	if key == "" {
		return nil
	}
	url := key
	if p.imageURL != nil {
		url = p.imageURL(key)
	}
	return &url
}
