package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Availability labels reported alongside a product's stock
const (
	AvailabilityOutOfStock = "Out of Stock"
	AvailabilityLowStock   = "Low Stock"
	AvailabilityInStock    = "In Stock"
)

// DefaultLowStockThreshold is the stock level below which a product is reported as low
const DefaultLowStockThreshold = 10

// Product represents a product in the catalog
type Product struct {
	ID            uuid.UUID       `db:"id"`
	Name          string          `db:"name"`
	Slug          string          `db:"slug"`
	Description   string          `db:"description"`
	Price         decimal.Decimal `db:"price"`
	CategoryID    uuid.UUID       `db:"category_id"`
	StockQuantity int             `db:"stock_quantity"`
	Image         string          `db:"image"`
	IsActive      bool            `db:"is_active"`
	CreatedBy     *uuid.UUID      `db:"created_by"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`

	// Populated by joined reads
	Category          *Category `db:"-"`
	CreatedByUsername string    `db:"-"`
}

// InStock reports whether at least one unit is available
func (p *Product) InStock() bool {
	return p.StockQuantity > 0
}

// AvailabilityStatus returns the human readable stock label
func (p *Product) AvailabilityStatus(lowStockThreshold int) string {
	switch {
	case p.StockQuantity <= 0:
		return AvailabilityOutOfStock
	case p.StockQuantity < lowStockThreshold:
		return AvailabilityLowStock
	default:
		return AvailabilityInStock
	}
}

// IsOwnedBy reports whether the product was created by userID
func (p *Product) IsOwnedBy(userID uuid.UUID) bool {
	return p.CreatedBy != nil && *p.CreatedBy == userID
}

// Category represents a product category
type Category struct {
	ID           uuid.UUID `db:"id"`
	Name         string    `db:"name"`
	Slug         string    `db:"slug"`
	Description  string    `db:"description"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	ProductCount int       `db:"-"`
}
