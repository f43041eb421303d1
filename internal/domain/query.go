package domain

import (
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sortable product fields
const (
	SortByPrice     = "price"
	SortByCreatedAt = "created_at"
	SortByName      = "name"
)

// Ordering is a sort key with direction
type Ordering struct {
	Field string
	Desc  bool
}

// DefaultOrdering lists the newest products first
var DefaultOrdering = Ordering{Field: SortByCreatedAt, Desc: true}

// ParseOrdering reads values such as "price" or "-created_at".
// Unknown fields fall back to DefaultOrdering.
func ParseOrdering(raw string) Ordering {
	raw = strings.TrimSpace(raw)
	desc := strings.HasPrefix(raw, "-")
	field := strings.TrimPrefix(raw, "-")

	switch field {
	case SortByPrice, SortByCreatedAt, SortByName:
		return Ordering{Field: field, Desc: desc}
	default:
		return DefaultOrdering
	}
}

func (o Ordering) String() string {
	if o.Desc {
		return "-" + o.Field
	}
	return o.Field
}

// Visibility decides which inactive products a listing may include.
// It is resolved from the caller before the query is built.
type Visibility struct {
	// All includes every product regardless of is_active
	All bool
	// OwnerID, when set, also includes inactive products created by this user
	OwnerID *uuid.UUID
}

// PublicVisibility only exposes active products
var PublicVisibility = Visibility{}

// ProductFilter is the validated set of listing constraints. Zero values impose no constraint.
type ProductFilter struct {
	Category   string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	InStock    *bool
	Search     string
	Ordering   Ordering
	Visibility Visibility
}

// PageRequest selects a 1-indexed page of Size rows
type PageRequest struct {
	Page int
	Size int
}

// MaxPage is the highest page number whose offset still fits in an int
func MaxPage(size int) int {
	if size <= 0 {
		return math.MaxInt
	}
	return math.MaxInt / size
}

// Offset returns the number of rows preceding the page, saturating instead of overflowing
func (p PageRequest) Offset() int {
	if p.Page < 1 || p.Size <= 0 {
		return 0
	}
	if p.Page > MaxPage(p.Size) {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Size
}

// LastPage returns the number of the final non-empty page, or 1 when nothing matched
func LastPage(total, size int) int {
	if total <= 0 || size <= 0 {
		return 1
	}
	return (total-1)/size + 1
}

// Page is one slice of an ordered result set
type Page[T any] struct {
	Items []T
	Total int
	PageRequest
}

// HasNext reports whether rows exist after this page
func (p Page[T]) HasNext() bool {
	return p.Total > 0 && p.Page < LastPage(p.Total, p.Size)
}

// HasPrevious reports whether a page precedes this one
func (p Page[T]) HasPrevious() bool {
	return p.Page > 1
}
