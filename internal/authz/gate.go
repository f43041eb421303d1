// Package authz decides whether a caller may perform an operation on a catalog resource.
package authz

import (
	"errors"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrUnauthenticated = errors.New("authentication credentials were not provided")
	ErrForbidden       = errors.New("you do not have permission to perform this action")
)

// Operation is an action attempted on a resource
type Operation string

const (
	OpRead        Operation = "read"
	OpCreate      Operation = "create"
	OpUpdate      Operation = "update"
	OpDelete      Operation = "delete"
	OpUploadImage Operation = "upload_image"
)

// Kind names a resource type
type Kind string

const (
	KindProduct  Kind = "product"
	KindCategory Kind = "category"
)

// Resource is the target of a permission check. OwnerID is nil for
// collections and for resources without an owner.
type Resource struct {
	Kind    Kind
	OwnerID *uuid.UUID
}

// Product describes an existing product
func Product(p *domain.Product) Resource {
	return Resource{Kind: KindProduct, OwnerID: p.CreatedBy}
}

// Products describes the product collection
func Products() Resource {
	return Resource{Kind: KindProduct}
}

// Categories describes the category collection or any single category
func Categories() Resource {
	return Resource{Kind: KindCategory}
}

// Caller is the authenticated principal of a request. A nil *Caller is anonymous.
type Caller struct {
	UserID   uuid.UUID
	Username string
	Role     string
}

// IsAdmin reports whether the caller has the admin role
func (c *Caller) IsAdmin() bool {
	return c != nil && c.Role == domain.RoleAdmin
}

// Owns reports whether the caller is the recorded owner
func (c *Caller) Owns(ownerID *uuid.UUID) bool {
	return c != nil && ownerID != nil && *ownerID == c.UserID
}

// Gate evaluates (caller, resource, operation) triples
type Gate struct {
	ownerSeesInactive bool
}

// NewGate builds a gate. When ownerSeesInactive is set, product owners can
// read their own inactive products.
func NewGate(ownerSeesInactive bool) *Gate {
	return &Gate{ownerSeesInactive: ownerSeesInactive}
}

// Check returns nil when the operation is allowed, ErrUnauthenticated when an
// anonymous caller attempts a write and ErrForbidden otherwise.
func (g *Gate) Check(caller *Caller, res Resource, op Operation) error {
	if op == OpRead {
		return nil
	}

	if caller == nil {
		return ErrUnauthenticated
	}

	if caller.IsAdmin() {
		return nil
	}

	switch res.Kind {
	case KindProduct:
		if op == OpCreate {
			return nil
		}
		if caller.Owns(res.OwnerID) {
			return nil
		}
	case KindCategory:
		// admin only
	}

	return ErrForbidden
}

// ProductVisibility resolves which inactive products the caller may list
func (g *Gate) ProductVisibility(caller *Caller) domain.Visibility {
	switch {
	case caller.IsAdmin():
		return domain.Visibility{All: true}
	case caller != nil && g.ownerSeesInactive:
		id := caller.UserID
		return domain.Visibility{OwnerID: &id}
	default:
		return domain.PublicVisibility
	}
}

// CanView reports whether a single product is visible to the caller
func (g *Gate) CanView(caller *Caller, p *domain.Product) bool {
	if p.IsActive || caller.IsAdmin() {
		return true
	}
	return g.ownerSeesInactive && caller.Owns(p.CreatedBy)
}
