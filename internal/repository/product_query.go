package repository

import (
	"fmt"
	"strings"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

const productColumns = `
		p.id, p.name, p.slug, p.description, p.price, p.category_id, p.stock_quantity,
		p.image, p.is_active, p.created_by, p.created_at, p.updated_at,
		c.id, c.name, c.slug, c.description, c.created_at, c.updated_at,
		COALESCE(u.username, '')`

const productJoins = `
		FROM products p
		JOIN categories c ON c.id = p.category_id
		LEFT JOIN users u ON u.id = p.created_by`

var orderColumns = map[string]string{
	domain.SortByPrice:     "p.price",
	domain.SortByName:      "p.name",
	domain.SortByCreatedAt: "p.created_at",
}

// ProductListQuery is a parameterised listing statement and its matching count statement
type ProductListQuery struct {
	SelectSQL  string
	SelectArgs []any
	CountSQL   string
	CountArgs  []any
}

// BuildProductListQuery translates a validated filter into SQL.
// It never interpolates user input: every value travels as a $n placeholder
// and the ORDER BY column comes from a fixed whitelist.
func BuildProductListQuery(filter domain.ProductFilter, page domain.PageRequest) ProductListQuery {
	var (
		conditions []string
		args       []any
	)

	bind := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	switch v := filter.Visibility; {
	case v.All:
	case v.OwnerID != nil:
		conditions = append(conditions, fmt.Sprintf("(p.is_active = TRUE OR p.created_by = %s)", bind(*v.OwnerID)))
	default:
		conditions = append(conditions, "p.is_active = TRUE")
	}

	if category := strings.TrimSpace(filter.Category); category != "" {
		if id, err := uuid.Parse(category); err == nil {
			conditions = append(conditions, "p.category_id = "+bind(id))
		} else {
			conditions = append(conditions, "LOWER(c.slug) = LOWER("+bind(category)+")")
		}
	}

	if filter.MinPrice != nil {
		conditions = append(conditions, "p.price >= "+bind(filter.MinPrice.String()))
	}
	if filter.MaxPrice != nil {
		conditions = append(conditions, "p.price <= "+bind(filter.MaxPrice.String()))
	}

	if filter.InStock != nil {
		if *filter.InStock {
			conditions = append(conditions, "p.stock_quantity > 0")
		} else {
			conditions = append(conditions, "p.stock_quantity = 0")
		}
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := bind("%" + escapeLike(search) + "%")
		conditions = append(conditions, fmt.Sprintf(`(p.name ILIKE %s ESCAPE '\' OR p.description ILIKE %s ESCAPE '\')`, pattern, pattern))
	}

	where := ""
	if len(conditions) > 0 {
		where = "\n\t\tWHERE " + strings.Join(conditions, "\n\t\t  AND ")
	}

	countArgs := append([]any(nil), args...)
	countSQL := "SELECT COUNT(*)" + productJoins + where

	limit := bind(page.Size)
	offset := bind(page.Offset())
	selectSQL := "SELECT" + productColumns + productJoins + where +
		"\n\t\tORDER BY " + orderClause(filter.Ordering) +
		"\n\t\tLIMIT " + limit + " OFFSET " + offset

	return ProductListQuery{
		SelectSQL:  selectSQL,
		SelectArgs: args,
		CountSQL:   countSQL,
		CountArgs:  countArgs,
	}
}

// orderClause always ends with the primary key so equal sort keys page deterministically
func orderClause(o domain.Ordering) string {
	column, ok := orderColumns[o.Field]
	if !ok {
		o = domain.DefaultOrdering
		column = orderColumns[o.Field]
	}

	direction := "ASC"
	if o.Desc {
		direction = "DESC"
	}
	return fmt.Sprintf("%s %s, p.id %s", column, direction, direction)
}

// escapeLike makes %, _ and \ match literally inside an ILIKE pattern
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
