package transport

import (
	"net/url"
	"strconv"
	"strings"

	"storefront/internal/config"
	"storefront/internal/domain"

	"github.com/shopspring/decimal"
)

// parseProductFilter reads the product list filters. Malformed values are field errors.
func parseProductFilter(q url.Values) (domain.ProductFilter, domain.FieldErrors) {
	errs := domain.FieldErrors{}
	filter := domain.ProductFilter{
		Category: strings.TrimSpace(q.Get("category")),
		Search:   strings.TrimSpace(q.Get("search")),
		Ordering: domain.ParseOrdering(strings.TrimSpace(q.Get("ordering"))),
	}

	filter.MinPrice = parsePrice(q, "min_price", errs)
	filter.MaxPrice = parsePrice(q, "max_price", errs)

	if raw := strings.TrimSpace(q.Get("in_stock")); raw != "" {
		switch strings.ToLower(raw) {
		case "true", "1":
			v := true
			filter.InStock = &v
		case "false", "0":
			v := false
			filter.InStock = &v
		default:
			errs.Add("in_stock", "Must be a valid boolean.")
		}
	}

	return filter, errs
}

func parsePrice(q url.Values, key string, errs domain.FieldErrors) *decimal.Decimal {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil
	}

	value, err := decimal.NewFromString(raw)
	if err != nil {
		errs.Add(key, "Enter a number.")
		return nil
	}
	if value.IsNegative() {
		errs.Add(key, "Ensure this value is greater than or equal to 0.")
		return nil
	}
	return &value
}

// parsePageRequest reads page and page_size. Oversized pages are clamped, not rejected.
func parsePageRequest(q url.Values, catalog config.CatalogConfig, errs domain.FieldErrors) domain.PageRequest {
	page := domain.PageRequest{Page: 1, Size: catalog.DefaultPageSize}

	if n, ok := parsePositiveInt(q, "page", errs); ok {
		page.Page = n
	}
	if n, ok := parsePositiveInt(q, "page_size", errs); ok {
		page.Size = n
	}
	if catalog.MaxPageSize > 0 && page.Size > catalog.MaxPageSize {
		page.Size = catalog.MaxPageSize
	}
	// far past the end either way; keeps the offset representable
	if limit := domain.MaxPage(page.Size); page.Page > limit {
		page.Page = limit
	}

	return page
}

func parsePositiveInt(q url.Values, key string, errs domain.FieldErrors) (int, bool) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, false
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		errs.Add(key, "A valid integer is required.")
		return 0, false
	}
	if n < 1 {
		errs.Add(key, "Ensure this value is greater than or equal to 1.")
		return 0, false
	}
	return n, true
}
