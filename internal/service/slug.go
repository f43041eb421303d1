package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// slugLister returns existing slugs equal to a prefix or of the form prefix-N
type slugLister func(ctx context.Context, prefix string) ([]string, error)

// uniqueSlug derives a slug from name and appends -2, -3, ... until it is free.
// The unique index still arbitrates concurrent writers.
func uniqueSlug(ctx context.Context, name string, maxLen int, existing slugLister) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = uuid.NewString()[:8]
	}
	// leave room for a numeric suffix
	if limit := maxLen - 6; len(base) > limit {
		base = strings.TrimRight(base[:limit], "-")
	}

	slugs, err := existing(ctx, base)
	if err != nil {
		return "", err
	}

	taken := make(map[string]struct{}, len(slugs))
	for _, s := range slugs {
		taken[s] = struct{}{}
	}

	if _, ok := taken[base]; !ok {
		return base, nil
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		if _, ok := taken[candidate]; !ok {
			return candidate, nil
		}
	}
}
