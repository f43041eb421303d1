package transport

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"storefront/internal/domain"
)

// Envelope is the paginated list response
type Envelope[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// newEnvelope converts one page of items and links its neighbours
func newEnvelope[S, T any](r *http.Request, page *domain.Page[S], convert func(S) T) Envelope[T] {
	results := make([]T, 0, len(page.Items))
	for _, item := range page.Items {
		results = append(results, convert(item))
	}

	env := Envelope[T]{
		Count:   page.Total,
		Results: results,
	}
	if page.HasNext() {
		next := pageURL(r, page.Page+1)
		env.Next = &next
	}
	if page.HasPrevious() {
		// pages past the end link back to the last real page
		prev := page.Page - 1
		if last := domain.LastPage(page.Total, page.Size); prev > last {
			prev = last
		}
		previous := pageURL(r, prev)
		env.Previous = &previous
	}
	return env
}

// pageURL rebuilds the request URL with page replaced. Page 1 drops the parameter.
func pageURL(r *http.Request, page int) string {
	q := url.Values{}
	for k, v := range r.URL.Query() {
		q[k] = append([]string(nil), v...)
	}
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}

	u := url.URL{
		Scheme:   requestScheme(r),
		Host:     r.Host,
		Path:     r.URL.Path,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func requestScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}
	return "http"
}
