package domain

import (
	"sort"
	"strings"
)

// NonFieldErrors is the key used for errors not tied to a single field
const NonFieldErrors = "non_field_errors"

// FieldErrors maps a request field to its validation messages
type FieldErrors map[string][]string

// Add appends a message for field
func (e FieldErrors) Add(field, message string) {
	e[field] = append(e[field], message)
}

// Err returns nil when no errors were recorded
func (e FieldErrors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+strings.Join(e[field], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewFieldError is a shortcut for a single field failure
func NewFieldError(field, message string) FieldErrors {
	return FieldErrors{field: {message}}
}
