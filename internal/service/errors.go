package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound wraps lookups of missing products, categories and users
	ErrNotFound = errors.New("not found")

	ErrInvalidCredentials = errors.New("unable to log in with provided credentials")
	ErrAccountDisabled    = errors.New("user account is disabled")
	ErrInvalidToken       = errors.New("token is invalid or expired")
	ErrTokenExpired       = errors.New("token has expired")
	ErrCategoryInUse      = errors.New("category cannot be deleted while products reference it")
	ErrUploadsDisabled    = errors.New("image uploads are not configured")
)

func notFound(err error) error {
	return fmt.Errorf("%w: %v", ErrNotFound, err)
}
