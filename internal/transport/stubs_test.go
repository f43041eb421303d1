package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"storefront/internal/authz"
	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// withClaims stands in for the auth middleware: it marks every request as made by claims,
// or leaves it anonymous when claims is nil.
func withClaims(claims *service.Claims) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims != nil {
				r = r.WithContext(middleware.WithClaims(r.Context(), claims))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

func userClaims(role string) *service.Claims {
	return &service.Claims{
		UserID:   uuid.New(),
		Username: "alice",
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

var testCategory = &domain.Category{
	ID:           uuid.MustParse("7d3b7c4e-0a38-4f43-9a57-2d0b4c0f7a11"),
	Name:         "Pizza",
	Slug:         "pizza",
	ProductCount: 2,
}

func testProduct(name, slug string, price string, stock int) *domain.Product {
	owner := uuid.MustParse("3f1c1a52-8d43-4c8e-a4a5-6f2a7e0b9c01")
	return &domain.Product{
		ID:                uuid.New(),
		Name:              name,
		Slug:              slug,
		Price:             decimal.RequireFromString(price),
		CategoryID:        testCategory.ID,
		Category:          testCategory,
		StockQuantity:     stock,
		IsActive:          true,
		CreatedBy:         &owner,
		CreatedByUsername: "owner",
		CreatedAt:         time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC),
		UpdatedAt:         time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC),
	}
}

// stubProductService records the last call and returns canned results
type stubProductService struct {
	page    *domain.Page[*domain.Product]
	product *domain.Product
	upload  *service.ImageUpload
	err     error

	lastCaller   *authz.Caller
	lastFilter   domain.ProductFilter
	lastPage     domain.PageRequest
	lastCategory string
	lastInput    service.ProductInput
	lastPartial  bool
}

func (s *stubProductService) List(ctx context.Context, caller *authz.Caller, filter domain.ProductFilter, page domain.PageRequest) (*domain.Page[*domain.Product], error) {
	s.lastCaller, s.lastFilter, s.lastPage = caller, filter, page
	if s.err != nil {
		return nil, s.err
	}
	result := *s.page
	result.PageRequest = page
	return &result, nil
}

func (s *stubProductService) ListByCategory(ctx context.Context, caller *authz.Caller, categorySlug string, filter domain.ProductFilter, page domain.PageRequest) (*domain.Page[*domain.Product], error) {
	s.lastCategory = categorySlug
	return s.List(ctx, caller, filter, page)
}

func (s *stubProductService) Get(ctx context.Context, caller *authz.Caller, slug string) (*domain.Product, error) {
	s.lastCaller = caller
	return s.product, s.err
}

func (s *stubProductService) Create(ctx context.Context, caller *authz.Caller, in service.ProductInput) (*domain.Product, error) {
	s.lastCaller, s.lastInput = caller, in
	return s.product, s.err
}

func (s *stubProductService) Update(ctx context.Context, caller *authz.Caller, slug string, in service.ProductInput, partial bool) (*domain.Product, error) {
	s.lastCaller, s.lastInput, s.lastPartial = caller, in, partial
	return s.product, s.err
}

func (s *stubProductService) Delete(ctx context.Context, caller *authz.Caller, slug string) error {
	s.lastCaller = caller
	return s.err
}

func (s *stubProductService) PresignImage(ctx context.Context, caller *authz.Caller, slug, contentType string) (*service.ImageUpload, error) {
	s.lastCaller = caller
	return s.upload, s.err
}

func (s *stubProductService) ImageURL(key string) string {
	return "https://cdn.test/" + key
}

// stubCategoryService returns canned results
type stubCategoryService struct {
	page      *domain.Page[*domain.Category]
	category  *domain.Category
	err       error
	lastInput service.CategoryInput
}

func (s *stubCategoryService) List(ctx context.Context, page domain.PageRequest) (*domain.Page[*domain.Category], error) {
	if s.err != nil {
		return nil, s.err
	}
	result := *s.page
	result.PageRequest = page
	return &result, nil
}

func (s *stubCategoryService) Get(ctx context.Context, slug string) (*domain.Category, error) {
	return s.category, s.err
}

func (s *stubCategoryService) Create(ctx context.Context, caller *authz.Caller, in service.CategoryInput) (*domain.Category, error) {
	s.lastInput = in
	return s.category, s.err
}

func (s *stubCategoryService) Update(ctx context.Context, caller *authz.Caller, slug string, in service.CategoryInput, partial bool) (*domain.Category, error) {
	s.lastInput = in
	return s.category, s.err
}

func (s *stubCategoryService) Delete(ctx context.Context, caller *authz.Caller, slug string) error {
	return s.err
}

// stubUserService returns canned results for the auth endpoints
type stubUserService struct {
	user      *domain.User
	tokens    *service.TokenPair
	access    string
	err       error
	loggedOut string
}

func (s *stubUserService) Register(ctx context.Context, in service.RegisterInput) (*domain.User, *service.TokenPair, error) {
	return s.user, s.tokens, s.err
}

func (s *stubUserService) Login(ctx context.Context, username, password string) (*domain.User, *service.TokenPair, error) {
	return s.user, s.tokens, s.err
}

func (s *stubUserService) Logout(ctx context.Context, refreshToken string, access *service.Claims) error {
	s.loggedOut = refreshToken
	return s.err
}

func (s *stubUserService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	return s.access, s.err
}

func (s *stubUserService) ValidateToken(ctx context.Context, tokenString string) (*service.Claims, error) {
	return nil, service.ErrInvalidToken
}

func (s *stubUserService) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.user, s.err
}

func (s *stubUserService) UpdateProfile(ctx context.Context, userID uuid.UUID, in service.ProfileInput) (*domain.User, error) {
	return s.user, s.err
}

func (s *stubUserService) ChangePassword(ctx context.Context, userID uuid.UUID, in service.ChangePasswordInput) error {
	return s.err
}
