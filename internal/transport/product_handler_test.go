package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storefront/internal/authz"
	"storefront/internal/domain"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newProductRouter(svc *stubProductService, claims *service.Claims, uploads bool) http.Handler {
	r := chi.NewRouter()
	NewProductHandler(svc, testCatalog, uploads, zap.NewNop()).RegisterRoutes(r, withClaims(claims))
	return r
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestProductHandler_ListReturnsEnvelope(t *testing.T) {
	margherita := testProduct("Margherita", "margherita", "12.5", 3)
	margherita.Image = "products/2024/03/09/a.jpg"
	svc := &stubProductService{page: &domain.Page[*domain.Product]{
		Items: []*domain.Product{margherita, testProduct("Funghi", "funghi", "9", 0)},
		Total: 45,
	}}

	w := serve(newProductRouter(svc, nil, false), "GET", "http://shop.test/api/products?page_size=2&min_price=5&ordering=-price", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	env := decodeBody[Envelope[ProductListItem]](t, w)
	assert.Equal(t, 45, env.Count)
	require.NotNil(t, env.Next)
	assert.Equal(t, "http://shop.test/api/products?min_price=5&ordering=-price&page=2&page_size=2", *env.Next)
	assert.Nil(t, env.Previous)

	require.Len(t, env.Results, 2)
	first := env.Results[0]
	assert.Equal(t, "12.50", first.Price)
	assert.Equal(t, "Pizza", first.CategoryName)
	assert.Equal(t, testCategory.ID.String(), first.Category)
	assert.Equal(t, domain.AvailabilityLowStock, first.AvailabilityStatus)
	require.NotNil(t, first.Image)
	assert.Equal(t, "https://cdn.test/products/2024/03/09/a.jpg", *first.Image)

	second := env.Results[1]
	assert.Equal(t, "9.00", second.Price)
	assert.False(t, second.InStock)
	assert.Nil(t, second.Image)

	assert.Nil(t, svc.lastCaller)
	assert.Equal(t, domain.PageRequest{Page: 1, Size: 2}, svc.lastPage)
	assert.Equal(t, "5", svc.lastFilter.MinPrice.String())
	assert.Equal(t, domain.Ordering{Field: domain.SortByPrice, Desc: true}, svc.lastFilter.Ordering)
}

func TestProductHandler_ListRejectsMalformedFilters(t *testing.T) {
	svc := &stubProductService{page: &domain.Page[*domain.Product]{}}

	w := serve(newProductRouter(svc, nil, false), "GET", "/api/products?in_stock=perhaps&page=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := decodeBody[map[string][]string](t, w)
	assert.Contains(t, body, "in_stock")
	assert.Contains(t, body, "page")
}

func TestProductHandler_ListByCategory(t *testing.T) {
	svc := &stubProductService{page: &domain.Page[*domain.Product]{}}

	w := serve(newProductRouter(svc, nil, false), "GET", "/api/products/by-category/pizza?search=ham", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pizza", svc.lastCategory)
	assert.Equal(t, "ham", svc.lastFilter.Search)
	assert.JSONEq(t, `{"count":0,"next":null,"previous":null,"results":[]}`, w.Body.String())
}

func TestProductHandler_GetDetail(t *testing.T) {
	svc := &stubProductService{product: testProduct("Margherita", "margherita", "12", 40)}
	claims := userClaims(domain.RoleUser)

	w := serve(newProductRouter(svc, claims, false), "GET", "/api/products/margherita", "")
	require.Equal(t, http.StatusOK, w.Code)

	detail := decodeBody[ProductDetail](t, w)
	assert.Equal(t, "12.00", detail.Price)
	assert.Equal(t, domain.AvailabilityInStock, detail.AvailabilityStatus)
	require.NotNil(t, detail.Category)
	assert.Equal(t, "pizza", detail.Category.Slug)
	require.NotNil(t, detail.CreatedByUsername)
	assert.Equal(t, "owner", *detail.CreatedByUsername)

	require.NotNil(t, svc.lastCaller)
	assert.Equal(t, claims.UserID, svc.lastCaller.UserID)
}

func TestProductHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		detail string
	}{
		{"missing", service.ErrNotFound, http.StatusNotFound, "Not found."},
		{"anonymous", authz.ErrUnauthenticated, http.StatusUnauthorized, "Authentication credentials were not provided."},
		{"not owner", authz.ErrForbidden, http.StatusForbidden, "You do not have permission to perform this action."},
		{"database down", errors.New("connection refused"), http.StatusInternalServerError, "A server error occurred."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubProductService{err: tc.err}
			w := serve(newProductRouter(svc, nil, false), "DELETE", "/api/products/margherita", "")
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.detail, decodeBody[map[string]string](t, w)["detail"])
		})
	}
}

func TestProductHandler_CreateParsesPayload(t *testing.T) {
	created := testProduct("Margherita", "margherita", "12.5", 10)
	svc := &stubProductService{product: created}
	claims := userClaims(domain.RoleUser)
	body := `{"name":"Margherita","price":"12.50","category":"` + testCategory.ID.String() + `","stock_quantity":10}`

	w := serve(newProductRouter(svc, claims, false), "POST", "/api/products", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	require.NotNil(t, svc.lastInput.Price)
	assert.Equal(t, "12.5", svc.lastInput.Price.String())
	require.NotNil(t, svc.lastInput.CategoryID)
	assert.Equal(t, testCategory.ID, *svc.lastInput.CategoryID)
	assert.Equal(t, 10, *svc.lastInput.StockQuantity)
	assert.Nil(t, svc.lastInput.Description)
	assert.Equal(t, created.ID.String(), decodeBody[ProductDetail](t, w).ID)
}

func TestProductHandler_CreateAcceptsNumericPrice(t *testing.T) {
	svc := &stubProductService{product: testProduct("Funghi", "funghi", "9.99", 1)}

	w := serve(newProductRouter(svc, userClaims(domain.RoleUser), false), "POST", "/api/products", `{"name":"Funghi","price":9.99}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "9.99", svc.lastInput.Price.String())
}

func TestProductHandler_CreateRejectsBadFields(t *testing.T) {
	svc := &stubProductService{}

	w := serve(newProductRouter(svc, userClaims(domain.RoleUser), false), "POST", "/api/products", `{"name":"X","price":"abc","category":"nope"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := decodeBody[map[string][]string](t, w)
	assert.Equal(t, []string{"A valid number is required."}, body["price"])
	assert.Equal(t, []string{"“nope” is not a valid UUID."}, body["category"])
}

func TestProductHandler_ServiceFieldErrors(t *testing.T) {
	svc := &stubProductService{err: domain.NewFieldError("slug", "product with this slug already exists.")}

	w := serve(newProductRouter(svc, userClaims(domain.RoleUser), false), "POST", "/api/products", `{"name":"X"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"slug":["product with this slug already exists."]}`, w.Body.String())
}

func TestProductHandler_MalformedJSON(t *testing.T) {
	w := serve(newProductRouter(&stubProductService{}, userClaims(domain.RoleUser), false), "POST", "/api/products", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "JSON parse error")
}

func TestProductHandler_PatchIsPartial(t *testing.T) {
	svc := &stubProductService{product: testProduct("Margherita", "margherita", "12", 1)}
	router := newProductRouter(svc, userClaims(domain.RoleAdmin), false)

	w := serve(router, "PATCH", "/api/products/margherita", `{"stock_quantity":0}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.lastPartial)

	w = serve(router, "PUT", "/api/products/margherita", `{"name":"Margherita","price":"12","category":"`+testCategory.ID.String()+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, svc.lastPartial)
}

func TestProductHandler_Delete(t *testing.T) {
	w := serve(newProductRouter(&stubProductService{}, userClaims(domain.RoleAdmin), false), "DELETE", "/api/products/margherita", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestProductHandler_ImageRouteNeedsStorage(t *testing.T) {
	w := serve(newProductRouter(&stubProductService{}, userClaims(domain.RoleAdmin), false), "POST", "/api/products/margherita/image", `{"content_type":"image/png"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductHandler_ImageUpload(t *testing.T) {
	product := testProduct("Margherita", "margherita", "12", 1)
	product.Image = "products/2024/03/09/k.png"
	expires := time.Date(2024, 3, 9, 12, 15, 0, 0, time.UTC)
	svc := &stubProductService{upload: &service.ImageUpload{
		Product: product,
		Upload: &storage.PresignedUpload{
			Key:       product.Image,
			URL:       "https://bucket.test/products/2024/03/09/k.png?X-Amz-Signature=abc",
			Method:    http.MethodPut,
			Headers:   http.Header{"Content-Type": {"image/png"}},
			ExpiresAt: expires,
		},
		ImageURL: "https://cdn.test/products/2024/03/09/k.png",
	}}
	router := newProductRouter(svc, userClaims(domain.RoleUser), true)

	w := serve(router, "POST", "/api/products/margherita/image", `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"content_type":["This field is required."]}`, w.Body.String())

	w = serve(router, "POST", "/api/products/margherita/image", `{"content_type":"image/png"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decodeBody[ImageUploadResponse](t, w)
	assert.Equal(t, http.MethodPut, resp.Upload.Method)
	assert.Equal(t, product.Image, resp.Upload.Key)
	assert.Equal(t, []string{"image/png"}, resp.Upload.Headers["Content-Type"])
	assert.True(t, expires.Equal(resp.Upload.ExpiresAt))
	assert.Equal(t, "https://cdn.test/products/2024/03/09/k.png", resp.Image)
	require.NotNil(t, resp.Product.Image)
	assert.Equal(t, resp.Image, *resp.Product.Image)
}

func TestProductHandler_UploadsDisabledByService(t *testing.T) {
	svc := &stubProductService{err: service.ErrUploadsDisabled}

	w := serve(newProductRouter(svc, userClaims(domain.RoleUser), true), "POST", "/api/products/margherita/image", `{"content_type":"image/png"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRespondWithServiceError_WrappedNotFound(t *testing.T) {
	err := errors.Join(service.ErrNotFound, repository.ErrProductNotFound)
	w := httptest.NewRecorder()
	respondWithServiceError(w, httptest.NewRequest("GET", "/", nil), zap.NewNop(), err)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
