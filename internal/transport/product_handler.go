package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductRequest is the create/update payload. Absent fields stay nil so PATCH can tell them apart.
// Price accepts both "12.50" and 12.5.
type ProductRequest struct {
	Name          *string         `json:"name"`
	Description   *string         `json:"description"`
	Price         json.RawMessage `json:"price"`
	Category      *string         `json:"category"`
	StockQuantity *int            `json:"stock_quantity"`
	IsActive      *bool           `json:"is_active"`
}

// ImageUploadRequest asks for a presigned upload slot
type ImageUploadRequest struct {
	ContentType string `json:"content_type" validate:"required"`
}

// PresignedUploadResponse tells the client where to PUT the image
type PresignedUploadResponse struct {
	URL       string              `json:"url"`
	Method    string              `json:"method"`
	Headers   map[string][]string `json:"headers"`
	Key       string              `json:"key"`
	ExpiresAt time.Time           `json:"expires_at"`
}

// ImageUploadResponse is returned by POST /api/products/{slug}/image
type ImageUploadResponse struct {
	Upload  PresignedUploadResponse `json:"upload"`
	Image   string                  `json:"image"`
	Product ProductDetail           `json:"product"`
}

// ProductHandler handles HTTP requests for the product catalog
type ProductHandler struct {
	productService service.ProductService
	catalog        config.CatalogConfig
	presenter      productPresenter
	uploadsEnabled bool
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler. The image route is only
// registered when uploadsEnabled is set.
func NewProductHandler(productService service.ProductService, catalog config.CatalogConfig, uploadsEnabled bool, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		catalog:        catalog,
		presenter: productPresenter{
			lowStockThreshold: catalog.LowStockThreshold,
			imageURL:          productService.ImageURL,
		},
		uploadsEnabled: uploadsEnabled,
		logger:         logger,
	}
}

// RegisterRoutes registers all product routes. authMiddleware should let anonymous
// callers through; the service decides what they may do.
func (h *ProductHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/by-category/{category_slug}", h.ListByCategory)
		r.Get("/{slug}", h.Get)
		r.Put("/{slug}", h.Update)
		r.Patch("/{slug}", h.Update)
		r.Delete("/{slug}", h.Delete)
		if h.uploadsEnabled {
			r.Post("/{slug}/image", h.UploadImage)
		}
	})
}

// List handles GET /api/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, page, ok := h.parseListQuery(w, r)
	if !ok {
		return
	}

	result, err := h.productService.List(r.Context(), middleware.CallerFromContext(r.Context()), filter, page)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newEnvelope(r, result, h.presenter.listItem))
}

// ListByCategory handles GET /api/products/by-category/{category_slug}
func (h *ProductHandler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	filter, page, ok := h.parseListQuery(w, r)
	if !ok {
		return
	}

	categorySlug := chi.URLParam(r, "category_slug")
	result, err := h.productService.ListByCategory(r.Context(), middleware.CallerFromContext(r.Context()), categorySlug, filter, page)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newEnvelope(r, result, h.presenter.listItem))
}

func (h *ProductHandler) parseListQuery(w http.ResponseWriter, r *http.Request) (domain.ProductFilter, domain.PageRequest, bool) {
	q := r.URL.Query()
	filter, errs := parseProductFilter(q)
	page := parsePageRequest(q, h.catalog, errs)
	if len(errs) > 0 {
		middleware.RespondWithFieldErrors(w, errs)
		return filter, page, false
	}
	return filter, page, true
}

// Get handles GET /api/products/{slug}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.productService.Get(r.Context(), middleware.CallerFromContext(r.Context()), chi.URLParam(r, "slug"))
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, h.presenter.detail(product))
}

// Create handles POST /api/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}

	caller := middleware.CallerFromContext(r.Context())
	product, err := h.productService.Create(r.Context(), caller, in)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("slug", product.Slug),
		zap.String("user_id", caller.UserID.String()),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, h.presenter.detail(product))
}

// Update handles PUT and PATCH /api/products/{slug}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}

	partial := r.Method == http.MethodPatch
	product, err := h.productService.Update(r.Context(), middleware.CallerFromContext(r.Context()), chi.URLParam(r, "slug"), in, partial)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, h.presenter.detail(product))
}

// Delete handles DELETE /api/products/{slug}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if err := h.productService.Delete(r.Context(), middleware.CallerFromContext(r.Context()), slug); err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("Product deleted", zap.String("slug", slug))
	w.WriteHeader(http.StatusNoContent)
}

// UploadImage handles POST /api/products/{slug}/image
func (h *ProductHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	var req ImageUploadRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithBindError(w, err)
		return
	}

	result, err := h.productService.PresignImage(r.Context(), middleware.CallerFromContext(r.Context()), chi.URLParam(r, "slug"), req.ContentType)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ImageUploadResponse{
		Upload: PresignedUploadResponse{
			URL:       result.Upload.URL,
			Method:    result.Upload.Method,
			Headers:   result.Upload.Headers,
			Key:       result.Upload.Key,
			ExpiresAt: result.Upload.ExpiresAt,
		},
		Image:   result.ImageURL,
		Product: h.presenter.detail(result.Product),
	})
}

// decodeProduct reads the body and converts it to a service input, answering 400 itself on failure
func (h *ProductHandler) decodeProduct(w http.ResponseWriter, r *http.Request) (service.ProductInput, bool) {
	var req ProductRequest
	if err := middleware.Decode(r, &req); err != nil {
		h.logger.Debug("Product payload rejected", zap.Error(err))
		middleware.RespondWithBindError(w, err)
		return service.ProductInput{}, false
	}

	in, errs := req.toInput()
	if len(errs) > 0 {
		middleware.RespondWithFieldErrors(w, errs)
		return in, false
	}
	return in, true
}

func (req ProductRequest) toInput() (service.ProductInput, domain.FieldErrors) {
	errs := domain.FieldErrors{}
	in := service.ProductInput{
		Name:          req.Name,
		Description:   req.Description,
		StockQuantity: req.StockQuantity,
		IsActive:      req.IsActive,
	}

	if price, ok := parseJSONDecimal(req.Price); !ok {
		errs.Add("price", "A valid number is required.")
	} else {
		in.Price = price
	}

	if req.Category != nil {
		raw := strings.TrimSpace(*req.Category)
		if raw == "" {
			errs.Add("category", "This field may not be null.")
		} else if id, err := uuid.Parse(raw); err != nil {
			errs.Add("category", fmt.Sprintf("“%s” is not a valid UUID.", raw))
		} else {
			in.CategoryID = &id
		}
	}

	return in, errs
}

// parseJSONDecimal accepts a JSON string or number. A missing or null value yields nil.
func parseJSONDecimal(raw json.RawMessage) (*decimal.Decimal, bool) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return nil, true
	}
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, false
		}
		text = strings.TrimSpace(s)
	}

	value, err := decimal.NewFromString(text)
	if err != nil {
		return nil, false
	}
	return &value, true
}
