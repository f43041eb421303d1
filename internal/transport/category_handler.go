package transport

import (
	"net/http"

	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CategoryRequest is the create/update payload; absent fields stay nil
type CategoryRequest struct {
	Name        *string `json:"name"`
	Slug        *string `json:"slug"`
	Description *string `json:"description"`
}

// CategoryHandler handles HTTP requests for product categories
type CategoryHandler struct {
	categoryService service.CategoryService
	catalog         config.CatalogConfig
	logger          *zap.Logger
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService service.CategoryService, catalog config.CatalogConfig, logger *zap.Logger) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
		catalog:         catalog,
		logger:          logger,
	}
}

// RegisterRoutes registers all category routes
func (h *CategoryHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/categories", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{slug}", h.Get)
		r.Put("/{slug}", h.Update)
		r.Patch("/{slug}", h.Update)
		r.Delete("/{slug}", h.Delete)
	})
}

// List handles GET /api/categories
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	errs := domain.FieldErrors{}
	page := parsePageRequest(r.URL.Query(), h.catalog, errs)
	if len(errs) > 0 {
		middleware.RespondWithFieldErrors(w, errs)
		return
	}

	result, err := h.categoryService.List(r.Context(), page)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newEnvelope(r, result, newCategoryResponse))
}

// Get handles GET /api/categories/{slug}
func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	category, err := h.categoryService.Get(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newCategoryResponse(category))
}

// Create handles POST /api/categories
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if err := middleware.Decode(r, &req); err != nil {
		middleware.RespondWithBindError(w, err)
		return
	}

	category, err := h.categoryService.Create(r.Context(), middleware.CallerFromContext(r.Context()), req.toInput())
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("Category created", zap.String("category_id", category.ID.String()), zap.String("slug", category.Slug))
	middleware.RespondWithJSON(w, http.StatusCreated, newCategoryResponse(category))
}

// Update handles PUT and PATCH /api/categories/{slug}
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if err := middleware.Decode(r, &req); err != nil {
		middleware.RespondWithBindError(w, err)
		return
	}

	partial := r.Method == http.MethodPatch
	category, err := h.categoryService.Update(r.Context(), middleware.CallerFromContext(r.Context()), chi.URLParam(r, "slug"), req.toInput(), partial)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newCategoryResponse(category))
}

// Delete handles DELETE /api/categories/{slug}
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if err := h.categoryService.Delete(r.Context(), middleware.CallerFromContext(r.Context()), slug); err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("Category deleted", zap.String("slug", slug))
	w.WriteHeader(http.StatusNoContent)
}

func (req CategoryRequest) toInput() service.CategoryInput {
	return service.CategoryInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
	}
}
