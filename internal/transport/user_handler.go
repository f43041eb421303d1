package transport

import (
	"errors"
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/metrics"
	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Username        string `json:"username" validate:"required,max=150"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required"`
	FirstName       string `json:"first_name" validate:"required,max=150"`
	LastName        string `json:"last_name" validate:"required,max=150"`
	Phone           string `json:"phone" validate:"max=20"`
	Address         string `json:"address"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries a refresh token
type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

// ProfileUpdateRequest is a partial profile update
type ProfileUpdateRequest struct {
	Email     *string `json:"email" validate:"omitempty,email"`
	FirstName *string `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string `json:"last_name" validate:"omitempty,max=150"`
	Phone     *string `json:"phone" validate:"omitempty,max=20"`
	Address   *string `json:"address"`
}

// ChangePasswordRequest represents the change-password payload
type ChangePasswordRequest struct {
	OldPassword        string `json:"old_password" validate:"required"`
	NewPassword        string `json:"new_password" validate:"required"`
	NewPasswordConfirm string `json:"new_password_confirm" validate:"required"`
}

// TokensResponse is the token pair issued on registration and login
type TokensResponse struct {
	Refresh string `json:"refresh"`
	Access  string `json:"access"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	User    UserProfile    `json:"user"`
	Tokens  TokensResponse `json:"tokens"`
	Message string         `json:"message"`
}

// RefreshResponse represents the token refresh response
type RefreshResponse struct {
	Access string `json:"access"`
}

// MessageResponse is a plain confirmation
type MessageResponse struct {
	Message string `json:"message"`
}

const (
	msgRefreshRequired     = "Refresh token is required"
	msgInvalidRefreshToken = "Invalid token or token already blacklisted"
	msgTokenNotValid       = "Token is invalid or expired"
)

// UserHandler handles HTTP requests for authentication and the caller's profile
type UserHandler struct {
	userService service.UserService
	metrics     *metrics.HTTPMetrics
	logger      *zap.Logger
}

// NewUserHandler creates a new UserHandler. m may be nil when metrics are disabled.
func NewUserHandler(userService service.UserService, m *metrics.HTTPMetrics, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		metrics:     m,
		logger:      logger,
	}
}

// RegisterRoutes registers all auth routes. extra wraps every route, e.g. rate limiting.
func (h *UserHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler, extra ...func(http.Handler) http.Handler) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Use(extra...)

		// Public routes
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.RefreshToken)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/logout", h.Logout)
			r.Get("/me", h.GetProfile)
			r.Put("/me", h.UpdateProfile)
			r.Patch("/me", h.UpdateProfile)
			r.Post("/change-password", h.ChangePassword)
		})
	})
}

// Register handles user registration
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Registration validation failed", zap.Error(err))
		middleware.RespondWithBindError(w, err)
		return
	}

	user, tokens, err := h.userService.Register(r.Context(), service.RegisterInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Phone:           req.Phone,
		Address:         req.Address,
	})
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("User registered successfully", zap.String("user_id", user.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, newAuthResponse(user, tokens, "User registered successfully"))
}

// Login handles user authentication
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Login validation failed", zap.Error(err))
		middleware.RespondWithBindError(w, err)
		return
	}

	user, tokens, err := h.userService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			h.metrics.ObserveAuth(metrics.AuthFailure)
			middleware.RespondWithFieldErrors(w, domain.NewFieldError(domain.NonFieldErrors, "Unable to log in with provided credentials."))
		case errors.Is(err, service.ErrAccountDisabled):
			h.metrics.ObserveAuth(metrics.AuthFailure)
			middleware.RespondWithFieldErrors(w, domain.NewFieldError(domain.NonFieldErrors, "User account is disabled."))
		default:
			respondWithServiceError(w, r, h.logger, err)
		}
		return
	}

	h.metrics.ObserveAuth(metrics.AuthSuccess)
	h.logger.Info("User logged in successfully", zap.String("user_id", user.ID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, newAuthResponse(user, tokens, "Login successful"))
}

// Logout revokes the refresh token and blacklists the access token used for the request
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := middleware.Decode(r, &req); err != nil {
		middleware.RespondWithBindError(w, err)
		return
	}
	if req.Refresh == "" {
		middleware.RespondWithError(w, http.StatusBadRequest, msgRefreshRequired)
		return
	}

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, middleware.MsgMissingCredentials)
		return
	}
	if err := h.userService.Logout(r.Context(), req.Refresh, claims); err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			middleware.RespondWithError(w, http.StatusBadRequest, msgInvalidRefreshToken)
			return
		}
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("User logged out successfully", zap.String("user_id", claims.UserID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Message: "Logout successful"})
}

// RefreshToken exchanges a refresh token for a new access token
func (h *UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithBindError(w, err)
		return
	}

	access, err := h.userService.RefreshToken(r.Context(), req.Refresh)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) || errors.Is(err, service.ErrTokenExpired) {
			h.logger.Debug("Token refresh rejected", zap.Error(err))
			middleware.RespondWithError(w, http.StatusUnauthorized, msgTokenNotValid)
			return
		}
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, RefreshResponse{Access: access})
}

// GetProfile returns the caller's profile
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, middleware.MsgMissingCredentials)
		return
	}

	user, err := h.userService.GetUserByID(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newUserProfile(user))
}

// UpdateProfile applies a partial update for PUT and PATCH alike
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, middleware.MsgMissingCredentials)
		return
	}

	var req ProfileUpdateRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithBindError(w, err)
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, service.ProfileInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Address:   req.Address,
	})
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, newUserProfile(user))
}

// ChangePassword verifies the old password and stores the new one
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, middleware.MsgMissingCredentials)
		return
	}

	var req ChangePasswordRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithBindError(w, err)
		return
	}

	err := h.userService.ChangePassword(r.Context(), userID, service.ChangePasswordInput{
		OldPassword:        req.OldPassword,
		NewPassword:        req.NewPassword,
		NewPasswordConfirm: req.NewPasswordConfirm,
	})
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("Password changed", zap.String("user_id", userID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Message: "Password changed successfully"})
}

func newAuthResponse(user *domain.User, tokens *service.TokenPair, message string) AuthResponse {
	return AuthResponse{
		User: newUserProfile(user),
		Tokens: TokensResponse{
			Refresh: tokens.Refresh,
			Access:  tokens.Access,
		},
		Message: message,
	}
}
