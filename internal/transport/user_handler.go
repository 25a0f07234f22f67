package transport

import (
	"net/http"
	"time"

	"product-catalog/internal/middleware"
	"product-catalog/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SignUpRequest represents the signup request payload
type SignUpRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=30"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is the user profile together with the access token
type LoginResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Token     string    `json:"token"`
}

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	userService service.UserService
	logger      *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// RegisterRoutes registers the account routes of the /user/v1.0 group behind the rate limiter
func (h *UserHandler) RegisterRoutes(r chi.Router, rateLimit func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(rateLimit)
		r.Post("/signup", h.SignUp)
		r.Post("/login", h.Login)
	})
}

// SignUp handles user registration
func (h *UserHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	user, err := h.userService.SignUp(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.logger.Debug("Sign up failed", zap.Error(err))
		respondWithServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("User signed up", zap.Uint("user_id", user.ID))
	middleware.RespondSuccess(w, "You have signed up successfully", nil)
}

// Login handles user authentication
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	result, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Debug("Login failed", zap.Error(err))
		respondWithServiceError(w, h.logger, err)
		return
	}

	user := result.User
	response := LoginResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
		Token:     result.Token,
	}

	h.logger.Info("User logged in", zap.Uint("user_id", user.ID))
	middleware.RespondSuccess(w, "You have logged in successfully", response)
}
