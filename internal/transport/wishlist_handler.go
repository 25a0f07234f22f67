package transport

import (
	"fmt"
	"net/http"

	"product-catalog/internal/middleware"
	"product-catalog/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// WishlistRequest represents the add/remove wishlist payload
type WishlistRequest struct {
	ProductID uint `json:"productId" validate:"required"`
}

// WishlistHandler handles the caller's wishlist
type WishlistHandler struct {
	wishlists service.WishlistService
	logger    *zap.Logger
}

// NewWishlistHandler creates a new WishlistHandler
func NewWishlistHandler(wishlists service.WishlistService, logger *zap.Logger) *WishlistHandler {
	return &WishlistHandler{wishlists: wishlists, logger: logger}
}

// RegisterRoutes registers the wishlist routes of the /user/v1.0 group
func (h *WishlistHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/wishlist", h.Add)
		r.Delete("/wishlist", h.Remove)
		r.Get("/wishlist", h.List)
	})
}

func (h *WishlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req WishlistRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	if _, err := h.wishlists.Add(r.Context(), userID, req.ProductID); err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	middleware.RespondSuccess(w, "Product added to wishlist successfully", nil)
}

func (h *WishlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req WishlistRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	if err := h.wishlists.Remove(r.Context(), userID, req.ProductID); err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	middleware.RespondSuccess(w, "Product removed from wishlist successfully", nil)
}

func (h *WishlistHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}

	products, err := h.wishlists.List(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	middleware.RespondSuccess(w, fmt.Sprintf("found %d wishlist products", len(products)), products)
}

func (h *WishlistHandler) caller(w http.ResponseWriter, r *http.Request) (uint, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Error("User ID not found in context")
		middleware.RespondWithError(w, http.StatusUnauthorized, "No token provided")
		return 0, false
	}
	return userID, true
}
