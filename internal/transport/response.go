package transport

import (
	"errors"
	"net/http"
	"strconv"

	"product-catalog/internal/auth"
	"product-catalog/internal/media"
	"product-catalog/internal/middleware"
	"product-catalog/internal/repository"
	"product-catalog/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const genericErrorMessage = "Something went wrong"

// decodeRequest decodes and validates the JSON body into v. On failure the 400 response
// has already been written.
func decodeRequest(w http.ResponseWriter, r *http.Request, v any, logger *zap.Logger) bool {
	err := middleware.DecodeAndValidate(r, v)
	if err == nil {
		return true
	}

	var reqErrs middleware.RequestErrors
	if errors.As(err, &reqErrs) {
		logger.Debug("Request validation failed", zap.String("path", r.URL.Path), zap.Error(err))
		middleware.RespondWithValidationErrors(w, reqErrs)
		return false
	}

	logger.Error("Failed to validate request", zap.Error(err))
	middleware.RespondWithError(w, http.StatusInternalServerError, genericErrorMessage)
	return false
}

// respondWithServiceError maps service and store errors to envelope responses
func respondWithServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "Product not found")
	case errors.Is(err, repository.ErrUserNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, repository.ErrWishlistEntryNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "Product not found in wishlist")
	case errors.Is(err, repository.ErrUserAlreadyExists):
		middleware.RespondWithError(w, http.StatusConflict, "User already exists")
	case errors.Is(err, repository.ErrWishlistEntryExists):
		middleware.RespondWithError(w, http.StatusConflict, "Product already exists in wishlist")
	case errors.Is(err, service.ErrInvalidPassword):
		middleware.RespondWithError(w, http.StatusUnauthorized, "Invalid password")
	case errors.Is(err, auth.ErrExpiredToken):
		middleware.RespondWithError(w, http.StatusUnauthorized, "token expired")
	case errors.Is(err, auth.ErrInvalidToken):
		middleware.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
	case errors.Is(err, service.ErrImageFileMissing):
		middleware.RespondWithError(w, http.StatusBadRequest, "image files do not exist, upload them first")
	case errors.Is(err, service.ErrImageFileInUse):
		middleware.RespondWithError(w, http.StatusConflict, "image files are already used by another image")
	case errors.Is(err, media.ErrUnsupportedMediaType):
		middleware.RespondWithError(w, http.StatusUnsupportedMediaType, "Only .png, .jpg and .jpeg format allowed!")
	case errors.Is(err, media.ErrFileTooLarge):
		middleware.RespondWithError(w, http.StatusRequestEntityTooLarge, "File too large")
	case errors.Is(err, media.ErrTooManyFiles):
		middleware.RespondWithError(w, http.StatusBadRequest, "Too many files")
	case errors.Is(err, media.ErrNoFiles):
		middleware.RespondWithError(w, http.StatusBadRequest, `"images" is required`)
	default:
		logger.Error("Request failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, genericErrorMessage)
	}
}

// pathID parses a positive numeric route parameter
func pathID(r *http.Request, name string) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// queryInt returns the query parameter as an int, or 0 when absent or malformed
func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return n
}
