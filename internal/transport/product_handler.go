package transport

import (
	"errors"
	"net/http"

	"product-catalog/internal/domain"
	"product-catalog/internal/middleware"
	"product-catalog/internal/repository"
	"product-catalog/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ImageRequest is one uploaded image as returned by the upload endpoints
type ImageRequest struct {
	Original string `json:"original" validate:"required"`
	WebP     string `json:"webp" validate:"required"`
	AVIF     string `json:"avif" validate:"required"`
	Path     string `json:"path"`
}

func (i ImageRequest) variants() domain.ImageVariants {
	return domain.ImageVariants{Original: i.Original, WebP: i.WebP, AVIF: i.AVIF, Path: i.Path}
}

// ImageRefRequest names a stored image. Only the id is used to remove rows; the paths
// sent by clients are informational.
type ImageRefRequest struct {
	ID       uint   `json:"id" validate:"required"`
	Original string `json:"original"`
	WebP     string `json:"webp"`
	AVIF     string `json:"avif"`
}

// CreateProductRequest represents the add_product payload
type CreateProductRequest struct {
	Title       string         `json:"title" validate:"required,min=2"`
	Description string         `json:"description" validate:"required,min=10"`
	Brand       string         `json:"brand" validate:"required,min=2"`
	Type        string         `json:"type" validate:"required,min=2"`
	Price       *int64         `json:"price" validate:"required,gte=0"`
	Discount    *int64         `json:"discount" validate:"required,gte=0"`
	Images      []ImageRequest `json:"images" validate:"required,dive"`
}

// UpdateProductRequest represents the update_product payload. Absent fields are left unchanged.
type UpdateProductRequest struct {
	ID           uint              `json:"id" validate:"required"`
	Title        *string           `json:"title" validate:"omitnil,min=2"`
	Description  *string           `json:"description" validate:"omitnil,min=10"`
	Brand        *string           `json:"brand" validate:"omitnil,min=2"`
	Type         *string           `json:"type" validate:"omitnil,min=2"`
	Price        *int64            `json:"price" validate:"omitnil,gte=0"`
	Discount     *int64            `json:"discount" validate:"omitnil,gte=0"`
	Images       []ImageRequest    `json:"images" validate:"omitempty,dive"`
	DeleteImages []ImageRefRequest `json:"deleteImages" validate:"omitempty,dive"`
}

// SearchRequest represents the user search payload
type SearchRequest struct {
	Query string `json:"query"`
	Page  int    `json:"page" validate:"gte=0"`
	Limit int    `json:"limit" validate:"gte=0"`
}

// ProductHandler handles HTTP requests for the catalog
type ProductHandler struct {
	products service.ProductService
	logger   *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(products service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		products: products,
		logger:   logger,
	}
}

// RegisterAdminRoutes registers the product routes of the /admin/v1.0 group
func (h *ProductHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/test", h.Test)
	r.Get("/product/{id}", h.AdminGetProduct)
	r.Get("/products", h.ListProducts)
	r.Post("/add_product", h.CreateProduct)
	r.Put("/update_product", h.UpdateProduct)
	r.Delete("/product/{id}", h.DeleteProduct)
}

// RegisterUserRoutes registers the product routes of the /user/v1.0 group
func (h *ProductHandler) RegisterUserRoutes(r chi.Router) {
	r.Get("/product/{id}", h.UserGetProduct)
	r.Get("/products", h.ListProducts)
	r.Post("/search", h.SearchProducts)
}

func (h *ProductHandler) Test(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("admin api v1.0 test"))
}

// CreateProduct handles add_product
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	in := service.CreateProductInput{
		Title:       req.Title,
		Description: req.Description,
		Brand:       req.Brand,
		Type:        req.Type,
		Price:       *req.Price,
		Discount:    *req.Discount,
	}
	for _, image := range req.Images {
		in.Images = append(in.Images, image.variants())
	}

	product, err := h.products.Create(r.Context(), in)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Product created", zap.Uint("product_id", product.ID), zap.Int("images", len(product.Images)))
	middleware.RespondSuccess(w, "added product successfully", nil)
}

// UpdateProduct handles update_product
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req UpdateProductRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	in := service.UpdateProductInput{
		ID: req.ID,
		Patch: domain.ProductPatch{
			Title:       req.Title,
			Description: req.Description,
			Brand:       req.Brand,
			Type:        req.Type,
			Price:       req.Price,
			Discount:    req.Discount,
		},
	}
	for _, image := range req.Images {
		in.Images = append(in.Images, image.variants())
	}
	for _, image := range req.DeleteImages {
		in.DeleteImageIDs = append(in.DeleteImageIDs, image.ID)
	}

	result, err := h.products.Update(r.Context(), in)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	if result.Partial() {
		middleware.RespondSuccess(w, "updated products with some error in removing images", failedPaths(result))
		return
	}
	middleware.RespondSuccess(w, "updated product successfully", nil)
}

// DeleteProduct removes a product with its images and wishlist entries
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, "Product not found")
		return
	}

	result, err := h.products.Delete(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	if result.Partial() {
		middleware.RespondSuccess(w, "deleted product with some error in removing images", failedPaths(result))
		return
	}
	middleware.RespondSuccess(w, "deleted product successfully", nil)
}

// AdminGetProduct returns a product with its images and likes
func (h *ProductHandler) AdminGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, "Product not found")
		return
	}

	product, err := h.products.Get(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	middleware.RespondSuccess(w, "successful", product)
}

// UserGetProduct counts a view and returns the product
func (h *ProductHandler) UserGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, "Product not found")
		return
	}

	viewErr := h.products.RecordView(r.Context(), id)
	if viewErr != nil && !errors.Is(viewErr, repository.ErrProductNotFound) {
		h.logger.Warn("Failed to record product view", zap.Uint("product_id", id), zap.Error(viewErr))
	}

	product, err := h.products.Get(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	if viewErr != nil {
		middleware.RespondSuccess(w, "successful but unable to increment views", product)
		return
	}
	middleware.RespondSuccess(w, "successful", product)
}

// ListProducts returns one page of products, newest first
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, err := h.products.List(r.Context(), queryInt(r, "page"), queryInt(r, "limit"))
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	middleware.RespondSuccess(w, "successful", page)
}

// SearchProducts matches the query against title, brand, type and price
func (h *ProductHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	page, err := h.products.Search(r.Context(), req.Query, req.Page, req.Limit)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	middleware.RespondSuccess(w, "successful", page)
}

func failedPaths(result *service.MutationResult) []string {
	var paths []string
	for _, o := range result.Removal.Failed() {
		paths = append(paths, o.Path)
	}
	return paths
}
