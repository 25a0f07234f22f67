package transport

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"product-catalog/internal/domain"
	"product-catalog/internal/media"
	"product-catalog/internal/middleware"
	"product-catalog/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	imagesField     = "images"
	multipartMemory = 32 << 20
)

// DeletePhotosRequest represents the delete_images payload
type DeletePhotosRequest struct {
	DeleteImages []ImageFilesRequest `json:"deleteImages" validate:"required,min=1"`
}

// ImageFilesRequest lists the files of one image to remove
type ImageFilesRequest struct {
	ID       uint   `json:"id"`
	Original string `json:"original"`
	WebP     string `json:"webp"`
	AVIF     string `json:"avif"`
}

// fileHeaderSource adapts a multipart file to media.Source
type fileHeaderSource struct {
	fh *multipart.FileHeader
}

func (s fileHeaderSource) Filename() string { return s.fh.Filename }
func (s fileHeaderSource) Size() int64      { return s.fh.Size }
func (s fileHeaderSource) Open() (io.ReadCloser, error) {
	return s.fh.Open()
}

// ImageHandler handles image upload and removal
type ImageHandler struct {
	images   service.ImageService
	products service.ProductService
	maxBody  int64
	logger   *zap.Logger
}

// NewImageHandler creates a new ImageHandler. Request bodies are capped at maxFiles*maxFileSize
// plus room for the multipart framing.
func NewImageHandler(images service.ImageService, products service.ProductService, maxFiles int, maxFileSize int64, logger *zap.Logger) *ImageHandler {
	return &ImageHandler{
		images:   images,
		products: products,
		maxBody:  int64(maxFiles)*maxFileSize + 1<<20,
		logger:   logger,
	}
}

// RegisterRoutes registers the image routes of the /admin/v1.0 group
func (h *ImageHandler) RegisterRoutes(r chi.Router) {
	r.Post("/upload_images", h.UploadImages)
	r.Post("/update_images", h.UploadImages)
	r.Delete("/delete_images", h.DeleteImages)
}

// UploadImages stores the files of the "images" field and returns their variant paths
func (h *ImageHandler) UploadImages(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.RespondWithError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		h.logger.Debug("Failed to parse upload", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "Something went wrong when uploading images")
		return
	}
	defer r.MultipartForm.RemoveAll()

	var sources []media.Source
	for _, fh := range r.MultipartForm.File[imagesField] {
		sources = append(sources, fileHeaderSource{fh: fh})
	}

	uploaded, err := h.images.Upload(r.Context(), sources)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Images uploaded", zap.Int("files", len(uploaded)))
	middleware.RespondSuccess(w, "Successfully uploaded images", uploaded)
}

// DeleteImages removes image files without touching their rows
func (h *ImageHandler) DeleteImages(w http.ResponseWriter, r *http.Request) {
	var req DeletePhotosRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	images := make([]domain.ImageVariants, len(req.DeleteImages))
	for i, image := range req.DeleteImages {
		images[i] = domain.ImageVariants{Original: image.Original, WebP: image.WebP, AVIF: image.AVIF}
	}

	report := h.products.DeletePhotos(r.Context(), images)
	if !report.AllRemoved() {
		var failed []string
		for _, o := range report.Failed() {
			failed = append(failed, o.Path)
		}
		middleware.RespondSuccess(w, "deleted images with some error in removing files", failed)
		return
	}
	middleware.RespondSuccess(w, "Successfully deleted images", nil)
}
