package service

import (
	"context"
	"fmt"
	"time"

	"product-catalog/internal/domain"
	"product-catalog/internal/events"
	"product-catalog/internal/media"
	"product-catalog/internal/metrics"
	"product-catalog/internal/repository"

	"go.uber.org/zap"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type CreateProductInput struct {
	Title       string
	Description string
	Brand       string
	Type        string
	Price       int64
	Discount    int64
	Images      []domain.ImageVariants
}

type UpdateProductInput struct {
	ID             uint
	Patch          domain.ProductPatch
	Images         []domain.ImageVariants
	DeleteImageIDs []uint
}

// MutationResult describes what happened to the files of a committed change
type MutationResult struct {
	ProductID uint
	Removal   media.RemovalReport
}

// Partial reports whether the rows were committed but some files could not be removed
func (r *MutationResult) Partial() bool {
	return !r.Removal.AllRemoved()
}

// ProductService defines the product aggregate operations
type ProductService interface {
	Create(ctx context.Context, in CreateProductInput) (*domain.Product, error)
	Update(ctx context.Context, in UpdateProductInput) (*MutationResult, error)
	Delete(ctx context.Context, id uint) (*MutationResult, error)
	DeletePhotos(ctx context.Context, images []domain.ImageVariants) media.RemovalReport
	Get(ctx context.Context, id uint) (*domain.ProductView, error)
	RecordView(ctx context.Context, id uint) error
	List(ctx context.Context, page, limit int) (*domain.ProductPage, error)
	Search(ctx context.Context, query string, page, limit int) (*domain.ProductPage, error)
}

type ProductServiceConfig struct {
	OperationTimeout time.Duration
	RecordViews      bool
}

type productService struct {
	store     repository.Store
	gateway   *ImageGateway
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
	cfg       ProductServiceConfig
}

// NewProductService creates a new instance of ProductService
func NewProductService(
	store repository.Store,
	gateway *ImageGateway,
	publisher events.Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
	cfg ProductServiceConfig,
) ProductService {
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = 5 * time.Second
	}
	return &productService{
		store:     store,
		gateway:   gateway,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		cfg:       cfg,
	}
}

// Create inserts the product and all of its images atomically
func (s *productService) Create(ctx context.Context, in CreateProductInput) (*domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	product := &domain.Product{
		Title:       in.Title,
		Description: in.Description,
		Brand:       in.Brand,
		Type:        in.Type,
		Price:       in.Price,
		Discount:    in.Discount,
	}

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Products().Create(ctx, product); err != nil {
			return err
		}
		for _, v := range in.Images {
			image, err := s.gateway.CreateImage(ctx, tx.Images(), product.ID, v)
			if err != nil {
				return err
			}
			product.Images = append(product.Images, *image)
		}
		return nil
	})
	if err != nil {
		s.observe("create", "error")
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.observe("create", "success")
	s.publish(ctx, events.ProductCreated, product.ID, imageIDs(product.Images))
	return product, nil
}

// Update applies the patch, appends new images and drops the listed ones in one
// transaction. Files of dropped images are removed after commit.
func (s *productService) Update(ctx context.Context, in UpdateProductInput) (*MutationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	var added []uint
	var dropped []domain.Image

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Products().Update(ctx, in.ID, in.Patch); err != nil {
			return err
		}

		for _, v := range in.Images {
			image, err := s.gateway.CreateImage(ctx, tx.Images(), in.ID, v)
			if err != nil {
				return err
			}
			added = append(added, image.ID)
		}

		if len(in.DeleteImageIDs) == 0 {
			return nil
		}
		found, err := tx.Images().FindByIDs(ctx, in.ID, in.DeleteImageIDs)
		if err != nil {
			return err
		}
		dropped = found
		return s.gateway.DeleteImagesByIDs(ctx, tx.Images(), imageIDs(found))
	})
	if err != nil {
		s.observe("update", "error")
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	cleanupCtx, cancelCleanup := s.afterCommit(ctx)
	defer cancelCleanup()

	result := &MutationResult{ProductID: in.ID, Removal: s.gateway.DeleteFiles(cleanupCtx, imageFiles(dropped))}
	s.observe("update", outcome(result))
	s.publish(ctx, events.ProductUpdated, in.ID, append(added, imageIDs(dropped)...))
	return result, nil
}

// Delete removes the product with its images and wishlist entries, then its files
func (s *productService) Delete(ctx context.Context, id uint) (*MutationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	var dropped []domain.Image
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		images, err := tx.Images().ListByProduct(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.Wishlists().DeleteByProduct(ctx, id); err != nil {
			return err
		}
		if _, err := tx.Images().DeleteByProduct(ctx, id); err != nil {
			return err
		}
		if err := tx.Products().Delete(ctx, id); err != nil {
			return err
		}
		dropped = images
		return nil
	})
	if err != nil {
		s.observe("delete", "error")
		return nil, fmt.Errorf("failed to delete product: %w", err)
	}

	cleanupCtx, cancelCleanup := s.afterCommit(ctx)
	defer cancelCleanup()

	result := &MutationResult{ProductID: id, Removal: s.gateway.DeleteFiles(cleanupCtx, imageFiles(dropped))}
	s.observe("delete", outcome(result))
	s.publish(ctx, events.ProductDeleted, id, imageIDs(dropped))
	return result, nil
}

// DeletePhotos removes the files of the given images. Rows are left alone.
func (s *productService) DeletePhotos(ctx context.Context, images []domain.ImageVariants) media.RemovalReport {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	var paths []string
	for _, v := range images {
		paths = append(paths, v.Files()...)
	}
	return s.gateway.DeleteFiles(ctx, paths)
}

func (s *productService) Get(ctx context.Context, id uint) (*domain.ProductView, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	product, err := s.store.Products().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	views, err := s.withLikes(ctx, []*domain.Product{product})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// RecordView counts one view of the product. It does nothing when view recording is off.
func (s *productService) RecordView(ctx context.Context, id uint) error {
	if !s.cfg.RecordViews {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	return s.store.Products().IncrementViews(ctx, id)
}

func (s *productService) List(ctx context.Context, page, limit int) (*domain.ProductPage, error) {
	page, limit = normalizePage(page, limit)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	products, total, err := s.store.Products().List(ctx, limit*(page-1), limit)
	if err != nil {
		return nil, err
	}
	return s.page(ctx, products, total, page, limit)
}

func (s *productService) Search(ctx context.Context, query string, page, limit int) (*domain.ProductPage, error) {
	page, limit = normalizePage(page, limit)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	products, total, err := s.store.Products().Search(ctx, query, limit*(page-1), limit)
	if err != nil {
		return nil, err
	}
	return s.page(ctx, products, total, page, limit)
}

func (s *productService) page(ctx context.Context, products []*domain.Product, total int64, page, limit int) (*domain.ProductPage, error) {
	views, err := s.withLikes(ctx, products)
	if err != nil {
		return nil, err
	}
	return domain.NewProductPage(views, total, page, limit), nil
}

func (s *productService) withLikes(ctx context.Context, products []*domain.Product) ([]*domain.ProductView, error) {
	return attachLikes(ctx, s.store.Wishlists(), products)
}

func (s *productService) observe(op, result string) {
	s.metrics.ProductMutations.WithLabelValues(op, result).Inc()
}

// afterCommit gives work that follows a commit its own deadline, detached from the request
func (s *productService) afterCommit(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.cfg.OperationTimeout)
}

// publish hands a committed change to the event publisher. Failures are logged only.
func (s *productService) publish(ctx context.Context, t events.Type, productID uint, imageIDs []uint) {
	ctx, cancel := s.afterCommit(ctx)
	defer cancel()

	result := "success"
	if err := s.publisher.Publish(ctx, events.NewEvent(t, productID, imageIDs)); err != nil {
		result = "error"
		s.logger.Warn("Failed to publish catalog event",
			zap.String("type", string(t)),
			zap.Uint("product_id", productID),
			zap.Error(err),
		)
	}
	s.metrics.EventsPublished.WithLabelValues(string(t), result).Inc()
}

// attachLikes wraps products in read models carrying their like counts, using one grouped query
func attachLikes(ctx context.Context, wishlists repository.WishlistRepository, products []*domain.Product) ([]*domain.ProductView, error) {
	ids := make([]uint, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}

	counts, err := wishlists.CountByProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]*domain.ProductView, len(products))
	for i, p := range products {
		if p.Images == nil {
			p.Images = []domain.Image{}
		}
		views[i] = &domain.ProductView{Product: p, Likes: counts[p.ID]}
	}
	return views, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

func imageIDs(images []domain.Image) []uint {
	ids := make([]uint, len(images))
	for i, image := range images {
		ids[i] = image.ID
	}
	return ids
}

func imageFiles(images []domain.Image) []string {
	var files []string
	for _, image := range images {
		files = append(files, image.Files()...)
	}
	return files
}

func outcome(r *MutationResult) string {
	if r.Partial() {
		return "partial"
	}
	return "success"
}
