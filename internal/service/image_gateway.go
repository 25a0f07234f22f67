package service

import (
	"context"
	"errors"
	"fmt"

	"product-catalog/internal/domain"
	"product-catalog/internal/media"
	"product-catalog/internal/metrics"
	"product-catalog/internal/repository"

	"go.uber.org/zap"
)

var (
	ErrImageFileMissing = errors.New("image files do not exist")
	ErrImageFileInUse   = errors.New("image files already belong to another image")
)

// FileStore is the part of the image disk store the gateway needs
type FileStore interface {
	PublicDir() string
	Exists(publicPath string) bool
	Remove(ctx context.Context, publicPaths []string) media.RemovalReport
}

// ImageGateway persists image rows and removes their files. Row writes always go through
// the repository passed in, so they take part in the caller's transaction.
type ImageGateway struct {
	files   FileStore
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewImageGateway(files FileStore, m *metrics.Metrics, logger *zap.Logger) *ImageGateway {
	return &ImageGateway{files: files, metrics: m, logger: logger}
}

// CreateImage inserts an image row for productID after checking its three files exist
// and that no other row uses them. Removing one row's files must never break another.
func (g *ImageGateway) CreateImage(ctx context.Context, images repository.ImageRepository, productID uint, v domain.ImageVariants) (*domain.Image, error) {
	files := []string{v.Original, v.WebP, v.AVIF}
	for _, p := range files {
		if p == "" || !g.files.Exists(p) {
			return nil, fmt.Errorf("%q: %w", p, ErrImageFileMissing)
		}
	}

	used, err := images.CountReferencing(ctx, files)
	if err != nil {
		return nil, err
	}
	if used > 0 {
		return nil, fmt.Errorf("%q: %w", v.Original, ErrImageFileInUse)
	}

	dir := v.Path
	if dir == "" {
		dir = g.files.PublicDir()
	}

	image := &domain.Image{
		Original:  v.Original,
		WebP:      v.WebP,
		AVIF:      v.AVIF,
		Path:      dir,
		ProductID: productID,
	}
	if err := images.Create(ctx, image); err != nil {
		return nil, err
	}
	return image, nil
}

// DeleteImagesByIDs removes the rows with the given ids. Unknown ids are not an error.
func (g *ImageGateway) DeleteImagesByIDs(ctx context.Context, images repository.ImageRepository, ids []uint) error {
	deleted, err := images.DeleteByIDs(ctx, ids)
	if err != nil {
		return err
	}
	g.logger.Debug("Deleted image rows", zap.Int("requested", len(ids)), zap.Int64("deleted", deleted))
	return nil
}

// DeleteFiles tries every path and reports the outcome of each
func (g *ImageGateway) DeleteFiles(ctx context.Context, paths []string) media.RemovalReport {
	report := g.files.Remove(ctx, paths)

	failed := report.Failed()
	g.metrics.ObserveRemovals(len(report.Outcomes)-len(failed), len(failed))
	for _, o := range failed {
		g.logger.Warn("Failed to remove image file", zap.String("path", o.Path), zap.Error(o.Err))
	}

	return report
}
