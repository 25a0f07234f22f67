package service

import (
	"context"
	"fmt"

	"product-catalog/internal/domain"
	"product-catalog/internal/media"
	"product-catalog/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// VariantGenerator derives the web encodings of one saved source image
type VariantGenerator interface {
	Generate(ctx context.Context, sourcePath, sourceName, destDir string) (media.Variants, error)
}

type UploadLimits struct {
	MaxFiles    int
	MaxFileSize int64
	Workers     int
}

// ImageService defines the upload pipeline
type ImageService interface {
	Upload(ctx context.Context, sources []media.Source) ([]domain.ImageVariants, error)
}

type imageService struct {
	store     *media.DiskStore
	generator VariantGenerator
	limits    UploadLimits
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewImageService creates a new instance of ImageService
func NewImageService(store *media.DiskStore, generator VariantGenerator, limits UploadLimits, m *metrics.Metrics, logger *zap.Logger) ImageService {
	if limits.Workers < 1 {
		limits.Workers = 1
	}
	return &imageService{
		store:     store,
		generator: generator,
		limits:    limits,
		metrics:   m,
		logger:    logger,
	}
}

type savedSource struct {
	path string
	name string
}

// Upload validates every source before writing anything, saves them under fresh names and
// generates their variants concurrently. On failure nothing written by the call is kept.
func (s *imageService) Upload(ctx context.Context, sources []media.Source) ([]domain.ImageVariants, error) {
	extensions, err := s.validate(sources)
	if err != nil {
		return nil, err
	}

	saved := make([]savedSource, 0, len(sources))
	results := make([]media.Variants, len(sources))
	cleanup := func() {
		var files []string
		for _, src := range saved {
			files = append(files, src.path)
		}
		for _, v := range results {
			files = append(files, v.WebP, v.AVIF)
		}
		s.store.RemoveFiles(files...)
		s.metrics.UploadFailures.Inc()
	}

	for i, src := range sources {
		name := "images-" + uuid.NewString() + extensions[i]
		path, err := s.save(src, name)
		if err != nil {
			cleanup()
			return nil, err
		}
		saved = append(saved, savedSource{path: path, name: name})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limits.Workers)
	for i, src := range saved {
		g.Go(func() error {
			v, err := s.generator.Generate(gctx, src.path, src.name, s.store.Dir())
			if err != nil {
				return err
			}
			results[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		cleanup()
		s.logger.Warn("Image upload failed", zap.Int("files", len(sources)), zap.Error(err))
		return nil, err
	}

	out := make([]domain.ImageVariants, len(results))
	for i, v := range results {
		iv, err := s.publicVariants(v)
		if err != nil {
			cleanup()
			return nil, err
		}
		out[i] = iv
	}

	s.metrics.VariantsGenerated.WithLabelValues("webp").Add(float64(len(out)))
	s.metrics.VariantsGenerated.WithLabelValues("avif").Add(float64(len(out)))
	return out, nil
}

func (s *imageService) validate(sources []media.Source) ([]string, error) {
	if len(sources) == 0 {
		return nil, media.ErrNoFiles
	}
	if s.limits.MaxFiles > 0 && len(sources) > s.limits.MaxFiles {
		return nil, fmt.Errorf("%d files, at most %d allowed: %w", len(sources), s.limits.MaxFiles, media.ErrTooManyFiles)
	}

	extensions := make([]string, len(sources))
	for i, src := range sources {
		if s.limits.MaxFileSize > 0 && src.Size() > s.limits.MaxFileSize {
			return nil, fmt.Errorf("%s: %w", src.Filename(), media.ErrFileTooLarge)
		}
		contentType, err := media.SniffSource(src)
		if err != nil {
			return nil, err
		}
		extensions[i] = media.Extension(src.Filename(), contentType)
	}
	return extensions, nil
}

func (s *imageService) save(src media.Source, name string) (string, error) {
	r, err := src.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", src.Filename(), err)
	}
	defer r.Close()

	return s.store.Save(name, r)
}

func (s *imageService) publicVariants(v media.Variants) (domain.ImageVariants, error) {
	var iv domain.ImageVariants
	var err error
	if iv.Original, err = s.store.PublicPath(v.Original); err != nil {
		return iv, err
	}
	if iv.WebP, err = s.store.PublicPath(v.WebP); err != nil {
		return iv, err
	}
	if iv.AVIF, err = s.store.PublicPath(v.AVIF); err != nil {
		return iv, err
	}
	iv.Path = s.store.PublicDir()
	return iv, nil
}
