package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"product-catalog/internal/domain"
	"product-catalog/internal/events"
	"product-catalog/internal/media"
	"product-catalog/internal/metrics"
	"product-catalog/internal/repository"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) repository.Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&domain.Product{}, &domain.Image{}, &domain.User{}, &domain.Wishlist{}))
	return repository.NewStore(db)
}

func newTestDisk(t *testing.T) *media.DiskStore {
	t.Helper()
	disk, err := media.NewDiskStore(t.TempDir(), "public/images/products")
	require.NoError(t, err)
	return disk
}

// writeVariants puts the three files of one image on disk and returns their public paths
func writeVariants(t *testing.T, disk *media.DiskStore, base string) domain.ImageVariants {
	t.Helper()
	v := domain.ImageVariants{Path: disk.PublicDir()}
	for _, ext := range []string{".png", ".webp", ".avif"} {
		fsPath, err := disk.Save(base+ext, strings.NewReader(base+ext))
		require.NoError(t, err)
		public, err := disk.PublicPath(fsPath)
		require.NoError(t, err)
		switch ext {
		case ".png":
			v.Original = public
		case ".webp":
			v.WebP = public
		case ".avif":
			v.AVIF = public
		}
	}
	return v
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() {}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Type
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type productFixture struct {
	store     repository.Store
	disk      *media.DiskStore
	metrics   *metrics.Metrics
	publisher *recordingPublisher
	service   ProductService
	images    int
}

func newProductFixture(t *testing.T, recordViews bool) *productFixture {
	t.Helper()
	f := &productFixture{
		store:     newTestStore(t),
		disk:      newTestDisk(t),
		metrics:   metrics.New(),
		publisher: &recordingPublisher{},
	}
	gateway := NewImageGateway(f.disk, f.metrics, zap.NewNop())
	f.service = NewProductService(f.store, gateway, f.publisher, f.metrics, zap.NewNop(), ProductServiceConfig{
		OperationTimeout: 5 * time.Second,
		RecordViews:      recordViews,
	})
	return f
}

// serviceWith builds another product service over the fixture's disk and metrics
func (f *productFixture) serviceWith(store repository.Store, publisher events.Publisher, timeout time.Duration) ProductService {
	gateway := NewImageGateway(f.disk, f.metrics, zap.NewNop())
	return NewProductService(store, gateway, publisher, f.metrics, zap.NewNop(), ProductServiceConfig{
		OperationTimeout: timeout,
		RecordViews:      true,
	})
}

// blockingPublisher never delivers; it returns once its context gives up
type blockingPublisher struct{}

func (blockingPublisher) Publish(ctx context.Context, _ events.Event) error {
	<-ctx.Done()
	return ctx.Err()
}

func (blockingPublisher) Close() {}

// slowCommitStore commits normally but only returns once the caller's deadline has passed
type slowCommitStore struct {
	repository.Store
}

func (s slowCommitStore) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	err := s.Store.Transaction(ctx, fn)
	<-ctx.Done()
	return err
}

func (f *productFixture) create(t *testing.T, title string, images int) *domain.Product {
	t.Helper()
	in := CreateProductInput{
		Title:       title,
		Description: "A product used in service tests",
		Brand:       "Nike",
		Type:        "Running",
		Price:       100,
		Discount:    10,
	}
	for i := 0; i < images; i++ {
		f.images++
		in.Images = append(in.Images, writeVariants(t, f.disk, fmt.Sprintf("images-%s-%d", strings.ReplaceAll(title, " ", "_"), f.images)))
	}
	product, err := f.service.Create(context.Background(), in)
	require.NoError(t, err)
	return product
}
