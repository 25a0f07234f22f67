package transport

import (
	"bytes"
	"encoding/json"
	"image"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"product-catalog/internal/auth"
	"product-catalog/internal/domain"
	"product-catalog/internal/events"
	"product-catalog/internal/media"
	"product-catalog/internal/metrics"
	"product-catalog/internal/middleware"
	"product-catalog/internal/repository"
	"product-catalog/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeEncoder struct{ ext string }

func (e fakeEncoder) Ext() string { return e.ext }

func (e fakeEncoder) Encode(w io.Writer, _ image.Image) error {
	_, err := w.Write([]byte(e.ext))
	return err
}

// envelope mirrors middleware.Envelope with the payload left undecoded
type envelope struct {
	Status bool            `json:"status"`
	Msg    string          `json:"msg"`
	Data   json.RawMessage `json:"data"`
}

type testAPI struct {
	router http.Handler
	store  repository.Store
	disk   *media.DiskStore
	tokens *auth.TokenManager
}

func newTestAPI(t *testing.T) *testAPI {
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

	disk, err := media.NewDiskStore(t.TempDir(), "public/images/products")
	require.NoError(t, err)

	redisServer := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: redisServer.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	log := zap.NewNop()
	m := metrics.New()
	store := repository.NewStore(db)
	tokens := auth.NewTokenManager("transport-secret", 15*time.Minute)
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)

	products := service.NewProductService(store, service.NewImageGateway(disk, m, log), events.NopPublisher{}, m, log,
		service.ProductServiceConfig{OperationTimeout: 5 * time.Second, RecordViews: true})
	images := service.NewImageService(disk, media.NewGenerator(fakeEncoder{".webp"}, fakeEncoder{".avif"}),
		service.UploadLimits{MaxFiles: 3, MaxFileSize: 1 << 20, Workers: 2}, m, log)

	productHandler := NewProductHandler(products, log)
	imageHandler := NewImageHandler(images, products, 3, 1<<20, log)
	userHandler := NewUserHandler(service.NewUserService(store.Users(), hasher, tokens, 5*time.Second), log)
	wishlistHandler := NewWishlistHandler(service.NewWishlistService(store, 5*time.Second), log)

	rateLimit := middleware.RateLimitMiddleware(redisClient, middleware.RateLimitConfig{
		RequestsPerWindow: 1000,
		Window:            time.Minute,
		KeyPrefix:         "rate_limit:test",
	}, log)

	r := chi.NewRouter()
	r.Route("/admin/v1.0", func(r chi.Router) {
		productHandler.RegisterAdminRoutes(r)
		imageHandler.RegisterRoutes(r)
	})
	r.Route("/user/v1.0", func(r chi.Router) {
		productHandler.RegisterUserRoutes(r)
		userHandler.RegisterRoutes(r, rateLimit)
		wishlistHandler.RegisterRoutes(r, middleware.AuthMiddleware(tokens, log))
	})

	return &testAPI{router: r, store: store, disk: disk, tokens: tokens}
}

func (a *testAPI) do(t *testing.T, method, path string, body any, header ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

// writeImage puts the three files of one image on disk
func (a *testAPI) writeImage(t *testing.T, base string) ImageRequest {
	t.Helper()
	img := ImageRequest{Path: a.disk.PublicDir()}
	for _, ext := range []string{".png", ".webp", ".avif"} {
		fsPath, err := a.disk.Save(base+ext, strings.NewReader(ext))
		require.NoError(t, err)
		public, err := a.disk.PublicPath(fsPath)
		require.NoError(t, err)
		switch ext {
		case ".png":
			img.Original = public
		case ".webp":
			img.WebP = public
		case ".avif":
			img.AVIF = public
		}
	}
	return img
}

func int64Ptr(n int64) *int64 { return &n }

func validProduct(images ...ImageRequest) CreateProductRequest {
	return CreateProductRequest{
		Title:       "Pegasus",
		Description: "Daily running shoe with a soft ride",
		Brand:       "Nike",
		Type:        "Running",
		Price:       int64Ptr(12000),
		Discount:    int64Ptr(10),
		Images:      images,
	}
}
