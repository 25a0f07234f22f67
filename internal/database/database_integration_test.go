package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"product-catalog/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func startPostgres(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	ctx := context.Background()
	var (
		dbName = "catalog"
		dbPwd  = "password"
		dbUser = "user"
	)

	dbContainer, err := postgres.Run(
		ctx,
		"postgres:15",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Skipf("could not start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := dbContainer.Terminate(context.Background()); err != nil {
			t.Logf("could not teardown postgres container: %v", err)
		}
	})

	connStr, err := dbContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func TestMigrationsAgainstPostgres(t *testing.T) {
	db := startPostgres(t)
	logger := zap.NewNop()

	require.NoError(t, RunMigrations(db, logger))
	// second run is a no-op
	require.NoError(t, RunMigrations(db, logger))

	gdb, err := OpenGorm(db, logger)
	require.NoError(t, err)

	ctx := context.Background()

	product := &domain.Product{
		Title:       "Trail Runner",
		Description: "Lightweight running shoe",
		Brand:       "Acme",
		Type:        "shoes",
		Price:       1200,
		Discount:    10,
	}
	require.NoError(t, gdb.WithContext(ctx).Create(product).Error)

	image := &domain.Image{
		Original:  "/public/images/products/images-1.png",
		WebP:      "/public/images/products/images-1.webp",
		AVIF:      "/public/images/products/images-1.avif",
		Path:      "/public/images/products/",
		ProductID: product.ID,
	}
	require.NoError(t, gdb.WithContext(ctx).Create(image).Error)

	user := &domain.User{Name: "Jane", Email: "jane@example.com", Password: "hash", Role: domain.RoleUser}
	require.NoError(t, gdb.WithContext(ctx).Create(user).Error)

	entry := &domain.Wishlist{UserID: user.ID, ProductID: product.ID}
	require.NoError(t, gdb.WithContext(ctx).Create(entry).Error)

	dup := &domain.Wishlist{UserID: user.ID, ProductID: product.ID}
	err = gdb.WithContext(ctx).Create(dup).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	require.NoError(t, gdb.WithContext(ctx).Delete(&domain.Product{}, product.ID).Error)

	var images, wishlists int64
	require.NoError(t, gdb.Model(&domain.Image{}).Where("product_id = ?", product.ID).Count(&images).Error)
	require.NoError(t, gdb.Model(&domain.Wishlist{}).Where("product_id = ?", product.ID).Count(&wishlists).Error)
	assert.Zero(t, images)
	assert.Zero(t, wishlists)

	svc := &Service{sqlDB: db, gormDB: gdb, logger: logger}
	health := svc.Health(ctx)
	assert.Equal(t, "up", health["status"])
}
