package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"product-catalog/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrProductNotFound = errors.New("product not found")
)

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, id uint, patch domain.ProductPatch) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*domain.Product, error)
	Exists(ctx context.Context, id uint) (bool, error)
	List(ctx context.Context, offset, limit int) ([]*domain.Product, int64, error)
	Search(ctx context.Context, query string, offset, limit int) ([]*domain.Product, int64, error)
	IncrementViews(ctx context.Context, id uint) error
}

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

// Create inserts the product row only; images are written through ImageRepository
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Update writes the fields set in patch and bumps updated_at
func (r *productRepository) Update(ctx context.Context, id uint, patch domain.ProductPatch) error {
	cols := patch.Columns()
	cols["updated_at"] = time.Now()

	result := r.db.WithContext(ctx).Model(&domain.Product{}).Where("id = ?", id).Updates(cols)
	if result.Error != nil {
		return fmt.Errorf("failed to update product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *productRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&domain.Product{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// FindByID retrieves a product together with its images
func (r *productRepository) FindByID(ctx context.Context, id uint) (*domain.Product, error) {
	var product domain.Product
	err := r.db.WithContext(ctx).Scopes(withImages).First(&product, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return &product, nil
}

func (r *productRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Product{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check product: %w", err)
	}
	return count > 0, nil
}

// List returns one page of products, newest first, plus the total number of products
func (r *productRepository) List(ctx context.Context, offset, limit int) ([]*domain.Product, int64, error) {
	return r.page(ctx, func(db *gorm.DB) *gorm.DB { return db }, offset, limit)
}

// Search matches query case-insensitively against title, brand, type and price
func (r *productRepository) Search(ctx context.Context, query string, offset, limit int) ([]*domain.Product, int64, error) {
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(query))) + "%"
	filter := func(db *gorm.DB) *gorm.DB {
		return db.Where(
			"LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(brand) LIKE ? ESCAPE '\\' OR LOWER(type) LIKE ? ESCAPE '\\' OR CAST(price AS TEXT) LIKE ? ESCAPE '\\'",
			pattern, pattern, pattern, pattern,
		)
	}
	return r.page(ctx, filter, offset, limit)
}

func (r *productRepository) page(ctx context.Context, filter func(*gorm.DB) *gorm.DB, offset, limit int) ([]*domain.Product, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.Product{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	products := make([]*domain.Product, 0, limit)
	err := r.db.WithContext(ctx).
		Scopes(filter, withImages).
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}

	return products, total, nil
}

// IncrementViews bumps the view counter without touching updated_at
func (r *productRepository) IncrementViews(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&domain.Product{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1))
	if result.Error != nil {
		return fmt.Errorf("failed to increment views: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func withImages(db *gorm.DB) *gorm.DB {
	return db.Preload("Images", func(db *gorm.DB) *gorm.DB {
		return db.Order("images.id ASC")
	})
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
