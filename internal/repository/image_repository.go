package repository

import (
	"context"
	"fmt"

	"product-catalog/internal/domain"

	"gorm.io/gorm"
)

// ImageRepository defines the interface for image row access
type ImageRepository interface {
	Create(ctx context.Context, image *domain.Image) error
	FindByIDs(ctx context.Context, productID uint, ids []uint) ([]domain.Image, error)
	ListByProduct(ctx context.Context, productID uint) ([]domain.Image, error)
	DeleteByIDs(ctx context.Context, ids []uint) (int64, error)
	DeleteByProduct(ctx context.Context, productID uint) (int64, error)
	CountReferencing(ctx context.Context, paths []string) (int64, error)
}

type imageRepository struct {
	db *gorm.DB
}

// NewImageRepository creates a new instance of ImageRepository
func NewImageRepository(db *gorm.DB) ImageRepository {
	return &imageRepository{db: db}
}

func (r *imageRepository) Create(ctx context.Context, image *domain.Image) error {
	if err := r.db.WithContext(ctx).Create(image).Error; err != nil {
		return fmt.Errorf("failed to create image: %w", err)
	}
	return nil
}

// FindByIDs returns the images among ids that belong to productID
func (r *imageRepository) FindByIDs(ctx context.Context, productID uint, ids []uint) ([]domain.Image, error) {
	images := []domain.Image{}
	if len(ids) == 0 {
		return images, nil
	}

	err := r.db.WithContext(ctx).
		Where("product_id = ? AND id IN ?", productID, ids).
		Order("id ASC").
		Find(&images).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find images: %w", err)
	}
	return images, nil
}

func (r *imageRepository) ListByProduct(ctx context.Context, productID uint) ([]domain.Image, error) {
	images := []domain.Image{}
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).Order("id ASC").Find(&images).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	return images, nil
}

// DeleteByIDs removes the rows with the given ids. Ids that do not exist are ignored.
func (r *imageRepository) DeleteByIDs(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&domain.Image{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete images: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *imageRepository) DeleteByProduct(ctx context.Context, productID uint) (int64, error) {
	result := r.db.WithContext(ctx).Where("product_id = ?", productID).Delete(&domain.Image{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete product images: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// CountReferencing counts the rows that use any of paths as one of their files
func (r *imageRepository) CountReferencing(ctx context.Context, paths []string) (int64, error) {
	if len(paths) == 0 {
		return 0, nil
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Image{}).
		Where("original IN ? OR webp IN ? OR avif IN ?", paths, paths, paths).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count image references: %w", err)
	}
	return count, nil
}
