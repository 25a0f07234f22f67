package repository

import (
	"context"
	"errors"
	"fmt"

	"product-catalog/internal/domain"

	"gorm.io/gorm"
)

var (
	ErrWishlistEntryExists   = errors.New("product already exists in wishlist")
	ErrWishlistEntryNotFound = errors.New("product not found in wishlist")
)

// WishlistRepository defines the interface for wishlist (likes) access
type WishlistRepository interface {
	Add(ctx context.Context, userID, productID uint) (*domain.Wishlist, error)
	Remove(ctx context.Context, userID, productID uint) error
	Exists(ctx context.Context, userID, productID uint) (bool, error)
	CountByProducts(ctx context.Context, productIDs []uint) (map[uint]int64, error)
	ListProducts(ctx context.Context, userID uint) ([]*domain.Product, error)
	DeleteByProduct(ctx context.Context, productID uint) error
}

type wishlistRepository struct {
	db *gorm.DB
}

// NewWishlistRepository creates a new instance of WishlistRepository
func NewWishlistRepository(db *gorm.DB) WishlistRepository {
	return &wishlistRepository{db: db}
}

func (r *wishlistRepository) Add(ctx context.Context, userID, productID uint) (*domain.Wishlist, error) {
	entry := &domain.Wishlist{UserID: userID, ProductID: productID}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrWishlistEntryExists
		}
		return nil, fmt.Errorf("failed to add wishlist entry: %w", err)
	}
	return entry, nil
}

func (r *wishlistRepository) Remove(ctx context.Context, userID, productID uint) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&domain.Wishlist{})
	if result.Error != nil {
		return fmt.Errorf("failed to remove wishlist entry: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrWishlistEntryNotFound
	}
	return nil
}

func (r *wishlistRepository) Exists(ctx context.Context, userID, productID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Wishlist{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check wishlist entry: %w", err)
	}
	return count > 0, nil
}

// CountByProducts returns the number of wishlist rows per product id in one grouped query.
// Products nobody likes are absent from the map.
func (r *wishlistRepository) CountByProducts(ctx context.Context, productIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(productIDs))
	if len(productIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		ProductID uint
		Likes     int64
	}
	err := r.db.WithContext(ctx).Model(&domain.Wishlist{}).
		Select("product_id, COUNT(*) AS likes").
		Where("product_id IN ?", productIDs).
		Group("product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count likes: %w", err)
	}

	for _, row := range rows {
		counts[row.ProductID] = row.Likes
	}
	return counts, nil
}

// ListProducts returns the products in the user's wishlist, most recently added first
func (r *wishlistRepository) ListProducts(ctx context.Context, userID uint) ([]*domain.Product, error) {
	products := []*domain.Product{}
	err := r.db.WithContext(ctx).
		Select("products.*").
		Joins("JOIN wishlists ON wishlists.product_id = products.id").
		Where("wishlists.user_id = ?", userID).
		Order("wishlists.id DESC").
		Scopes(withImages).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list wishlist products: %w", err)
	}
	return products, nil
}

func (r *wishlistRepository) DeleteByProduct(ctx context.Context, productID uint) error {
	if err := r.db.WithContext(ctx).Where("product_id = ?", productID).Delete(&domain.Wishlist{}).Error; err != nil {
		return fmt.Errorf("failed to delete wishlist entries: %w", err)
	}
	return nil
}
