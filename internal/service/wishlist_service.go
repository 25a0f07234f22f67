package service

import (
	"context"
	"fmt"
	"time"

	"product-catalog/internal/domain"
	"product-catalog/internal/repository"
)

// WishlistService defines the interface for a user's liked products
type WishlistService interface {
	Add(ctx context.Context, userID, productID uint) (*domain.Wishlist, error)
	Remove(ctx context.Context, userID, productID uint) error
	List(ctx context.Context, userID uint) ([]*domain.ProductView, error)
}

type wishlistService struct {
	store   repository.Store
	timeout time.Duration
}

// NewWishlistService creates a new instance of WishlistService
func NewWishlistService(store repository.Store, timeout time.Duration) WishlistService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &wishlistService{store: store, timeout: timeout}
}

func (s *wishlistService) Add(ctx context.Context, userID, productID uint) (*domain.Wishlist, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	exists, err := s.store.Products().Exists(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, repository.ErrProductNotFound
	}

	liked, err := s.store.Wishlists().Exists(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	if liked {
		return nil, repository.ErrWishlistEntryExists
	}

	return s.store.Wishlists().Add(ctx, userID, productID)
}

func (s *wishlistService) Remove(ctx context.Context, userID, productID uint) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.store.Wishlists().Remove(ctx, userID, productID)
}

// List returns the user's wishlist products with their like counts
func (s *wishlistService) List(ctx context.Context, userID uint) ([]*domain.ProductView, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	products, err := s.store.Wishlists().ListProducts(ctx, userID)
	if err != nil {
		return nil, err
	}

	views, err := attachLikes(ctx, s.store.Wishlists(), products)
	if err != nil {
		return nil, fmt.Errorf("failed to load wishlist likes: %w", err)
	}
	return views, nil
}
