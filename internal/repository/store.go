package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories that share one database handle. Inside Transaction
// every repository handed out by tx runs on the same database transaction.
type Store interface {
	Products() ProductRepository
	Images() ImageRepository
	Users() UserRepository
	Wishlists() WishlistRepository
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore creates a Store backed by gorm
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Products() ProductRepository {
	return NewProductRepository(s.db)
}

func (s *gormStore) Images() ImageRepository {
	return NewImageRepository(s.db)
}

func (s *gormStore) Users() UserRepository {
	return NewUserRepository(s.db)
}

func (s *gormStore) Wishlists() WishlistRepository {
	return NewWishlistRepository(s.db)
}

// Transaction runs fn in a database transaction. Returning an error from fn rolls it back.
func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}
