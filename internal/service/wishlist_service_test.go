package service

import (
	"context"
	"testing"
	"time"

	"product-catalog/internal/domain"
	"product-catalog/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWishlistService(t *testing.T) {
	f := newProductFixture(t, true)
	ctx := context.Background()
	svc := NewWishlistService(f.store, time.Second)

	first := f.create(t, "First", 1)
	second := f.create(t, "Second", 0)

	alice := &domain.User{Name: "Alice", Email: "alice@example.com", Password: "hash"}
	bob := &domain.User{Name: "Bob", Email: "bob@example.com", Password: "hash"}
	require.NoError(t, f.store.Users().Create(ctx, alice))
	require.NoError(t, f.store.Users().Create(ctx, bob))

	t.Run("add", func(t *testing.T) {
		entry, err := svc.Add(ctx, alice.ID, first.ID)
		require.NoError(t, err)
		assert.Equal(t, alice.ID, entry.UserID)
		assert.Equal(t, first.ID, entry.ProductID)

		_, err = svc.Add(ctx, alice.ID, second.ID)
		require.NoError(t, err)
		_, err = svc.Add(ctx, bob.ID, first.ID)
		require.NoError(t, err)
	})

	t.Run("duplicate pair is a conflict", func(t *testing.T) {
		_, err := svc.Add(ctx, alice.ID, first.ID)
		assert.ErrorIs(t, err, repository.ErrWishlistEntryExists)
	})

	t.Run("unknown product", func(t *testing.T) {
		_, err := svc.Add(ctx, alice.ID, 9999)
		assert.ErrorIs(t, err, repository.ErrProductNotFound)
	})

	t.Run("list carries likes and images", func(t *testing.T) {
		views, err := svc.List(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, views, 2)

		// most recently liked first
		assert.Equal(t, second.ID, views[0].ID)
		assert.Equal(t, int64(1), views[0].Likes)
		assert.NotNil(t, views[0].Images)
		assert.Equal(t, first.ID, views[1].ID)
		assert.Equal(t, int64(2), views[1].Likes)
		assert.Len(t, views[1].Images, 1)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, svc.Remove(ctx, alice.ID, first.ID))
		assert.ErrorIs(t, svc.Remove(ctx, alice.ID, first.ID), repository.ErrWishlistEntryNotFound)

		views, err := svc.List(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, second.ID, views[0].ID)
	})

	t.Run("empty wishlist", func(t *testing.T) {
		carol := &domain.User{Name: "Carol", Email: "carol@example.com", Password: "hash"}
		require.NoError(t, f.store.Users().Create(ctx, carol))

		views, err := svc.List(ctx, carol.ID)
		require.NoError(t, err)
		assert.Empty(t, views)
	})
}
