package repository

import (
	"context"
	"testing"

	"product-catalog/internal/domain"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestProperty_StoredPasswordsAreHashes(t *testing.T) {
	store := NewStore(newTestDB(t))
	ctx := context.Background()
	seen := map[string]bool{}

	properties := gopter.NewProperties(nil)

	properties.Property("users round-trip with their bcrypt hash, never the plaintext", prop.ForAll(
		func(email string, password string, name string) bool {
			if seen[email] {
				return true
			}
			seen[email] = true

			hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
			if err != nil {
				return false
			}

			user := &domain.User{Name: name, Email: email, Password: string(hashed)}
			if err := store.Users().Create(ctx, user); err != nil {
				t.Logf("Failed to create user: %v", err)
				return false
			}

			found, err := store.Users().FindByEmail(ctx, email)
			if err != nil {
				t.Logf("Failed to find user: %v", err)
				return false
			}

			if found.Password == password || found.Role != domain.RoleUser {
				return false
			}
			return bcrypt.CompareHashAndPassword([]byte(found.Password), []byte(password)) == nil
		},
		gen.RegexMatch(`[a-z]{5,10}@[a-z]{3,8}\.(com|org|net)`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{6,30}`),
		gen.RegexMatch(`[A-Z][a-z]{2,15}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	store := NewStore(newTestDB(t))
	ctx := context.Background()

	first := &domain.User{Name: "Ann", Email: "ann@example.com", Password: "hash"}
	require.NoError(t, store.Users().Create(ctx, first))

	second := &domain.User{Name: "Other Ann", Email: "ann@example.com", Password: "hash"}
	assert.ErrorIs(t, store.Users().Create(ctx, second), ErrUserAlreadyExists)
}

func TestUserRepository_FindMissing(t *testing.T) {
	store := NewStore(newTestDB(t))
	ctx := context.Background()

	_, err := store.Users().FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = store.Users().FindByID(ctx, 42)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
