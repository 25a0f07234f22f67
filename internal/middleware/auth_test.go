package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"product-catalog/internal/auth"
	"product-catalog/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestProperty_ProtectedEndpointsRejectMissingTokens(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("requests without authorization header are rejected", prop.ForAll(
		func(pathSuffix string, method string) bool {
			handler := AuthMiddleware(auth.NewTokenManager(testSecret, time.Hour), zap.NewNop())(okHandler())

			path := "/" + pathSuffix
			if path == "/" {
				path = "/test"
			}

			req := httptest.NewRequest(method, path, nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			var env Envelope
			if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
				return false
			}
			return w.Code == http.StatusUnauthorized && !env.Status
		},
		gen.AlphaString(),
		gen.OneConstOf("GET", "POST", "PUT", "DELETE"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ExpiredTokensAreRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("expired tokens are rejected with 401", prop.ForAll(
		func(userID uint, role string) bool {
			expired := auth.NewTokenManager(testSecret, -time.Hour)
			token, err := expired.Generate(userID, "someone@example.com", role)
			if err != nil {
				return false
			}

			handler := AuthMiddleware(auth.NewTokenManager(testSecret, time.Hour), zap.NewNop())(okHandler())
			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.UIntRange(1, 100000),
		gen.OneConstOf(domain.RoleUser, domain.RoleAdmin),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ValidTokensAllowProcessing(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("valid tokens put the identity in the context", prop.ForAll(
		func(userID uint, role string) bool {
			tokens := auth.NewTokenManager(testSecret, time.Hour)
			token, err := tokens.Generate(userID, "someone@example.com", role)
			if err != nil {
				return false
			}

			var gotID uint
			var gotRole string
			handler := AuthMiddleware(tokens, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotID, _ = GetUserID(r.Context())
				gotRole, _ = GetUserRole(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			return w.Code == http.StatusOK && gotID == userID && gotRole == role
		},
		gen.UIntRange(1, 100000),
		gen.OneConstOf(domain.RoleUser, domain.RoleAdmin),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_InvalidTokenFormatRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("garbage bearer tokens are rejected", prop.ForAll(
		func(garbage string) bool {
			handler := AuthMiddleware(auth.NewTokenManager(testSecret, time.Hour), zap.NewNop())(okHandler())

			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set("Authorization", "Bearer x"+garbage)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			return w.Code == http.StatusUnauthorized
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestAuthMiddleware_HeaderFormats(t *testing.T) {
	tokens := auth.NewTokenManager(testSecret, time.Hour)
	valid, err := tokens.Generate(7, "a@example.com", domain.RoleUser)
	require.NoError(t, err)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		UserID:           7,
		Role:             domain.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	forged, err := foreign.SignedString([]byte("another-secret"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
		msg    string
	}{
		{"missing bearer prefix", valid, http.StatusUnauthorized, "invalid authorization header format"},
		{"lowercase scheme", "bearer " + valid, http.StatusUnauthorized, "invalid authorization header format"},
		{"empty token", "Bearer ", http.StatusUnauthorized, "invalid authorization header format"},
		{"wrong secret", "Bearer " + forged, http.StatusUnauthorized, "Invalid token"},
		{"valid", "Bearer " + valid, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := AuthMiddleware(tokens, zap.NewNop())(okHandler())
			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set("Authorization", tt.header)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.msg != "" {
				env := decodeEnvelope(t, w)
				assert.Equal(t, tt.msg, env.Msg)
				assert.Equal(t, []any{}, env.Data)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	tokens := auth.NewTokenManager(testSecret, time.Hour)
	chain := func(h http.Handler) http.Handler {
		return AuthMiddleware(tokens, zap.NewNop())(RequireAdmin(zap.NewNop())(h))
	}

	for role, want := range map[string]int{
		domain.RoleAdmin: http.StatusOK,
		domain.RoleUser:  http.StatusForbidden,
	} {
		token, err := tokens.Generate(1, "x@example.com", role)
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		chain(okHandler()).ServeHTTP(w, req)

		assert.Equal(t, want, w.Code, role)
		if want == http.StatusForbidden {
			assert.Equal(t, "insufficient permissions", decodeEnvelope(t, w).Msg)
		}
	}

	// without the auth middleware there is no role at all
	w := httptest.NewRecorder()
	RequireAdmin(zap.NewNop())(okHandler()).ServeHTTP(w, httptest.NewRequest("GET", "/admin", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
