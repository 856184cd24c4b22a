package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rainbowsvgs/spectra/types"
	"github.com/rainbowsvgs/spectra/utils"
)

func signTestToken(t *testing.T, secret string, claims *types.APITokenClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return tokenString
}

func TestVerifyToken(t *testing.T) {
	utils.Config = &types.Config{}
	utils.Config.Api.AuthSecret = "test-secret"

	m := NewTokenAuthMiddleware()

	t.Run("valid token", func(t *testing.T) {
		tokenString := signTestToken(t, "test-secret", &types.APITokenClaims{
			Name:      "tester",
			RateLimit: 10,
			AllowTx:   true,
			RegisteredClaims: jwt.RegisteredClaims{
				IssuedAt: jwt.NewNumericDate(time.Now()),
			},
		})

		tokenInfo, err := m.verifyToken(tokenString)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tokenInfo.Name != "tester" || tokenInfo.RateLimit != 10 || !tokenInfo.AllowTx {
			t.Errorf("unexpected token info: %+v", tokenInfo)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		tokenString := signTestToken(t, "other-secret", &types.APITokenClaims{Name: "tester"})

		if _, err := m.verifyToken(tokenString); err == nil {
			t.Errorf("expected error for token signed with wrong secret")
		}
	})

	t.Run("expired token", func(t *testing.T) {
		tokenString := signTestToken(t, "test-secret", &types.APITokenClaims{
			Name: "tester",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
		})

		if _, err := m.verifyToken(tokenString); err == nil {
			t.Errorf("expected error for expired token")
		}
	})
}

func TestTokenAuthMiddleware(t *testing.T) {
	utils.Config = &types.Config{}
	utils.Config.Api.AuthSecret = "test-secret"

	m := NewTokenAuthMiddleware()

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tokenInfo := GetTokenInfo(r); tokenInfo != nil {
			w.Header().Set("X-Token-Name", tokenInfo.Name)
		}
		w.WriteHeader(http.StatusOK)
	})
	handler := m.Middleware(nextHandler)

	t.Run("no auth header without required auth", func(t *testing.T) {
		utils.Config.Api.RequireAuth = false
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/market", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
	})

	t.Run("no auth header with required auth", func(t *testing.T) {
		utils.Config.Api.RequireAuth = true
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/market", nil))

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", rec.Code)
		}
	})

	t.Run("options request bypasses required auth", func(t *testing.T) {
		utils.Config.Api.RequireAuth = true
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("OPTIONS", "/api/v1/market", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
	})

	t.Run("valid bearer token", func(t *testing.T) {
		utils.Config.Api.RequireAuth = true
		tokenString := signTestToken(t, "test-secret", &types.APITokenClaims{Name: "tester"})

		req := httptest.NewRequest("GET", "/api/v1/market", nil)
		req.Header.Set("Authorization", "Bearer "+tokenString)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
		if rec.Header().Get("X-Token-Name") != "tester" {
			t.Errorf("expected token name in context, got %q", rec.Header().Get("X-Token-Name"))
		}
	})

	t.Run("malformed auth header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/market", nil)
		req.Header.Set("Authorization", "NotBearer")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", rec.Code)
		}
	})
}
