package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/rainbowsvgs/spectra/types"
	"github.com/rainbowsvgs/spectra/utils"
)

type contextKey string

const (
	contextKeyTokenInfo contextKey = "token_info"
)

// TokenAuthMiddleware validates JWT bearer tokens on api requests and
// attaches the decoded token info to the request context. Without
// requireAuth configured, requests without a token pass through
// unauthenticated and fall back to the anonymous ip rate limit.
type TokenAuthMiddleware struct{}

func NewTokenAuthMiddleware() *TokenAuthMiddleware {
	return &TokenAuthMiddleware{}
}

func (m *TokenAuthMiddleware) verifyToken(tokenString string) (*types.APITokenInfo, error) {
	if utils.Config.Api.AuthSecret == "" {
		return nil, fmt.Errorf("authentication secret not configured")
	}

	token, err := jwt.ParseWithClaims(tokenString, &types.APITokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(utils.Config.Api.AuthSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %v", err)
	}

	claims, ok := token.Claims.(*types.APITokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	tokenInfo := &types.APITokenInfo{
		Name:        claims.Name,
		RateLimit:   claims.RateLimit,
		CorsOrigins: claims.CorsOrigins,
		AllowTx:     claims.AllowTx,
	}
	if claims.IssuedAt != nil {
		tokenInfo.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		tokenInfo.ExpiresAt = &claims.ExpiresAt.Time
	}
	return tokenInfo, nil
}

func (m *TokenAuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var tokenInfo *types.APITokenInfo

		authHeader := r.Header.Get("Authorization")
		if authHeader != "" {
			scheme, tokenString, found := strings.Cut(authHeader, " ")
			if !found || !strings.EqualFold(scheme, "bearer") {
				APIErrorResponse(w, http.StatusUnauthorized, "ERROR: invalid authorization header format")
				return
			}

			var err error
			tokenInfo, err = m.verifyToken(tokenString)
			if err != nil {
				logrus.WithError(err).WithField("client_ip", GetClientIP(r)).Warn("API authentication failed")
				APIErrorResponse(w, http.StatusUnauthorized, "ERROR: invalid authentication token")
				return
			}

			logrus.WithFields(logrus.Fields{
				"client_ip":  GetClientIP(r),
				"token_name": tokenInfo.Name,
			}).Debug("API request with valid token")
		}

		if utils.Config.Api.RequireAuth && tokenInfo == nil {
			// CORS preflight requests carry no auth header
			if r.Method == "OPTIONS" {
				next.ServeHTTP(w, r)
				return
			}

			logrus.WithField("client_ip", GetClientIP(r)).Warn("API request rejected: authentication required")
			APIErrorResponse(w, http.StatusUnauthorized, "ERROR: authentication required")
			return
		}

		if tokenInfo != nil {
			ctx := context.WithValue(r.Context(), contextKeyTokenInfo, tokenInfo)
			r = r.WithContext(ctx)
		}

		next.ServeHTTP(w, r)
	})
}

// GetTokenInfo returns the token info attached by the auth middleware,
// or nil for unauthenticated requests.
func GetTokenInfo(r *http.Request) *types.APITokenInfo {
	if tokenInfo, ok := r.Context().Value(contextKeyTokenInfo).(*types.APITokenInfo); ok {
		return tokenInfo
	}
	return nil
}
