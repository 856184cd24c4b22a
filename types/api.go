package types

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// APITokenClaims are the JWT claims of an api access token
type APITokenClaims struct {
	jwt.RegisteredClaims
	Name        string   `json:"name"`
	RateLimit   uint     `json:"rate_limit,omitempty"`
	CorsOrigins []string `json:"cors_origins,omitempty"`
	AllowTx     bool     `json:"allow_tx,omitempty"`
}

// APITokenInfo is the decoded token handed to request handlers
type APITokenInfo struct {
	Name        string
	RateLimit   uint
	CorsOrigins []string
	AllowTx     bool
	IssuedAt    time.Time
	ExpiresAt   *time.Time
}
