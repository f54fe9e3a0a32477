package auth

import (
	"context"
	"time"
)

// JWTService mints and validates the bearer tokens protecting write routes.
type JWTService interface {
	// GenerateToken creates a signed access token for subject, normally the
	// id of a user.
	GenerateToken(ctx context.Context, subject string) (string, error)

	// ValidateToken validates tokenString and extracts its claims.
	// Returns ErrExpiredToken, ErrTokenNotYetValid, ErrWrongIssuer or
	// ErrInvalidToken when validation fails.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims are the validated claims of a token.
type Claims struct {
	Subject   string    `json:"sub,omitempty"`
	Issuer    string    `json:"iss,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
