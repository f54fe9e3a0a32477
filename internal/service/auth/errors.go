package auth

import "errors"

// Token validation errors. Every other parse failure maps to ErrInvalidToken.
var (
	// ErrInvalidToken indicates the token format is invalid or signature doesn't match
	ErrInvalidToken = errors.New("invalid authentication token")

	// ErrExpiredToken indicates the token has expired
	ErrExpiredToken = errors.New("authentication token has expired")

	// ErrTokenNotYetValid indicates the token is not yet valid (nbf claim in the future)
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")

	// ErrWrongIssuer indicates the token was issued by another service
	ErrWrongIssuer = errors.New("authentication token has the wrong issuer")

	// ErrSecretTooShort is returned by NewJWTService for secrets under 32 characters
	ErrSecretTooShort = errors.New("jwt secret must be at least 32 characters")
)
