package api

import "time"

// TokenRequest is the payload of the token endpoint.
type TokenRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// TokenResponse is the successful response of the token endpoint.
type TokenResponse struct {
	// AccessToken is the JWT used in the Authorization header of write requests.
	AccessToken string `json:"access_token"`

	// TokenType is always "Bearer".
	TokenType string `json:"token_type"`

	// Subject is the id of the authenticated user.
	Subject string `json:"subject"`

	// ExpiresAt is when the access token stops being accepted.
	ExpiresAt time.Time `json:"expires_at"`
}
