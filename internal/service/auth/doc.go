// Package auth issues and validates the HMAC-signed JWT bearer tokens that
// protect write routes.
package auth
