package client

import (
	"fmt"
	"net/http"
)

// AuthenticationError is returned by Login for bad credentials or an unreachable auth endpoint.
// Status is 0 when no HTTP response was received.
type AuthenticationError struct {
	Status int
	Err    error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("Authentication failed: %v", e.Err)
	}
	return "Authentication failed"
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// CatalogError is returned by GetStorefronts. Status is 0 for transport-level failures,
// including an open circuit breaker.
type CatalogError struct {
	Status int
	Err    error
}

func (e *CatalogError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("HTTP %d", e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("failed to load storefronts: %v", e.Err)
	}
	return "failed to load storefronts"
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}

// Unauthorized reports whether the backend rejected the token.
func (e *CatalogError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}
