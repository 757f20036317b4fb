package domain

import (
	"context"
	"errors"
)

var (
	// ErrInvalidInput means an address is empty after normalization.
	ErrInvalidInput = errors.New("route_invalid_input")
	// ErrNoRoute means the pair cannot be routed (unknown address or
	// non-positive distance).
	ErrNoRoute = errors.New("route_not_found")
	// ErrResolutionFailed means the provider failed for another reason.
	ErrResolutionFailed = errors.New("route_resolution_failed")
	// ErrMissingCredential means the provider credential is not configured.
	ErrMissingCredential = errors.New("route_credential_missing")
)

// Resolution is the outcome of a distance lookup. FromCache tells the caller
// whether a provider rate-limit delay is owed.
type Resolution struct {
	Km        float64
	FromCache bool
}

type Resolver interface {
	Resolve(ctx context.Context, origin, destination string) (Resolution, error)
}
