package routing

import (
	"context"
	"errors"
)

var (
	// ErrMissingCredential means the provider API key is absent from config.
	ErrMissingCredential = errors.New("routing_credential_missing")
	// ErrNoRoute means the provider could not match the address pair.
	ErrNoRoute = errors.New("routing_no_route")
)

// Route is one resolved origin-to-destination trip.
type Route struct {
	Meters  int64
	Seconds int64
}

// Provider computes the driving route between two free-form addresses.
type Provider interface {
	Distance(ctx context.Context, origin, destination string) (Route, error)
}
