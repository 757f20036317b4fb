package lease

import (
	"context"
	"time"
)

// Lease is an exclusivity registry keyed by upload. Acquire hands out an
// opaque token; Release with a stale or foreign token is a no-op so a
// watchdog that reclaimed the lease does not race the run's own cleanup.
type Lease interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, acquired bool, err error)
	Release(ctx context.Context, key, token string) error
}
