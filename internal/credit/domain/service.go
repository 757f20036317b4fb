package domain

import (
	"context"
	"errors"
)

var (
	ErrProfileNotFound      = errors.New("credit_profile_not_found")
	ErrInsufficientCredits  = errors.New("credit_insufficient")
	ErrConcurrencyExhausted = errors.New("credit_concurrency_exhausted")
	ErrInvalidAmount        = errors.New("credit_invalid_amount")
)

type Service interface {
	// Consume atomically decrements the account balance by amount.
	// ErrConcurrencyExhausted is retryable at the caller's discretion.
	Consume(ctx context.Context, accountID string, amount int64) error
	Balance(ctx context.Context, accountID string) (int64, error)
}
