package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Find(ctx context.Context, db *gorm.DB, origin, destination string) (*Entry, error)
	// Upsert writes the entry, replacing any existing row for the same key.
	Upsert(ctx context.Context, db *gorm.DB, entry *Entry) error
}
