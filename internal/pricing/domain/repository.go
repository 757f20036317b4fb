package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Replace swaps the upload's tier list wholesale (delete-then-insert).
	Replace(ctx context.Context, db *gorm.DB, uploadID snowflake.ID, tiers []Tier) error
	ListByUpload(ctx context.Context, db *gorm.DB, uploadID snowflake.ID) ([]Tier, error)
}
