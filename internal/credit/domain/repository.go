package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Profile, error)
	// DecrementIf subtracts amount only when the stored balance still equals
	// expected. It reports whether the conditional update matched a row.
	DecrementIf(ctx context.Context, db *gorm.DB, id snowflake.ID, expected, amount int64) (bool, error)
}
