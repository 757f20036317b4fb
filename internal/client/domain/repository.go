package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// UpsertBatch inserts the clients that do not exist yet for the upload.
	// Conflicts on (upload_id, name) are ignored so reprocessing is idempotent.
	UpsertBatch(ctx context.Context, db *gorm.DB, clients []Client) error
	ListByUpload(ctx context.Context, db *gorm.DB, uploadID snowflake.ID) ([]Client, error)
	UpdateLegCount(ctx context.Context, db *gorm.DB, id snowflake.ID, legCount int) error
	UpdateTotals(ctx context.Context, db *gorm.DB, id snowflake.ID, legCount int, totalHT, totalTTC float64) error
}
