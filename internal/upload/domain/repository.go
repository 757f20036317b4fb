package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Upload, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status) error
	UpdateTotals(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status, totalLegs, totalClients int) error
	UpdateTotalAmount(ctx context.Context, db *gorm.DB, id snowflake.ID, amountTTC float64) error
}

type RowRepository interface {
	ListByUpload(ctx context.Context, db *gorm.DB, uploadID snowflake.ID) ([]Row, error)
	CountInvalid(ctx context.Context, db *gorm.DB, uploadID snowflake.ID) (int64, error)
}
