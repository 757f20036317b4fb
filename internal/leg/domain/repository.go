package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	DeleteByUpload(ctx context.Context, db *gorm.DB, uploadID snowflake.ID) error
	InsertBatch(ctx context.Context, db *gorm.DB, legs []Leg) error
	ListByUpload(ctx context.Context, db *gorm.DB, uploadID snowflake.ID) ([]Leg, error)
	UpdatePrice(ctx context.Context, db *gorm.DB, id snowflake.ID, priceHT, priceTTC *float64, tierLabel *string) error
	AggregateByClient(ctx context.Context, db *gorm.DB, uploadID snowflake.ID) ([]ClientAggregate, error)
}
