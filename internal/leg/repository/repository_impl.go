package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	legdomain "github.com/kilomet/kilomet/internal/leg/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() legdomain.Repository {
	return &repo{}
}

func (r *repo) DeleteByUpload(ctx context.Context, db *gorm.DB, uploadID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM legs WHERE upload_id = ?`,
		uploadID,
	).Error
}

func (r *repo) InsertBatch(ctx context.Context, db *gorm.DB, legs []legdomain.Leg) error {
	if len(legs) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&legs).Error
}

func (r *repo) ListByUpload(ctx context.Context, db *gorm.DB, uploadID snowflake.ID) ([]legdomain.Leg, error) {
	var legs []legdomain.Leg
	err := db.WithContext(ctx).Raw(
		`SELECT id, upload_id, client_id, pickup_address, dropoff_address, raw_date,
		 distance_km, price_ht, price_ttc, tier_label, status, created_at, updated_at
		 FROM legs WHERE upload_id = ? ORDER BY id ASC`,
		uploadID,
	).Scan(&legs).Error
	if err != nil {
		return nil, err
	}
	return legs, nil
}

func (r *repo) UpdatePrice(ctx context.Context, db *gorm.DB, id snowflake.ID, priceHT, priceTTC *float64, tierLabel *string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE legs SET price_ht = ?, price_ttc = ?, tier_label = ?, updated_at = ? WHERE id = ?`,
		priceHT, priceTTC, tierLabel, time.Now().UTC(), id,
	).Error
}

func (r *repo) AggregateByClient(ctx context.Context, db *gorm.DB, uploadID snowflake.ID) ([]legdomain.ClientAggregate, error) {
	var aggregates []legdomain.ClientAggregate
	err := db.WithContext(ctx).Raw(
		`SELECT client_id,
		        COUNT(*) AS leg_count,
		        COALESCE(SUM(price_ht), 0) AS total_ht,
		        COALESCE(SUM(price_ttc), 0) AS total_ttc
		 FROM legs WHERE upload_id = ?
		 GROUP BY client_id`,
		uploadID,
	).Scan(&aggregates).Error
	if err != nil {
		return nil, err
	}
	return aggregates, nil
}
