package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	pricingdomain "github.com/kilomet/kilomet/internal/pricing/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() pricingdomain.Repository {
	return &repo{}
}

func (r *repo) Replace(ctx context.Context, db *gorm.DB, uploadID snowflake.ID, tiers []pricingdomain.Tier) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM pricing_tiers WHERE upload_id = ?`, uploadID).Error; err != nil {
			return err
		}
		if len(tiers) == 0 {
			return nil
		}
		return tx.Create(&tiers).Error
	})
}

func (r *repo) ListByUpload(ctx context.Context, db *gorm.DB, uploadID snowflake.ID) ([]pricingdomain.Tier, error) {
	var tiers []pricingdomain.Tier
	err := db.WithContext(ctx).Raw(
		`SELECT id, upload_id, start_km, end_km, unit_price_ht, tax_rate, label, created_at, updated_at
		 FROM pricing_tiers WHERE upload_id = ? ORDER BY start_km ASC`,
		uploadID,
	).Scan(&tiers).Error
	if err != nil {
		return nil, err
	}
	return tiers, nil
}
