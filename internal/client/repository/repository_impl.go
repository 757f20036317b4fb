package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/kilomet/kilomet/internal/client/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() clientdomain.Repository {
	return &repo{}
}

func (r *repo) UpsertBatch(ctx context.Context, db *gorm.DB, clients []clientdomain.Client) error {
	if len(clients) == 0 {
		return nil
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "upload_id"}, {Name: "name"}},
		DoNothing: true,
	}).Create(&clients).Error
}

func (r *repo) ListByUpload(ctx context.Context, db *gorm.DB, uploadID snowflake.ID) ([]clientdomain.Client, error) {
	var items []clientdomain.Client
	err := db.WithContext(ctx).Raw(
		`SELECT id, upload_id, name, address, postal_code, city, leg_count, total_ht, total_ttc, created_at, updated_at
		 FROM clients WHERE upload_id = ? ORDER BY name ASC`,
		uploadID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateLegCount(ctx context.Context, db *gorm.DB, id snowflake.ID, legCount int) error {
	return db.WithContext(ctx).Exec(
		`UPDATE clients SET leg_count = ?, updated_at = ? WHERE id = ?`,
		legCount, time.Now().UTC(), id,
	).Error
}

func (r *repo) UpdateTotals(ctx context.Context, db *gorm.DB, id snowflake.ID, legCount int, totalHT, totalTTC float64) error {
	return db.WithContext(ctx).Exec(
		`UPDATE clients SET leg_count = ?, total_ht = ?, total_ttc = ?, updated_at = ? WHERE id = ?`,
		legCount, totalHT, totalTTC, time.Now().UTC(), id,
	).Error
}
