package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	uploaddomain "github.com/kilomet/kilomet/internal/upload/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() uploaddomain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*uploaddomain.Upload, error) {
	var upload uploaddomain.Upload
	err := db.WithContext(ctx).Raw(
		`SELECT id, owner_id, status, total_legs, total_clients, total_amount_ttc, created_at, updated_at
		 FROM uploads WHERE id = ?`,
		id,
	).Scan(&upload).Error
	if err != nil {
		return nil, err
	}
	if upload.ID == 0 {
		return nil, nil
	}
	return &upload, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status uploaddomain.Status) error {
	return db.WithContext(ctx).Exec(
		`UPDATE uploads SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id,
	).Error
}

func (r *repo) UpdateTotals(ctx context.Context, db *gorm.DB, id snowflake.ID, status uploaddomain.Status, totalLegs, totalClients int) error {
	return db.WithContext(ctx).Exec(
		`UPDATE uploads SET status = ?, total_legs = ?, total_clients = ?, updated_at = ? WHERE id = ?`,
		status, totalLegs, totalClients, time.Now().UTC(), id,
	).Error
}

func (r *repo) UpdateTotalAmount(ctx context.Context, db *gorm.DB, id snowflake.ID, amountTTC float64) error {
	return db.WithContext(ctx).Exec(
		`UPDATE uploads SET total_amount_ttc = ?, updated_at = ? WHERE id = ?`,
		amountTTC, time.Now().UTC(), id,
	).Error
}

type rowRepo struct{}

func ProvideRows() uploaddomain.RowRepository {
	return &rowRepo{}
}

func (r *rowRepo) ListByUpload(ctx context.Context, db *gorm.DB, uploadID snowflake.ID) ([]uploaddomain.Row, error) {
	var rows []uploaddomain.Row
	err := db.WithContext(ctx).Raw(
		`SELECT id, upload_id, client_name, pickup_address, dropoff_address, raw_date, invalid, created_at
		 FROM upload_rows WHERE upload_id = ? ORDER BY id ASC`,
		uploadID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *rowRepo) CountInvalid(ctx context.Context, db *gorm.DB, uploadID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM upload_rows WHERE upload_id = ? AND invalid`,
		uploadID,
	).Scan(&count).Error
	return count, err
}
