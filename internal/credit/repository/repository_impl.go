package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	creditdomain "github.com/kilomet/kilomet/internal/credit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() creditdomain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*creditdomain.Profile, error) {
	var profile creditdomain.Profile
	err := db.WithContext(ctx).Raw(
		`SELECT id, balance, created_at, updated_at FROM profiles WHERE id = ?`,
		id,
	).Scan(&profile).Error
	if err != nil {
		return nil, err
	}
	if profile.ID == 0 {
		return nil, nil
	}
	return &profile, nil
}

func (r *repo) DecrementIf(ctx context.Context, db *gorm.DB, id snowflake.ID, expected, amount int64) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE profiles SET balance = balance - ?, updated_at = ? WHERE id = ? AND balance = ?`,
		amount, time.Now().UTC(), id, expected,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
