package repository

import (
	"context"

	routecachedomain "github.com/kilomet/kilomet/internal/routecache/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() routecachedomain.Repository {
	return &repo{}
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, origin, destination string) (*routecachedomain.Entry, error) {
	var entry routecachedomain.Entry
	err := db.WithContext(ctx).Raw(
		`SELECT normalized_origin, normalized_destination, meters, seconds, status, err_message, metadata, created_at, updated_at
		 FROM route_cache WHERE normalized_origin = ? AND normalized_destination = ?`,
		origin, destination,
	).Scan(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.NormalizedOrigin == "" {
		return nil, nil
	}
	return &entry, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, entry *routecachedomain.Entry) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "normalized_origin"}, {Name: "normalized_destination"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"meters", "seconds", "status", "err_message", "metadata", "updated_at",
		}),
	}).Create(entry).Error
}
