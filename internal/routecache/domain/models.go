package domain

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

const (
	EntryStatusOK    = "ok"
	EntryStatusError = "error"
)

// Entry memoizes one normalized (origin, destination) pair. Error rows are a
// deliberate negative cache: a known-bad pair fails fast without re-billing
// the provider.
type Entry struct {
	NormalizedOrigin      string            `json:"normalized_origin" gorm:"primaryKey;type:text"`
	NormalizedDestination string            `json:"normalized_destination" gorm:"primaryKey;type:text"`
	Meters                int64             `json:"meters" gorm:"not null;default:0"`
	Seconds               int64             `json:"seconds" gorm:"not null;default:0"`
	Status                string            `json:"status" gorm:"type:text;not null"`
	ErrMessage            string            `json:"err_message" gorm:"type:text"`
	Metadata              datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt             time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt             time.Time         `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Entry) TableName() string { return "route_cache" }

// NormalizeAddress folds case and collapses whitespace so equivalent spellings
// share one cache entry.
func NormalizeAddress(raw string) string {
	return strings.ToLower(strings.Join(strings.Fields(raw), " "))
}
