package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// UnknownClientName is the sentinel bucket for rows without a client name.
const UnknownClientName = "Client inconnu"

// Client is a billing party discovered within one upload. Unique per
// (upload_id, name); leg counts are written by the orchestrator, monetary
// totals by the pricing engine.
type Client struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	UploadID   snowflake.ID `json:"upload_id" gorm:"column:upload_id;not null;uniqueIndex:idx_clients_upload_name"`
	Name       string       `json:"name" gorm:"type:text;not null;uniqueIndex:idx_clients_upload_name"`
	Address    string       `json:"address" gorm:"type:text"`
	PostalCode string       `json:"postal_code" gorm:"type:text"`
	City       string       `json:"city" gorm:"type:text"`
	LegCount   int          `json:"leg_count" gorm:"not null;default:0"`
	TotalHT    float64      `json:"total_ht" gorm:"type:numeric;not null;default:0"`
	TotalTTC   float64      `json:"total_ttc" gorm:"type:numeric;not null;default:0"`
	CreatedAt  time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Client) TableName() string { return "clients" }
