package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status is the authoritative lifecycle state of a batch upload. Only the
// processing orchestrator and the pricing engine may write it.
type Status string

const (
	StatusReady             Status = "ready"
	StatusPendingValidation Status = "pending_validation"
	StatusProcessing        Status = "processing"
	StatusDistancesDone     Status = "distances_done"
	StatusFailed            Status = "failed"
)

type Upload struct {
	ID             snowflake.ID `json:"id" gorm:"primaryKey"`
	OwnerID        snowflake.ID `json:"owner_id" gorm:"column:owner_id;not null;index"`
	Status         Status       `json:"status" gorm:"type:text;not null;default:'ready'"`
	TotalLegs      int          `json:"total_legs" gorm:"not null;default:0"`
	TotalClients   int          `json:"total_clients" gorm:"not null;default:0"`
	TotalAmountTTC float64      `json:"total_amount_ttc" gorm:"type:numeric;not null;default:0"`
	CreatedAt      time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Upload) TableName() string { return "uploads" }

// Row is one parsed spreadsheet row, written by the upstream ingest adapter.
// The pipeline only ever reads rows; Invalid marks an address-syntax issue
// that must be corrected before processing may start.
type Row struct {
	ID             snowflake.ID `json:"id" gorm:"primaryKey"`
	UploadID       snowflake.ID `json:"upload_id" gorm:"column:upload_id;not null;index"`
	ClientName     string       `json:"client_name" gorm:"type:text;not null"`
	PickupAddress  string       `json:"pickup_address" gorm:"type:text;not null"`
	DropoffAddress string       `json:"dropoff_address" gorm:"type:text;not null"`
	RawDate        string       `json:"raw_date" gorm:"type:text"`
	Invalid        bool         `json:"invalid" gorm:"not null;default:false"`
	CreatedAt      time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Row) TableName() string { return "upload_rows" }
