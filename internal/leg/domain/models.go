package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// LegStatus records the outcome of resolving one leg's distance.
type LegStatus string

const (
	// StatusDistanceOK means the routing provider (or cache) returned a
	// usable distance.
	StatusDistanceOK LegStatus = "DISTANCE_OK"
	// StatusAddressNotFound covers empty or unroutable addresses and
	// non-positive provider distances.
	StatusAddressNotFound LegStatus = "ADDRESS_NOT_FOUND"
	// StatusCalculationError covers provider outages and unexpected failures.
	StatusCalculationError LegStatus = "CALCULATION_ERROR"
)

// Leg is one origin-to-destination delivery trip. Legs are deleted and
// recreated on reprocessing, never appended. Price fields stay nil until the
// pricing engine runs.
type Leg struct {
	ID             snowflake.ID `json:"id" gorm:"primaryKey"`
	UploadID       snowflake.ID `json:"upload_id" gorm:"column:upload_id;not null;index"`
	ClientID       snowflake.ID `json:"client_id" gorm:"column:client_id;not null;index"`
	PickupAddress  string       `json:"pickup_address" gorm:"type:text;not null"`
	DropoffAddress string       `json:"dropoff_address" gorm:"type:text;not null"`
	RawDate        string       `json:"raw_date" gorm:"type:text"`
	DistanceKm     *float64     `json:"distance_km,omitempty" gorm:"type:numeric"`
	PriceHT        *float64     `json:"price_ht,omitempty" gorm:"type:numeric"`
	PriceTTC       *float64     `json:"price_ttc,omitempty" gorm:"type:numeric"`
	TierLabel      *string      `json:"tier_label,omitempty" gorm:"type:text"`
	Status         LegStatus    `json:"status" gorm:"type:text;not null"`
	CreatedAt      time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Leg) TableName() string { return "legs" }

// ClientAggregate is a per-client rollup computed from the legs table.
type ClientAggregate struct {
	ClientID snowflake.ID
	LegCount int
	TotalHT  float64
	TotalTTC float64
}
