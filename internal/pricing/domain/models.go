package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Tier is one row of an upload's price list: a closed-open distance range
// with an associated unit price and tax rate. A nil EndKm means "and above"
// and is only valid in last position.
type Tier struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	UploadID    snowflake.ID `json:"upload_id" gorm:"column:upload_id;not null;index"`
	StartKm     float64      `json:"start_km" gorm:"type:numeric;not null"`
	EndKm       *float64     `json:"end_km,omitempty" gorm:"type:numeric"`
	UnitPriceHT float64      `json:"unit_price_ht" gorm:"type:numeric;not null"`
	TaxRate     float64      `json:"tax_rate" gorm:"type:numeric;not null"`
	Label       string       `json:"label" gorm:"type:text;not null"`
	CreatedAt   time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Tier) TableName() string { return "pricing_tiers" }

// Matches reports whether the distance falls inside the tier's range. The
// end bound is exclusive; the unterminated last tier is one-sided.
func (t Tier) Matches(km float64) bool {
	if km < t.StartKm {
		return false
	}
	return t.EndKm == nil || km < *t.EndKm
}

// TierLabel renders the display label for a range, e.g. "5-10 km" or "10+ km".
func TierLabel(startKm float64, endKm *float64) string {
	if endKm == nil {
		return fmt.Sprintf("%g+ km", startKm)
	}
	return fmt.Sprintf("%g-%g km", startKm, *endKm)
}

// Round2 rounds to 2 decimal places. It is applied after each arithmetic
// step so stored amounts match displayed totals exactly.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
