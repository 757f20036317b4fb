package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Profile carries the per-account usage-credit balance. The balance is only
// ever mutated through a compare-and-swap and never goes negative.
type Profile struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	Balance   int64        `json:"balance" gorm:"not null;default:0"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Profile) TableName() string { return "profiles" }
