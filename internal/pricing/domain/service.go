package domain

import (
	"context"
	"errors"
)

var (
	ErrInvalidTierList = errors.New("pricing_invalid_tier_list")
)

type TierInput struct {
	StartKm     float64  `json:"start_km"`
	EndKm       *float64 `json:"end_km"`
	UnitPriceHT float64  `json:"unit_price_ht"`
	TaxRate     float64  `json:"tax_rate"`
}

type TierResponse struct {
	StartKm     float64  `json:"start_km"`
	EndKm       *float64 `json:"end_km,omitempty"`
	UnitPriceHT float64  `json:"unit_price_ht"`
	TaxRate     float64  `json:"tax_rate"`
	Label       string   `json:"label"`
}

// Summary reports one pricing pass over an upload.
type Summary struct {
	PricedLegs int     `json:"priced_legs"`
	NonPriced  int     `json:"non_priced"`
	Clients    int     `json:"clients"`
	TotalHT    float64 `json:"total_ht"`
	TotalTTC   float64 `json:"total_ttc"`
}

type Service interface {
	// Apply replaces the upload's tier list, reprices every leg and
	// recomputes client and upload aggregates. Fully idempotent.
	Apply(ctx context.Context, uploadID string, tiers []TierInput) (*Summary, error)
	GetConfig(ctx context.Context, uploadID string) ([]TierResponse, error)
}
