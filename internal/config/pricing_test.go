package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewPricingDefaultsFallsBackToBuiltins(t *testing.T) {
	holder, err := NewPricingDefaults(Config{PricingDefaultsPath: t.TempDir()})
	if err != nil {
		t.Fatalf("new pricing defaults: %v", err)
	}

	defaults := holder.Get()
	if len(defaults.Tiers) != 3 {
		t.Fatalf("expected 3 built-in tiers, got %d", len(defaults.Tiers))
	}
	if defaults.Tiers[0].StartKm != 0 || defaults.Tiers[0].UnitPriceHT != 8 {
		t.Fatalf("unexpected first tier: %+v", defaults.Tiers[0])
	}
	if defaults.Tiers[2].EndKm != nil {
		t.Fatal("last built-in tier must be open-ended")
	}
}

func TestNewPricingDefaultsReadsFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`pricing:
  tiers:
    - startKm: 0
      endKm: 20
      unitPriceHT: 6.5
      taxRate: 10
    - startKm: 20
      unitPriceHT: 9
      taxRate: 10
`)
	if err := os.WriteFile(filepath.Join(dir, "pricing.yml"), content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	holder, err := NewPricingDefaults(Config{PricingDefaultsPath: dir})
	if err != nil {
		t.Fatalf("new pricing defaults: %v", err)
	}

	defaults := holder.Get()
	if len(defaults.Tiers) != 2 {
		t.Fatalf("expected 2 tiers, got %d", len(defaults.Tiers))
	}
	if defaults.Tiers[0].UnitPriceHT != 6.5 || defaults.Tiers[1].EndKm != nil {
		t.Fatalf("unexpected tiers: %+v", defaults.Tiers)
	}
}

func TestValidatePricingDefaults(t *testing.T) {
	end := 5.0
	bad := []PricingDefaults{
		{},
		{Tiers: []DefaultTier{{StartKm: -1}}},
		{Tiers: []DefaultTier{{StartKm: 5, EndKm: &end}}},
		{Tiers: []DefaultTier{
			{StartKm: 0},
			{StartKm: 5, EndKm: &end, UnitPriceHT: 1},
		}},
		{Tiers: []DefaultTier{
			{StartKm: 5, EndKm: nil},
			{StartKm: 5, EndKm: nil},
		}},
	}
	for i, defaults := range bad {
		if err := validatePricingDefaults(defaults); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}

	if err := validatePricingDefaults(DefaultPricingDefaults()); err != nil {
		t.Fatalf("built-in defaults must validate: %v", err)
	}
}
