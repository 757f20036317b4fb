package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// DefaultTier is one row of the fallback price list used when an upload
// has no stored tier configuration yet.
type DefaultTier struct {
	StartKm     float64  `mapstructure:"startKm"`
	EndKm       *float64 `mapstructure:"endKm"`
	UnitPriceHT float64  `mapstructure:"unitPriceHT"`
	TaxRate     float64  `mapstructure:"taxRate"`
}

type PricingDefaults struct {
	Tiers []DefaultTier `mapstructure:"tiers"`
}

func DefaultPricingDefaults() PricingDefaults {
	return PricingDefaults{
		Tiers: []DefaultTier{
			{StartKm: 0, EndKm: floatPtr(5), UnitPriceHT: 8, TaxRate: 20},
			{StartKm: 5, EndKm: floatPtr(10), UnitPriceHT: 10, TaxRate: 20},
			{StartKm: 10, EndKm: nil, UnitPriceHT: 12, TaxRate: 20},
		},
	}
}

func floatPtr(v float64) *float64 { return &v }

// PricingDefaultsHolder keeps the default tier list hot-reloadable.
type PricingDefaultsHolder struct {
	current atomic.Value // holds PricingDefaults
}

func NewPricingDefaults(cfg Config) (*PricingDefaultsHolder, error) {
	v := viper.New()

	v.SetConfigName("pricing")
	v.SetConfigType("yml")
	if cfg.PricingDefaultsPath != "" {
		v.AddConfigPath(cfg.PricingDefaultsPath)
	}
	v.AddConfigPath("/etc/kilomet")
	v.AddConfigPath(".")

	v.SetEnvPrefix("KILOMET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultPricingDefaults()
		v.SetDefault("pricing.tiers", defaults.Tiers)
	}

	var defaults PricingDefaults
	if err := v.UnmarshalKey("pricing", &defaults); err != nil {
		return nil, err
	}
	if err := validatePricingDefaults(defaults); err != nil {
		return nil, err
	}

	holder := &PricingDefaultsHolder{}
	holder.current.Store(defaults)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PricingDefaults
		if err := v.UnmarshalKey("pricing", &updated); err != nil {
			log.Printf("[pricing-config] reload failed: %v", err)
			return
		}
		if err := validatePricingDefaults(updated); err != nil {
			log.Printf("[pricing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[pricing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *PricingDefaultsHolder) Get() PricingDefaults {
	return h.current.Load().(PricingDefaults)
}

func validatePricingDefaults(defaults PricingDefaults) error {
	if len(defaults.Tiers) == 0 {
		return errors.New("pricing.tiers cannot be empty")
	}
	prev := -1.0
	for i, tier := range defaults.Tiers {
		if tier.StartKm < 0 || tier.UnitPriceHT < 0 || tier.TaxRate < 0 {
			return errors.New("pricing.tiers values must be non-negative")
		}
		if tier.StartKm <= prev {
			return errors.New("pricing.tiers must be sorted by startKm")
		}
		if tier.EndKm != nil && *tier.EndKm <= tier.StartKm {
			return errors.New("pricing.tiers endKm must be greater than startKm")
		}
		if tier.EndKm == nil && i != len(defaults.Tiers)-1 {
			return errors.New("pricing.tiers open-ended tier must be last")
		}
		prev = tier.StartKm
	}
	return nil
}
