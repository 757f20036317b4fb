package routing

import (
	"github.com/kilomet/kilomet/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.routing",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config) Provider {
	return NewHTTP(Config{
		BaseURL: cfg.Routing.BaseURL,
		APIKey:  cfg.Routing.APIKey,
		Timeout: cfg.Routing.Timeout,
	})
}
