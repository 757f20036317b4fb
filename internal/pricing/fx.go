package pricing

import (
	"github.com/kilomet/kilomet/internal/pricing/repository"
	"github.com/kilomet/kilomet/internal/pricing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pricing.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
