package processing

import (
	"github.com/kilomet/kilomet/internal/processing/lease"
	"github.com/kilomet/kilomet/internal/processing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("processing.service",
	fx.Provide(lease.Provide),
	fx.Provide(service.New),
)
