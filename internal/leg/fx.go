package leg

import (
	"github.com/kilomet/kilomet/internal/leg/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("leg.repository",
	fx.Provide(repository.Provide),
)
