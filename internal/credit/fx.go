package credit

import (
	"github.com/kilomet/kilomet/internal/credit/repository"
	"github.com/kilomet/kilomet/internal/credit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("credit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
