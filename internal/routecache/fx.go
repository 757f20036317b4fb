package routecache

import (
	"github.com/kilomet/kilomet/internal/routecache/repository"
	"github.com/kilomet/kilomet/internal/routecache/service"
	"go.uber.org/fx"
)

var Module = fx.Module("routecache.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
