package upload

import (
	"github.com/kilomet/kilomet/internal/upload/repository"
	"github.com/kilomet/kilomet/internal/upload/service"
	"go.uber.org/fx"
)

var Module = fx.Module("upload.service",
	fx.Provide(repository.Provide),
	fx.Provide(repository.ProvideRows),
	fx.Provide(service.New),
)
