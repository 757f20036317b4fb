package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/kilomet/kilomet/internal/client"
	"github.com/kilomet/kilomet/internal/clock"
	"github.com/kilomet/kilomet/internal/config"
	"github.com/kilomet/kilomet/internal/credit"
	"github.com/kilomet/kilomet/internal/leg"
	"github.com/kilomet/kilomet/internal/migration"
	"github.com/kilomet/kilomet/internal/observability"
	"github.com/kilomet/kilomet/internal/pricing"
	"github.com/kilomet/kilomet/internal/processing"
	"github.com/kilomet/kilomet/internal/providers/routing"
	"github.com/kilomet/kilomet/internal/routecache"
	"github.com/kilomet/kilomet/internal/server"
	"github.com/kilomet/kilomet/internal/upload"
	"github.com/kilomet/kilomet/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Delivery resolution and pricing pipeline
		upload.Module,
		client.Module,
		leg.Module,
		routing.Module,
		routecache.Module,
		credit.Module,
		processing.Module,
		pricing.Module,

		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Invoke(func(s *server.Server) {
			s.RegisterAPIRoutes()
		}),
		fx.Invoke(server.RunHTTP),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
