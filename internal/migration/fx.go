package migration

import (
	clientdomain "github.com/kilomet/kilomet/internal/client/domain"
	"github.com/kilomet/kilomet/internal/config"
	creditdomain "github.com/kilomet/kilomet/internal/credit/domain"
	legdomain "github.com/kilomet/kilomet/internal/leg/domain"
	pricingdomain "github.com/kilomet/kilomet/internal/pricing/domain"
	routecachedomain "github.com/kilomet/kilomet/internal/routecache/domain"
	uploaddomain "github.com/kilomet/kilomet/internal/upload/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			// sqlite (local dev) has no migration driver wired; let gorm
			// build the schema from the models instead.
			return conn.AutoMigrate(
				&uploaddomain.Upload{},
				&uploaddomain.Row{},
				&clientdomain.Client{},
				&legdomain.Leg{},
				&routecachedomain.Entry{},
				&pricingdomain.Tier{},
				&creditdomain.Profile{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
