package migration

import (
	"github.com/smallbiznis/loyara/internal/config"
	warehousedomain "github.com/smallbiznis/loyara/internal/warehouse/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "sqlite" {
			return AutoMigrate(conn)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB, cfg.DBType)
	}),
)

// AutoMigrate creates the warehouse tables through gorm, used for sqlite
// and in-memory test databases.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&warehousedomain.DimCustomer{},
		&warehousedomain.DimProduct{},
		&warehousedomain.DimStore{},
		&warehousedomain.DimPromotion{},
		&warehousedomain.DimLoyaltyRule{},
		&warehousedomain.DimRFMRule{},
		&warehousedomain.FactSales{},
		&warehousedomain.CustomerLoyaltySegment{},
		&warehousedomain.ETLRun{},
	)
}
