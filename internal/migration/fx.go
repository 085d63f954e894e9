package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	attendancedomain "github.com/digiget/digiget/internal/attendance/domain"
	"github.com/digiget/digiget/internal/audit"
	authdomain "github.com/digiget/digiget/internal/auth/domain"
	"github.com/digiget/digiget/internal/config"
	"github.com/digiget/digiget/internal/cooldown"
	customerdomain "github.com/digiget/digiget/internal/customer/domain"
	employeedomain "github.com/digiget/digiget/internal/employee/domain"
	ledgerdomain "github.com/digiget/digiget/internal/ledger/domain"
	loyaltydomain "github.com/digiget/digiget/internal/loyalty/domain"
	offerdomain "github.com/digiget/digiget/internal/offer/domain"
	ratingdomain "github.com/digiget/digiget/internal/rating/domain"
	"github.com/digiget/digiget/internal/seed"
	shopdomain "github.com/digiget/digiget/internal/shop/domain"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg *config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// sqlite and mysql are dev conveniences; gorm derives the
			// schema from the models there.
			if err := conn.AutoMigrate(
				&authdomain.User{},
				&authdomain.Session{},
				&shopdomain.Shop{},
				&employeedomain.Employee{},
				&customerdomain.Customer{},
				&ledgerdomain.Entry{},
				&loyaltydomain.Visit{},
				&attendancedomain.ClockEntry{},
				&cooldown.Relaxation{},
				&ratingdomain.Rating{},
				&offerdomain.Offer{},
				&audit.Log{},
			); err != nil {
				return err
			}
		}

		if cfg.SeedDemoShop {
			return seed.EnsureDemoShop(conn)
		}
		return nil
	}),
)
