package migrate

import (
	"context"
	"fmt"

	"github.com/wanterio/wanterio-backend/pkg/config"
	"github.com/wanterio/wanterio-backend/pkg/db"
	"github.com/wanterio/wanterio-backend/pkg/db/models"
	"github.com/wanterio/wanterio-backend/pkg/logger"
)

// MaybeRunDev migrates the schema on startup in dev when WANTERIO_AUTO_MIGRATE
// is set. SQLite is migrated from the GORM models; the goose files use
// Postgres-only syntax.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	if client.IsSQLite() {
		ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": "sqlite"})
		logg.Info(ctx, "running AutoMigrate (dev auto-run)")
		if err := AutoMigrateModels(ctx, client); err != nil {
			return err
		}
		logg.Info(ctx, "AutoMigrate completed")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": "postgres"})
	logg.Info(ctx, "applying embedded migrations (dev auto-run)")
	if err := Run(ctx, sqlDB, "", "up"); err != nil {
		return err
	}
	logg.Info(ctx, "migrations applied")
	return nil
}

// AutoMigrateModels creates or updates every table from the GORM models.
func AutoMigrateModels(ctx context.Context, client *db.Client) error {
	if err := client.DB().WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
