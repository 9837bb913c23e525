package migrate

import (
	"context"
	"fmt"

	"github.com/wecr8/damp-backend/pkg/config"
	"github.com/wecr8/damp-backend/pkg/db"
	"github.com/wecr8/damp-backend/pkg/logger"
)

// MaybeRunDev migrates local databases at boot. SQLite always qualifies;
// Postgres only in dev with DAMP_AUTO_MIGRATE set.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !autoMigrate(cfg) {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("unwrap gorm pool: %w", err)
	}
	runner, err := NewRunner(sqlDB, client.Dialect(), DefaultDir)
	if err != nil {
		return err
	}

	applied, err := runner.Up(ctx)
	if err != nil {
		return err
	}
	logg.Info(logg.WithFields(ctx, map[string]any{
		"dialect": client.Dialect(),
		"applied": len(applied),
	}), "schema up to date")
	return nil
}

func autoMigrate(cfg *config.Config) bool {
	if cfg.FeatureFlags.UseSQLite {
		return true
	}
	return cfg.App.IsDev() && cfg.FeatureFlags.AutoMigrate
}
