package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"clustermap.io/clustermap/internal/pkg/logger"
)

// Start starts all background services.
func (a *Application) Start(ctx context.Context) error {
	for _, mod := range a.Modules {
		if mod == nil {
			continue
		}
		if err := mod.Start(ctx); err != nil {
			return fmt.Errorf("start module %s: %w", mod.Name(), err)
		}
		logger.Info("Module started", zap.String("module", mod.Name()))
	}
	return nil
}

// Shutdown gracefully shuts down all application components.
func (a *Application) Shutdown() {
	shutdownCtx := context.Background()

	for _, mod := range a.Modules {
		if mod == nil {
			continue
		}
		if err := mod.Shutdown(shutdownCtx); err != nil {
			logger.Warn("module shutdown returned error",
				zap.String("module", mod.Name()),
				zap.Error(err),
			)
		}
	}

	if a.Pools != nil {
		a.Pools.Shutdown()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
