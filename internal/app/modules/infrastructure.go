package modules

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"clustermap.io/clustermap/internal/config"
	"clustermap.io/clustermap/internal/infrastructure"
	"clustermap.io/clustermap/internal/mapsource"
	"clustermap.io/clustermap/internal/pkg/logger"
	"clustermap.io/clustermap/internal/pkg/worker"
)

// Infrastructure holds shared cross-cutting dependencies for all modules.
// It is a provider, not a Module.
type Infrastructure struct {
	Config *config.Config
	// DB is nil unless rows come from PostgreSQL.
	DB     *infrastructure.DatabaseClients
	Pools  *worker.Pools
	Source mapsource.Source
}

// NewInfrastructure initializes worker pools and the configured row source.
func NewInfrastructure(ctx context.Context, cfg *config.Config) (*Infrastructure, error) {
	pools, err := worker.NewPools(ctx, worker.PoolConfig{
		GeneralPoolSize: cfg.Worker.GeneralPoolSize,
		ReloadPoolSize:  cfg.Worker.ReloadPoolSize,
	})
	if err != nil {
		return nil, fmt.Errorf("init worker pools: %w", err)
	}

	infra := &Infrastructure{Config: cfg, Pools: pools}

	switch cfg.Registry.Source {
	case config.SourcePostgres:
		db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
		if err != nil {
			infra.Close()
			return nil, fmt.Errorf("init database: %w", err)
		}
		infra.DB = db
		src := mapsource.NewPostgresSource(db.Pool, cfg.Registry.Table)
		if err := src.EnsureSchema(ctx); err != nil {
			infra.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		infra.Source = src
	case config.SourceFile:
		infra.Source = mapsource.NewFileSource(cfg.Registry.FilePath)
	default:
		infra.Close()
		return nil, fmt.Errorf("unknown registry source %q", cfg.Registry.Source)
	}

	logger.Info("Registry source configured", zap.String("source", infra.Source.Name()))
	return infra, nil
}

// Close releases infra resources in reverse dependency order.
func (i *Infrastructure) Close() {
	if i == nil {
		return
	}
	if i.Pools != nil {
		i.Pools.Shutdown()
	}
	if i.DB != nil {
		i.DB.Close()
	}
}
