// Package app is the composition root: it wires configuration, the row
// source, the registry service and the HTTP router.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"clustermap.io/clustermap/internal/api/handlers"
	"clustermap.io/clustermap/internal/app/modules"
	"clustermap.io/clustermap/internal/config"
	"clustermap.io/clustermap/internal/infrastructure"
	"clustermap.io/clustermap/internal/pkg/worker"
	"clustermap.io/clustermap/internal/service"
)

// Application holds composed application dependencies.
type Application struct {
	Config   *config.Config
	Router   *gin.Engine
	DB       *infrastructure.DatabaseClients
	Pools    *worker.Pools
	Registry *service.RegistryService
	Modules  []modules.Module
}

// Bootstrap initializes all dependencies using module-oriented manual DI.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Application, error) {
	infra, err := modules.NewInfrastructure(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init infrastructure: %w", err)
	}

	registryModule, err := modules.NewRegistryModule(ctx, infra)
	if err != nil {
		infra.Close()
		return nil, fmt.Errorf("init registry module: %w", err)
	}

	allModules := []modules.Module{registryModule}
	serverDeps := modules.NewServerDeps(cfg, infra, allModules)
	server := handlers.NewServer(serverDeps)

	return &Application{
		Config:   cfg,
		Router:   newRouter(cfg, server, modules.NewJWTConfig(cfg)),
		DB:       infra.DB,
		Pools:    infra.Pools,
		Registry: registryModule.Service(),
		Modules:  allModules,
	}, nil
}
