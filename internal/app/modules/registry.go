package modules

import (
	"context"
	"fmt"

	"clustermap.io/clustermap/internal/api/handlers"
	"clustermap.io/clustermap/internal/diagnostics"
	"clustermap.io/clustermap/internal/namemap"
	"clustermap.io/clustermap/internal/pkg/logger"
	"clustermap.io/clustermap/internal/pkg/worker"
	"clustermap.io/clustermap/internal/service"
)

// RegistryModule owns the registry service and its reload loop.
type RegistryModule struct {
	infra   *Infrastructure
	service *service.RegistryService
	events  *diagnostics.Counter
}

// NewRegistryModule builds the service and performs the initial load. A
// failed initial load is fatal; later reload failures keep the old registry.
func NewRegistryModule(ctx context.Context, infra *Infrastructure) (*RegistryModule, error) {
	if infra == nil || infra.Config == nil || infra.Source == nil {
		return nil, fmt.Errorf("infrastructure is not initialized")
	}
	rc := infra.Config.Registry

	envs := make([]namemap.EnvironmentTag, 0, len(rc.Environments))
	for _, e := range rc.Environments {
		envs = append(envs, namemap.EnvironmentTag(e))
	}

	events := diagnostics.NewCounter()
	dispatcher := diagnostics.NewDispatcher()
	// Log delivery runs on the general pool so lookups never wait on log I/O.
	dispatcher.Subscribe(diagnostics.NewAsyncEmitter(
		diagnostics.NewZapEmitter(logger.Named("diagnostics")),
		func(task func()) error {
			return infra.Pools.SubmitDetached(worker.PoolGeneral, func(context.Context) { task() })
		},
	))
	dispatcher.Subscribe(events)

	svc := service.NewRegistryService(service.Options{
		Home:           namemap.EnvironmentTag(rc.HomeEnvironment),
		Environments:   envs,
		StrictHome:     rc.StrictHome,
		ReloadInterval: rc.ReloadInterval,
	},
		infra.Source,
		infra.Pools.Reload,
		dispatcher,
		logger.Named("registry"),
	)

	if _, err := svc.Reload(ctx); err != nil {
		return nil, fmt.Errorf("initial registry load: %w", err)
	}
	return &RegistryModule{infra: infra, service: svc, events: events}, nil
}

// Name implements Module.
func (m *RegistryModule) Name() string { return "registry" }

// Service returns the registry service.
func (m *RegistryModule) Service() *service.RegistryService { return m.service }

// ContributeServerDeps implements ServerDepsContributor.
func (m *RegistryModule) ContributeServerDeps(deps *handlers.ServerDeps) {
	deps.Registry = m.service
	deps.Events = m.events
	if m.infra.DB != nil {
		deps.Database = m.infra.DB
	}
}

// Start implements Module.
func (m *RegistryModule) Start(ctx context.Context) error {
	m.service.Start(ctx)
	return nil
}

// Shutdown implements Module.
func (m *RegistryModule) Shutdown(context.Context) error {
	m.service.Stop()
	return nil
}
