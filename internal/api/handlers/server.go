// Package handlers serves the clustermap HTTP API.
//
// Route registration lives in the app package; handlers only translate
// between HTTP and the registry service.
package handlers

import (
	"context"

	"clustermap.io/clustermap/internal/diagnostics"
	"clustermap.io/clustermap/internal/pkg/worker"
	"clustermap.io/clustermap/internal/service"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server implements the API handlers.
type Server struct {
	registry      *service.RegistryService
	pools         *worker.Pools
	events        *diagnostics.Counter
	database      Pinger
	reloadEnabled bool
}

// ServerDeps holds all dependencies for creating a Server.
type ServerDeps struct {
	Registry *service.RegistryService
	Pools    *worker.Pools
	// Events is optional; when set its counts appear in GET /registry.
	Events *diagnostics.Counter
	// Database is nil when rows are not read from PostgreSQL.
	Database      Pinger
	ReloadEnabled bool
}

// NewServer creates a new Server with all dependencies.
func NewServer(deps ServerDeps) *Server {
	return &Server{
		registry:      deps.Registry,
		pools:         deps.Pools,
		events:        deps.Events,
		database:      deps.Database,
		reloadEnabled: deps.ReloadEnabled,
	}
}
