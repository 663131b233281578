// Package modules contains the dependency units assembled by the app package.
package modules

import (
	"context"

	"clustermap.io/clustermap/internal/api/handlers"
)

// Module represents a dependency unit in the composition root.
type Module interface {
	// Name returns a stable module identifier for logging/debugging.
	Name() string

	// Start launches module-owned background work.
	Start(context.Context) error

	// Shutdown performs module-local graceful cleanup.
	Shutdown(context.Context) error
}

// ServerDepsContributor is implemented by modules that inject dependencies
// into the HTTP server.
type ServerDepsContributor interface {
	ContributeServerDeps(*handlers.ServerDeps)
}
