// Package service builds name registries from a source and serves lookups
// against the current one.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"clustermap.io/clustermap/internal/diagnostics"
	"clustermap.io/clustermap/internal/mapsource"
	"clustermap.io/clustermap/internal/namemap"
	"clustermap.io/clustermap/internal/pkg/worker"
)

// Options configures a RegistryService.
type Options struct {
	Home         namemap.EnvironmentTag
	Environments []namemap.EnvironmentTag
	StrictHome   bool

	// ReloadInterval of zero disables periodic reloads in Start.
	ReloadInterval time.Duration
}

// Mapping is the result of resolving one name.
type Mapping struct {
	Name            string `json:"name"`
	HomeEnvironment string `json:"home_environment"`
	Cluster         string `json:"cluster"`
	Database        string `json:"database"`
}

// ReloadResult summarizes one successful rebuild.
type ReloadResult struct {
	ID       string        `json:"id"`
	Source   string        `json:"source"`
	Rows     int           `json:"rows"`
	Dropped  int           `json:"dropped"`
	Aliases  int           `json:"aliases"`
	Duration time.Duration `json:"duration"`
}

// Status describes the outcome of the most recent reload attempt.
type Status struct {
	LastAttempt time.Time     `json:"last_attempt"`
	LastSuccess time.Time     `json:"last_success"`
	LastError   string        `json:"last_error,omitempty"`
	Last        *ReloadResult `json:"last,omitempty"`
}

// RegistryService owns the current registry. Reloads replace it atomically;
// a failed reload keeps the previous registry in service.
type RegistryService struct {
	opts    Options
	source  mapsource.Source
	holder  *namemap.Holder
	pool    *worker.Pool
	emitter diagnostics.Emitter
	log     *zap.Logger

	reloadMu sync.Mutex
	statusMu sync.RWMutex
	status   Status

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRegistryService creates a service serving an empty registry until the
// first Reload. pool may be nil to reload on the calling goroutine.
func NewRegistryService(opts Options, source mapsource.Source, pool *worker.Pool, emitter diagnostics.Emitter, log *zap.Logger) *RegistryService {
	if emitter == nil {
		emitter = diagnostics.NopEmitter{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RegistryService{
		opts:    opts,
		source:  source,
		holder:  namemap.NewHolder(namemap.NewNameRegistry(opts.Home, nil)),
		pool:    pool,
		emitter: emitter,
		log:     log,
		stopCh:  make(chan struct{}),
	}
}

// Registry returns the registry currently in service.
func (s *RegistryService) Registry() *namemap.NameRegistry {
	return s.holder.Load()
}

// Home returns the configured home environment.
func (s *RegistryService) Home() namemap.EnvironmentTag {
	return s.opts.Home
}

// SourceName returns the name of the row source.
func (s *RegistryService) SourceName() string {
	return s.source.Name()
}

// Status returns the outcome of the most recent reload attempt.
func (s *RegistryService) Status() Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

// Reload loads rows from the source, builds a new registry and swaps it in.
// Concurrent calls are serialized.
func (s *RegistryService) Reload(ctx context.Context) (*ReloadResult, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate reload id: %w", err)
	}
	started := time.Now()
	log := s.log.With(zap.String("reload_id", id.String()), zap.String("source", s.source.Name()))

	var reg *namemap.NameRegistry
	build := func(ctx context.Context) error {
		rows, err := s.source.Load(ctx)
		if err != nil {
			return fmt.Errorf("load rows from %s: %w", s.source.Name(), err)
		}
		reg, err = namemap.Build(s.opts.Home, rows, s.registryOptions(log)...)
		if err != nil {
			return fmt.Errorf("build registry: %w", err)
		}
		return nil
	}

	if s.pool != nil {
		err = s.pool.Do(ctx, build)
	} else {
		err = build(ctx)
	}
	// A build that finished after ctx ended is discarded.
	if err == nil {
		err = ctx.Err()
	}

	var result *ReloadResult
	if err == nil {
		s.holder.Store(reg)
		result = &ReloadResult{
			ID:       id.String(),
			Source:   s.source.Name(),
			Rows:     reg.Rows(),
			Dropped:  reg.Dropped(),
			Aliases:  reg.Len(),
			Duration: time.Since(started),
		}
	}

	s.statusMu.Lock()
	s.status.LastAttempt = started
	if err != nil {
		s.status.LastError = err.Error()
	} else {
		s.status.LastSuccess = started
		s.status.LastError = ""
		s.status.Last = result
	}
	s.statusMu.Unlock()

	if err != nil {
		s.emitter.Emit(diagnostics.EventRegistryBuildFailed,
			zap.String("reload_id", id.String()),
			zap.String("source", s.source.Name()),
			zap.Error(err),
		)
		log.Error("Registry reload failed, keeping previous registry", zap.Error(err))
		return nil, err
	}

	s.emitter.Emit(diagnostics.EventRegistryBuilt,
		zap.String("reload_id", result.ID),
		zap.String("home", string(s.opts.Home)),
		zap.Int("rows", result.Rows),
		zap.Int("aliases", result.Aliases),
	)
	if result.Dropped > 0 {
		s.emitter.Emit(diagnostics.EventRowsDropped,
			zap.String("reload_id", result.ID),
			zap.Int("dropped", result.Dropped),
		)
	}
	log.Info("Registry reloaded",
		zap.Int("rows", result.Rows),
		zap.Int("dropped", result.Dropped),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

func (s *RegistryService) registryOptions(log *zap.Logger) []namemap.Option {
	opts := []namemap.Option{namemap.WithLogger(log)}
	if len(s.opts.Environments) > 0 {
		opts = append(opts, namemap.WithKnownEnvironments(s.opts.Environments...))
	}
	if s.opts.StrictHome {
		opts = append(opts, namemap.WithStrictHome())
	}
	return opts
}

// Start begins periodic reloads. It does not perform an initial reload.
// nolint:naked-goroutine // reload ticker loop; each reload itself runs on the worker pool.
func (s *RegistryService) Start(ctx context.Context) {
	if s.opts.ReloadInterval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(s.opts.ReloadInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				_, _ = s.Reload(ctx)
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts periodic reloads. Safe to call more than once.
func (s *RegistryService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

// ResolveCluster maps a cluster alias to its home cluster and paired home
// database.
func (s *RegistryService) ResolveCluster(name string) (Mapping, bool) {
	return s.resolve("cluster", name)
}

// ResolveDatabase maps a database alias to its home database and paired home
// cluster.
func (s *RegistryService) ResolveDatabase(name string) (Mapping, bool) {
	return s.resolve("database", name)
}

// resolve reads both names from one registry snapshot. Aliases share a single
// index, so the pair always comes from the same row.
func (s *RegistryService) resolve(kind, name string) (Mapping, bool) {
	reg := s.Registry()
	cluster, database := reg.MapCluster(name), reg.MapDatabase(name)
	if cluster == nil || database == nil {
		s.miss(kind, name)
		return Mapping{}, false
	}
	return Mapping{
		Name:            name,
		HomeEnvironment: string(reg.Home()),
		Cluster:         *cluster,
		Database:        *database,
	}, true
}

func (s *RegistryService) miss(kind, name string) {
	s.emitter.Emit(diagnostics.EventLookupMiss,
		zap.String("kind", kind),
		zap.String("name", name),
	)
}
