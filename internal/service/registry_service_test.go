package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"clustermap.io/clustermap/internal/diagnostics"
	"clustermap.io/clustermap/internal/mapsource"
	"clustermap.io/clustermap/internal/namemap"
	"clustermap.io/clustermap/internal/pkg/logger"
	"clustermap.io/clustermap/internal/pkg/worker"
)

func init() {
	_ = logger.Init("error", "json")
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []diagnostics.EventID
}

func (r *recordingEmitter) Emit(id diagnostics.EventID, _ ...zap.Field) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, id)
}

func (r *recordingEmitter) count(id diagnostics.EventID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == id {
			n++
		}
	}
	return n
}

type switchSource struct {
	calls atomic.Int32
	fail  atomic.Bool
	rows  []namemap.EnvironmentRow
}

func (s *switchSource) Name() string { return "switch" }

func (s *switchSource) Load(context.Context) ([]namemap.EnvironmentRow, error) {
	s.calls.Add(1)
	if s.fail.Load() {
		return nil, errors.New("source unavailable")
	}
	return s.rows, nil
}

func sampleRows() []namemap.EnvironmentRow {
	return []namemap.EnvironmentRow{
		{
			"public":   {Cluster: "fake_cluster1", Database: "fake_database1"},
			"mooncake": {Cluster: "fake_cluster2", Database: "fake_database2"},
			"fairfax":  {Cluster: "fake_cluster3", Database: "fake_database3"},
		},
		{
			"public":   {Cluster: "broken_cluster"},
			"mooncake": {Cluster: "broken_cluster2", Database: "broken_database2"},
		},
	}
}

func newPools(t *testing.T) *worker.Pools {
	t.Helper()
	pools, err := worker.NewPools(context.Background(), worker.DefaultPoolConfig())
	require.NoError(t, err)
	t.Cleanup(pools.Shutdown)
	return pools
}

func TestRegistryService_ReloadAndResolve(t *testing.T) {
	emitter := &recordingEmitter{}
	svc := NewRegistryService(Options{Home: "public"},
		mapsource.NewStaticSource(sampleRows()...), newPools(t).Reload, emitter, nil)

	_, ok := svc.ResolveCluster("fake_cluster2")
	assert.False(t, ok, "registry must be empty before the first reload")

	result, err := svc.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rows)
	assert.Equal(t, 1, result.Dropped)
	assert.Equal(t, "static", result.Source)
	assert.NotEmpty(t, result.ID)

	m, ok := svc.ResolveCluster("FAKE_CLUSTER2")
	require.True(t, ok)
	assert.Equal(t, Mapping{
		Name:            "FAKE_CLUSTER2",
		HomeEnvironment: "public",
		Cluster:         "fake_cluster1",
		Database:        "fake_database1",
	}, m)

	m, ok = svc.ResolveDatabase("fake_database3")
	require.True(t, ok)
	assert.Equal(t, "fake_cluster1", m.Cluster)
	assert.Equal(t, "fake_database1", m.Database)

	_, ok = svc.ResolveCluster("broken_cluster2")
	assert.False(t, ok)

	assert.Equal(t, 1, emitter.count(diagnostics.EventRegistryBuilt))
	assert.Equal(t, 1, emitter.count(diagnostics.EventRowsDropped))
	assert.Equal(t, 2, emitter.count(diagnostics.EventLookupMiss))
}

func TestRegistryService_ResolveCrossKind(t *testing.T) {
	svc := NewRegistryService(Options{Home: "public"},
		mapsource.NewStaticSource(sampleRows()...), nil, nil, nil)
	_, err := svc.Reload(context.Background())
	require.NoError(t, err)

	// A database alias passed as a cluster name still resolves to the pair.
	m, ok := svc.ResolveCluster("fake_database2")
	require.True(t, ok)
	assert.Equal(t, "fake_cluster1", m.Cluster)
	assert.Equal(t, "fake_database1", m.Database)

	m, ok = svc.ResolveDatabase("fake_cluster3")
	require.True(t, ok)
	assert.Equal(t, "fake_cluster1", m.Cluster)
	assert.Equal(t, "fake_database1", m.Database)
}

func TestRegistryService_FailedReloadKeepsPrevious(t *testing.T) {
	src := &switchSource{rows: sampleRows()}
	emitter := &recordingEmitter{}
	svc := NewRegistryService(Options{Home: "public"}, src, newPools(t).Reload, emitter, nil)

	_, err := svc.Reload(context.Background())
	require.NoError(t, err)
	before := svc.Registry()

	src.fail.Store(true)
	_, err = svc.Reload(context.Background())
	require.Error(t, err)

	assert.Same(t, before, svc.Registry())
	_, ok := svc.ResolveCluster("fake_cluster3")
	assert.True(t, ok)

	status := svc.Status()
	assert.Contains(t, status.LastError, "source unavailable")
	assert.False(t, status.LastSuccess.IsZero())
	require.NotNil(t, status.Last)
	assert.Equal(t, 1, status.Last.Rows)
	assert.Equal(t, 1, emitter.count(diagnostics.EventRegistryBuildFailed))

	src.fail.Store(false)
	_, err = svc.Reload(context.Background())
	require.NoError(t, err)
	assert.Empty(t, svc.Status().LastError)
}

func TestRegistryService_StrictHome(t *testing.T) {
	svc := NewRegistryService(Options{
		Home:         "blackforest",
		Environments: []namemap.EnvironmentTag{"public", "mooncake", "fairfax"},
		StrictHome:   true,
	}, mapsource.NewStaticSource(sampleRows()...), nil, nil, nil)

	_, err := svc.Reload(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, namemap.ErrUnknownHomeEnvironment)
	assert.True(t, svc.Registry().Empty())
}

func TestRegistryService_LenientUnknownHome(t *testing.T) {
	svc := NewRegistryService(Options{Home: "blackforest"},
		mapsource.NewStaticSource(sampleRows()...), nil, nil, nil)

	result, err := svc.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Rows)
	assert.Equal(t, 2, result.Dropped)
}

func TestRegistryService_PeriodicReload(t *testing.T) {
	src := &switchSource{rows: sampleRows()}
	svc := NewRegistryService(Options{Home: "public", ReloadInterval: 10 * time.Millisecond},
		src, newPools(t).Reload, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	require.Eventually(t, func() bool {
		return src.calls.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	svc.Stop()
	svc.Stop() // second Stop must not panic

	_, ok := svc.ResolveCluster("fake_cluster2")
	assert.True(t, ok)
}

func TestRegistryService_StartDisabled(t *testing.T) {
	src := &switchSource{rows: sampleRows()}
	svc := NewRegistryService(Options{Home: "public"}, src, nil, nil, nil)

	svc.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	svc.Stop()

	assert.Equal(t, int32(0), src.calls.Load())
}

// gatedSource ignores ctx and returns only once release is closed.
type gatedSource struct {
	release chan struct{}
	rows    []namemap.EnvironmentRow
}

func (s *gatedSource) Name() string { return "gated" }

func (s *gatedSource) Load(context.Context) ([]namemap.EnvironmentRow, error) {
	<-s.release
	return s.rows, nil
}

func TestRegistryService_ReloadPastDeadlineKeepsPrevious(t *testing.T) {
	tests := []struct {
		name   string
		reload bool
	}{
		{"reload pool", true},
		{"calling goroutine", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var pool *worker.Pool
			if tt.reload {
				pool = newPools(t).Reload
			}
			src := &gatedSource{release: make(chan struct{}), rows: sampleRows()}
			emitter := &recordingEmitter{}
			svc := NewRegistryService(Options{Home: "public"}, src, pool, emitter, nil)
			before := svc.Registry()

			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			go func() {
				<-ctx.Done()
				close(src.release)
			}()

			_, err := svc.Reload(ctx)
			require.ErrorIs(t, err, context.DeadlineExceeded)

			// The late build must not be swapped in after Reload returned.
			time.Sleep(20 * time.Millisecond)
			assert.Same(t, before, svc.Registry())
			assert.True(t, svc.Registry().Empty())
			assert.Contains(t, svc.Status().LastError, context.DeadlineExceeded.Error())
			assert.Equal(t, 1, emitter.count(diagnostics.EventRegistryBuildFailed))
			assert.Equal(t, 0, emitter.count(diagnostics.EventRegistryBuilt))

			_, err = svc.Reload(context.Background())
			require.NoError(t, err)
			assert.False(t, svc.Registry().Empty())
		})
	}
}

func TestRegistryService_ResolvePairComesFromOneRow(t *testing.T) {
	svc := NewRegistryService(Options{Home: "public"}, mapsource.NewStaticSource(
		namemap.EnvironmentRow{"public": {Cluster: "x", Database: "d1"}},
		namemap.EnvironmentRow{"public": {Cluster: "c2", Database: "d2"}, "fairfax": {Cluster: "c3", Database: "x"}},
	), nil, nil, nil)
	_, err := svc.Reload(context.Background())
	require.NoError(t, err)

	for _, resolve := range []func(string) (Mapping, bool){svc.ResolveCluster, svc.ResolveDatabase} {
		m, ok := resolve("x")
		require.True(t, ok)
		assert.Equal(t, "c2", m.Cluster)
		assert.Equal(t, "d2", m.Database)
	}
}
