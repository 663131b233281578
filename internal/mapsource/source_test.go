package mapsource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clustermap.io/clustermap/internal/namemap"
)

func TestStaticSource_ReturnsCopies(t *testing.T) {
	row := namemap.EnvironmentRow{"public": {Cluster: "c1", Database: "d1"}}
	src := NewStaticSource(row)

	row["public"] = namemap.Names{Cluster: "mutated"}

	rows, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "c1", rows[0]["public"].Cluster)

	rows[0]["public"] = namemap.Names{Cluster: "mutated again"}
	again, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "c1", again[0]["public"].Cluster)
}

func TestStaticSource_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStaticSource().Load(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
