package namemap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolder_ZeroValueServesEmptyRegistry(t *testing.T) {
	var h Holder

	r := h.Load()
	require.NotNil(t, r)
	assert.True(t, r.Empty())
	assert.Nil(t, r.MapCluster("fake_cluster1"))
}

func TestHolder_StoreSwapsRegistry(t *testing.T) {
	first := NewNameRegistry(tagPublic, sampleRows())
	h := NewHolder(first)

	require.Same(t, first, h.Load())

	second := NewNameRegistry(tagFairfax, sampleRows())
	prev := h.Store(second)
	assert.Same(t, first, prev)
	assert.Same(t, second, h.Load())

	cluster := h.Load().MapCluster("fake_cluster1")
	require.NotNil(t, cluster)
	assert.Equal(t, "fake_cluster3", *cluster)
}

func TestHolder_StoreNilResetsToEmpty(t *testing.T) {
	h := NewHolder(NewNameRegistry(tagPublic, sampleRows()))

	h.Store(nil)

	require.NotNil(t, h.Load())
	assert.True(t, h.Load().Empty())
}

func TestHolder_ConcurrentSwapAndRead(t *testing.T) {
	public := NewNameRegistry(tagPublic, sampleRows())
	gov := NewNameRegistry(tagFairfax, sampleRows())
	h := NewHolder(public)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if j%2 == 0 {
					h.Store(gov)
				} else {
					h.Store(public)
				}
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				got := h.Load().MapCluster("fake_cluster2")
				if got == nil || (*got != "fake_cluster1" && *got != "fake_cluster3") {
					t.Errorf("unexpected mapping %v", got)
					return
				}
			}
		}()
	}
	wg.Wait()
}
