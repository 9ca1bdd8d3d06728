package gateway_test

import (
	"testing"

	"configas/internal/store"
	"configas/pkg/gateway"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSelector(descriptors []gateway.Descriptor) (*gateway.Selector, *store.MemoryStore) {
	st := store.NewMemoryStore()
	registry := gateway.NewRegistry(descriptors, nil)
	return gateway.NewSelector(registry, st), st
}

func TestSelectRandomNoGatewayEnabled(t *testing.T) {
	selector, _ := newSelector([]gateway.Descriptor{
		{ID: gateway.Ezzpag, Enabled: false, Weight: 1},
		{ID: gateway.Ghost, Enabled: false, Weight: 1},
	})
	_, err := selector.SelectRandom()
	assert.ErrorIs(t, err, gateway.ErrNoGatewayEnabled)
}

func TestSelectRandomSingleEnabled(t *testing.T) {
	selector, _ := newSelector([]gateway.Descriptor{
		{ID: gateway.Ezzpag, Enabled: false, Weight: 5},
		{ID: gateway.Ghost, Enabled: true, Weight: 1},
	})
	for i := 0; i < 20; i++ {
		d, err := selector.SelectRandom()
		require.NoError(t, err)
		assert.Equal(t, gateway.Ghost, d.ID)
	}
}

func TestSelectRandomRespectsWeights(t *testing.T) {
	selector, _ := newSelector([]gateway.Descriptor{
		{ID: gateway.Ezzpag, Enabled: true, Weight: 9},
		{ID: gateway.Ghost, Enabled: true, Weight: 1},
	})
	const draws = 2000
	counts := make(map[string]int)
	for i := 0; i < draws; i++ {
		d, err := selector.SelectRandom()
		require.NoError(t, err)
		counts[d.ID]++
	}
	// Expect 90% of the draws, with a band of a few hundred draws; the
	// binomial standard deviation here is about 13, so the band only
	// fails on a broken weighting, not on an unlucky seed.
	assert.InDelta(t, draws*9/10, counts[gateway.Ezzpag], 100,
		"9:1 weights should yield about nine tenths of the draws")
	assert.Equal(t, draws, counts[gateway.Ezzpag]+counts[gateway.Ghost])
}

func TestSessionGatewayStickyAfterCommit(t *testing.T) {
	selector, _ := newSelector([]gateway.Descriptor{
		{ID: gateway.Ezzpag, Enabled: true, Weight: 1},
		{ID: gateway.Ghost, Enabled: true, Weight: 1},
	})
	selector.Commit("sess-1", gateway.Ghost)
	for i := 0; i < 10; i++ {
		d, err := selector.SessionGateway("sess-1")
		require.NoError(t, err)
		assert.Equal(t, gateway.Ghost, d.ID)
	}
}

func TestSessionGatewayFreshPickIsNotPersisted(t *testing.T) {
	selector, st := newSelector([]gateway.Descriptor{
		{ID: gateway.Ezzpag, Enabled: true, Weight: 1},
	})
	_, err := selector.SessionGateway("sess-1")
	require.NoError(t, err)
	_, found := st.Get(store.GatewayKey("sess-1"))
	assert.False(t, found, "selection must only persist on Commit")
}

func TestSessionGatewayDropsDisabledRecord(t *testing.T) {
	selector, st := newSelector([]gateway.Descriptor{
		{ID: gateway.Ezzpag, Enabled: true, Weight: 1},
		{ID: gateway.Ghost, Enabled: false, Weight: 1},
	})
	selector.Commit("sess-1", gateway.Ghost)
	d, err := selector.SessionGateway("sess-1")
	require.NoError(t, err)
	assert.Equal(t, gateway.Ezzpag, d.ID)
	_, found := st.Get(store.GatewayKey("sess-1"))
	assert.False(t, found, "the stale record should be purged")
}

func TestNextFallbackExhaustion(t *testing.T) {
	selector, _ := newSelector([]gateway.Descriptor{
		{ID: gateway.Ezzpag, Enabled: true, Weight: 1},
		{ID: gateway.Ghost, Enabled: true, Weight: 1},
		{ID: gateway.BlackCat, Enabled: false, Weight: 1},
	})
	exclude := map[string]bool{gateway.Ezzpag: true}
	d, ok := selector.NextFallback(exclude)
	require.True(t, ok)
	assert.Equal(t, gateway.Ghost, d.ID)

	exclude[gateway.Ghost] = true
	_, ok = selector.NextFallback(exclude)
	assert.False(t, ok, "disabled gateways are never fallback candidates")
}

func TestSetManually(t *testing.T) {
	selector, _ := newSelector([]gateway.Descriptor{
		{ID: gateway.Ezzpag, Enabled: true, Weight: 1},
		{ID: gateway.Ghost, Enabled: false, Weight: 1},
	})
	assert.False(t, selector.SetManually("sess-1", "nope"))
	assert.False(t, selector.SetManually("sess-1", gateway.Ghost))
	require.True(t, selector.SetManually("sess-1", gateway.Ezzpag))

	d, err := selector.SessionGateway("sess-1")
	require.NoError(t, err)
	assert.Equal(t, gateway.Ezzpag, d.ID)
}

func TestResetClearsSelection(t *testing.T) {
	selector, st := newSelector([]gateway.Descriptor{
		{ID: gateway.Ezzpag, Enabled: true, Weight: 1},
	})
	selector.Commit("sess-1", gateway.Ezzpag)
	selector.Reset("sess-1")
	_, found := st.Get(store.GatewayKey("sess-1"))
	assert.False(t, found)
}

func TestUsageStats(t *testing.T) {
	selector, _ := newSelector([]gateway.Descriptor{
		{ID: gateway.Ezzpag, Enabled: true, Weight: 1},
		{ID: gateway.Ghost, Enabled: true, Weight: 1},
	})
	selector.TrackUsage(gateway.Ezzpag)
	selector.TrackUsage(gateway.Ezzpag)
	selector.TrackUsage(gateway.Ghost)

	stats := selector.UsageStats()
	assert.Equal(t, 2, stats[gateway.Ezzpag])
	assert.Equal(t, 1, stats[gateway.Ghost])
}
