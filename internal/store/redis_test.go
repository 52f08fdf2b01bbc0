package store

import (
	"context"
	"fmt"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riftdraft/internal/engine"
	"riftdraft/internal/session"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cache, err := NewCache(fmt.Sprintf("redis://%s/0", mr.Addr()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestSnapshotRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	state := engine.NewState(engine.Config{
		SeriesType:  engine.SeriesBo3,
		Fearless:    true,
		BanTimerMs:  25_000,
		PickTimerMs: 30_000,
	})
	state.Phase = engine.PhaseBan1
	state.Teams[engine.SideBlue].ID = "t-blue"
	state.Teams[engine.SideBlue].Name = "Blue Side"
	state.Teams[engine.SideBlue].Bans = []string{"ahri"}
	state.Teams[engine.SideRed].Picks = []string{"darius"}
	state.Fearless = map[string]bool{"azir": true}
	state.Cursor = 2

	snap := session.Snapshot{Version: 7, RemainingMs: 12_345, State: state}
	require.NoError(t, cache.SaveSnapshot(ctx, "s1", snap))

	got, err := cache.LoadSnapshot(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 7, got.Version)
	assert.Equal(t, int64(12_345), got.RemainingMs)
	assert.Equal(t, engine.PhaseBan1, got.State.Phase)
	assert.Equal(t, 2, got.State.Cursor)
	assert.Equal(t, []string{"ahri"}, got.State.Teams[engine.SideBlue].Bans)
	assert.Equal(t, []string{"darius"}, got.State.Teams[engine.SideRed].Picks)
	assert.True(t, got.State.Fearless["azir"])
	assert.Equal(t, "t-blue", got.State.Teams[engine.SideBlue].ID)
}

func TestLoadMissingSnapshot(t *testing.T) {
	cache := newTestCache(t)
	_, err := cache.LoadSnapshot(context.Background(), "absent")
	require.ErrorIs(t, err, ErrNotCached)
}

func TestSaveOverwritesPreviousVersion(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	state := engine.NewState(engine.Config{SeriesType: engine.SeriesBo1})
	require.NoError(t, cache.SaveSnapshot(ctx, "s1", session.Snapshot{Version: 1, State: state}))
	require.NoError(t, cache.SaveSnapshot(ctx, "s1", session.Snapshot{Version: 2, State: state}))

	got, err := cache.LoadSnapshot(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
}
