package stigmergy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(DefaultConfig(":memory:"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// T1: appending the same content_hash twice is a no-op, not an error.
func TestAppendDedupsByContentHash(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id1, err := store.Append(ctx, "hfo.gen91.p0.x.y", "2026-01-01T00:00:00Z", "subj", "src", `{"k":"v"}`, "deadbeef")
	require.NoError(t, err)
	require.Positive(t, id1)

	id2, err := store.Append(ctx, "hfo.gen91.p0.x.y", "2026-01-01T00:00:00Z", "subj", "src", `{"k":"v"}`, "deadbeef")
	require.NoError(t, err)
	require.Zero(t, id2)

	count, err := store.CountByPattern(ctx, "hfo.*", 0)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

// T4: ids are strictly increasing in append order.
func TestAppendAssignsMonotonicIDs(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id1, err := store.Append(ctx, "hfo.gen91.p0.x.a", "t1", "s", "src", "{}", "hash-a")
	require.NoError(t, err)
	id2, err := store.Append(ctx, "hfo.gen91.p0.x.b", "t2", "s", "src", "{}", "hash-b")
	require.NoError(t, err)

	require.Less(t, id1, id2)
}

func TestQueryByPatternMatchesGlobNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.Append(ctx, "hfo.gen91.p0.anchor.check", "t1", "s", "src", "{}", "h1")
	require.NoError(t, err)
	_, err = store.Append(ctx, "hfo.gen91.p0.anchor.drift", "t2", "s", "src", "{}", "h2")
	require.NoError(t, err)
	_, err = store.Append(ctx, "hfo.gen91.p0.prospector.embed", "t3", "s", "src", "{}", "h3")
	require.NoError(t, err)

	events, err := store.QueryByPattern(ctx, "hfo.gen91.p0.anchor.*", 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	// newest first
	require.Equal(t, "hfo.gen91.p0.anchor.drift", events[0].EventType)
	require.Equal(t, "hfo.gen91.p0.anchor.check", events[1].EventType)
}

func TestReadByIDRangeReturnsOldestFirstAfterWatermark(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id1, err := store.Append(ctx, "hfo.gen91.p0.x.a", "t1", "s", "src", "{}", "h1")
	require.NoError(t, err)
	_, err = store.Append(ctx, "hfo.gen91.p0.x.b", "t2", "s", "src", "{}", "h2")
	require.NoError(t, err)
	_, err = store.Append(ctx, "hfo.gen91.p0.x.c", "t3", "s", "src", "{}", "h3")
	require.NoError(t, err)

	events, err := store.ReadByIDRange(ctx, id1, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "hfo.gen91.p0.x.b", events[0].EventType)
	require.Equal(t, "hfo.gen91.p0.x.c", events[1].EventType)
}

func TestReadLastOfTypeReturnsFalseWhenAbsent(t *testing.T) {
	store := openTestStore(t)
	_, ok, err := store.ReadLastOfType(context.Background(), "hfo.gen91.p0.nothing.here")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestReadLastOfTypeReturnsMostRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.Append(ctx, "hfo.gen91.p0.x.tick", "t1", "s", "src", `{"n":1}`, "h1")
	require.NoError(t, err)
	_, err = store.Append(ctx, "hfo.gen91.p0.x.tick", "t2", "s", "src", `{"n":2}`, "h2")
	require.NoError(t, err)

	event, ok, err := store.ReadLastOfType(ctx, "hfo.gen91.p0.x.tick")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"n":2}`, event.DataJSON)
}

func TestStatsReportsEventCount(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	_, err := store.Append(ctx, "hfo.gen91.p0.x.a", "t1", "s", "src", "{}", "h1")
	require.NoError(t, err)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.EventCount)
	require.True(t, stats.FTSOk)
}
