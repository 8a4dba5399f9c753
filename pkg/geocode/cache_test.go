package geocode

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestCache(t *testing.T, path string, ttl time.Duration) *Cache {
	t.Helper()
	c, err := OpenCache(context.Background(), path, ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := openTestCache(t, "", 0)

	miss, err := c.Get(ctx, "Brno, Kotlářská 2")
	require.NoError(t, err)
	assert.Nil(t, miss)

	in := &Result{Latitude: 49.2045, Longitude: 16.6007, Address: "Kotlářská", Source: "nominatim", Quality: "rooftop", Matched: true}
	require.NoError(t, c.Put(ctx, "Brno, Kotlářská 2", in))

	got, err := c.Get(ctx, "  brno,   KOTLÁŘSKÁ 2 ")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Matched)
	assert.InDelta(t, 49.2045, got.Latitude, 1e-12)
	assert.InDelta(t, 16.6007, got.Longitude, 1e-12)
	assert.Equal(t, "nominatim", got.Source)
	assert.Equal(t, "rooftop", got.Quality)
	assert.Equal(t, "Kotlářská", got.Address)
}

func TestCache_StoresMisses(t *testing.T) {
	ctx := context.Background()
	c := openTestCache(t, ":memory:", 0)

	require.NoError(t, c.Put(ctx, "Atlantis", &Result{Matched: false, Source: "cascade"}))
	got, err := c.Get(ctx, "Atlantis")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.Matched)
}

func TestCache_Upsert(t *testing.T) {
	ctx := context.Background()
	c := openTestCache(t, "", 0)

	require.NoError(t, c.Put(ctx, "Praha", &Result{Matched: false}))
	require.NoError(t, c.Put(ctx, "Praha", &Result{Matched: true, Latitude: 50.08, Longitude: 14.42}))

	n, err := c.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := c.Get(ctx, "Praha")
	require.NoError(t, err)
	assert.True(t, got.Matched)
}

func TestCache_TTL(t *testing.T) {
	ctx := context.Background()
	c := openTestCache(t, "", time.Hour)

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	require.NoError(t, c.Put(ctx, "Olomouc", &Result{Matched: true, Latitude: 49.59, Longitude: 17.25}))

	c.now = func() time.Time { return now.Add(30 * time.Minute) }
	got, err := c.Get(ctx, "Olomouc")
	require.NoError(t, err)
	assert.NotNil(t, got)

	c.now = func() time.Time { return now.Add(2 * time.Hour) }
	got, err = c.Get(ctx, "Olomouc")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_PersistsOnDisk(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "geocode.db")

	c1, err := OpenCache(ctx, path, 0)
	require.NoError(t, err)
	require.NoError(t, c1.Put(ctx, "Plzeň", &Result{Matched: true, Latitude: 49.74, Longitude: 13.37}))
	require.NoError(t, c1.Close())

	c2 := openTestCache(t, path, 0)
	got, err := c2.Get(ctx, "Plzeň")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, 13.37, got.Longitude, 1e-12)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, cacheKey("Praha,  Vodičkova 1"), cacheKey("praha, vodičkova 1"))
	assert.NotEqual(t, cacheKey("Praha"), cacheKey("Brno"))
	assert.Len(t, cacheKey("x"), 64)
}
