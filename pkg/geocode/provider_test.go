package geocode

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	mock.Mock
	name string
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Available() bool { return m.Called().Bool(0) }

func (m *mockProvider) Geocode(ctx context.Context, query string) (*Result, error) {
	args := m.Called(ctx, query)
	r, _ := args.Get(0).(*Result)
	return r, args.Error(1)
}

func matched(lat, lon float64, source string) *Result {
	return &Result{Latitude: lat, Longitude: lon, Source: source, Matched: true}
}

func TestCascade_FirstProviderMatches(t *testing.T) {
	primary := &mockProvider{name: "nominatim"}
	fallback := &mockProvider{name: "google"}
	primary.On("Available").Return(true)
	fallback.On("Available").Return(true)
	primary.On("Geocode", mock.Anything, "Praha").Return(matched(50.08, 14.42, "nominatim"), nil)

	c := NewCascadeClient([]Provider{primary, fallback})
	r, err := c.Geocode(context.Background(), " Praha ")
	require.NoError(t, err)
	assert.True(t, r.Matched)
	assert.Equal(t, "nominatim", r.Source)
	assert.Equal(t, "Praha", r.Query)
	fallback.AssertNotCalled(t, "Geocode", mock.Anything, mock.Anything)
}

func TestCascade_FallsBackOnMissAndError(t *testing.T) {
	primary := &mockProvider{name: "nominatim"}
	fallback := &mockProvider{name: "google"}
	primary.On("Available").Return(true)
	fallback.On("Available").Return(true)
	primary.On("Geocode", mock.Anything, "a").Return(&Result{Matched: false}, nil)
	primary.On("Geocode", mock.Anything, "b").Return(nil, errors.New("boom"))
	fallback.On("Geocode", mock.Anything, "a").Return(matched(1, 2, "google"), nil)
	fallback.On("Geocode", mock.Anything, "b").Return(matched(3, 4, "google"), nil)

	c := NewCascadeClient([]Provider{primary, fallback})
	for _, q := range []string{"a", "b"} {
		r, err := c.Geocode(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, "google", r.Source, q)
	}
}

func TestCascade_SkipsUnavailable(t *testing.T) {
	google := &mockProvider{name: "google"}
	google.On("Available").Return(false)
	nominatim := &mockProvider{name: "nominatim"}
	nominatim.On("Available").Return(true)
	nominatim.On("Geocode", mock.Anything, "x").Return(&Result{Matched: false}, nil)

	c := NewCascadeClient([]Provider{google, nominatim})
	assert.Equal(t, []string{"nominatim"}, c.Providers())

	r, err := c.Geocode(context.Background(), "x")
	require.NoError(t, err)
	assert.False(t, r.Matched)
	google.AssertNotCalled(t, "Geocode", mock.Anything, mock.Anything)
}

func TestCascade_EmptyQuery(t *testing.T) {
	c := NewCascadeClient(nil)
	r, err := c.Geocode(context.Background(), "   ")
	require.NoError(t, err)
	assert.False(t, r.Matched)
}

func TestCascade_UsesCache(t *testing.T) {
	ctx := context.Background()
	cache := openTestCache(t, "", 0)

	p := &mockProvider{name: "nominatim"}
	p.On("Available").Return(true)
	p.On("Geocode", mock.Anything, "Brno").Return(matched(49.19, 16.60, "nominatim"), nil).Once()
	p.On("Geocode", mock.Anything, "Atlantis").Return(&Result{Matched: false}, nil).Once()

	c := NewCascadeClient([]Provider{p}, WithCache(cache))
	for range 3 {
		r, err := c.Geocode(ctx, "Brno")
		require.NoError(t, err)
		assert.True(t, r.Matched)
		assert.InDelta(t, 16.60, r.Longitude, 1e-9)

		r, err = c.Geocode(ctx, "Atlantis")
		require.NoError(t, err)
		assert.False(t, r.Matched)
	}
	p.AssertNumberOfCalls(t, "Geocode", 2)
}

func TestCascade_ProviderErrorsNotCachedAsMiss(t *testing.T) {
	ctx := context.Background()
	cache := openTestCache(t, "", 0)

	p := &mockProvider{name: "nominatim"}
	p.On("Available").Return(true)
	p.On("Geocode", mock.Anything, "Ostrava").Return(nil, errors.New("timeout"))

	c := NewCascadeClient([]Provider{p}, WithCache(cache))
	r, err := c.Geocode(ctx, "Ostrava")
	require.NoError(t, err)
	assert.False(t, r.Matched)

	n, err := cache.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// slowProvider counts calls and blocks briefly so concurrent lookups overlap.
type slowProvider struct {
	calls atomic.Int32
}

func (p *slowProvider) Name() string    { return "slow" }
func (p *slowProvider) Available() bool { return true }
func (p *slowProvider) Geocode(_ context.Context, q string) (*Result, error) {
	p.calls.Add(1)
	time.Sleep(20 * time.Millisecond)
	if q == "fail" {
		return nil, errors.New("nope")
	}
	return matched(50, 15, "slow"), nil
}

func TestCascade_BatchGeocode(t *testing.T) {
	p := &slowProvider{}
	c := NewCascadeClient([]Provider{p}, WithBatchConcurrency(8))

	queries := []string{"Praha", "Brno", "Praha", "fail", "Praha"}
	results, err := c.BatchGeocode(context.Background(), queries)
	require.NoError(t, err)
	require.Len(t, results, len(queries))

	assert.True(t, results[0].Matched)
	assert.True(t, results[1].Matched)
	assert.False(t, results[3].Matched)
	assert.Equal(t, "fail", results[3].Query)
	assert.LessOrEqual(t, p.calls.Load(), int32(len(queries)))
}

func TestCascade_BatchGeocodeEmpty(t *testing.T) {
	results, err := NewCascadeClient(nil).BatchGeocode(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestCascade_BatchGeocodeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewCascadeClient([]Provider{&slowProvider{}}).BatchGeocode(ctx, []string{"a"})
	assert.ErrorIs(t, err, context.Canceled)
}
