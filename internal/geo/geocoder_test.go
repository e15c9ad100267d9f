package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/aba-directory/pkg/logging"
)

const googleOK = `{
  "status": "OK",
  "results": [{
    "formatted_address": "1600 Amphitheatre Pkwy, Mountain View, CA 94043, USA",
    "geometry": {"location": {"lat": 37.422, "lng": -122.084}},
    "address_components": [
      {"long_name": "Mountain View", "short_name": "Mountain View", "types": ["locality", "political"]},
      {"long_name": "California", "short_name": "CA", "types": ["administrative_area_level_1", "political"]},
      {"long_name": "94043", "short_name": "94043", "types": ["postal_code"]},
      {"long_name": "United States", "short_name": "US", "types": ["country", "political"]}
    ]
  }]
}`

func TestGoogleGeocoder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		if r.URL.Query().Get("address") == "nowhere" {
			_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
			return
		}
		_, _ = w.Write([]byte(googleOK))
	}))
	defer srv.Close()

	g := NewGoogleGeocoder("test-key")
	g.SetBaseURL(srv.URL)

	res, err := g.Geocode(context.Background(), "1600 Amphitheatre Pkwy")
	require.NoError(t, err)
	assert.InDelta(t, 37.422, res.Latitude, 1e-9)
	assert.Equal(t, "Mountain View", res.City)
	assert.Equal(t, "CA", res.State)
	assert.Equal(t, "94043", res.PostalCode)
	assert.Equal(t, "US", res.Country)

	_, err = g.Geocode(context.Background(), "nowhere")
	assert.ErrorIs(t, err, ErrNoResult)

	_, err = g.Geocode(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestGoogleGeocoderHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewGoogleGeocoder("k")
	g.SetBaseURL(srv.URL)
	_, err := g.Geocode(context.Background(), "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoResult)
}

type countingGeocoder struct {
	calls atomic.Int32
}

func (c *countingGeocoder) Geocode(context.Context, string) (Result, error) {
	c.calls.Add(1)
	return Result{Point: Point{Latitude: 1, Longitude: 2}, City: "Austin"}, nil
}

func TestCachedGeocoderServesFromRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	next := &countingGeocoder{}
	g := NewCachedGeocoder(next, client, time.Hour, logging.Discard())

	first, err := g.Geocode(context.Background(), "Austin, TX, USA")
	require.NoError(t, err)
	second, err := g.Geocode(context.Background(), "  austin, tx, usa ")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, next.calls.Load())
	assert.True(t, mr.Exists("geo:geocode:austin, tx, usa"))
	assert.Equal(t, time.Hour, mr.TTL("geo:geocode:austin, tx, usa"))
}

func TestCachedGeocoderFallsThroughWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	next := &countingGeocoder{}
	g := NewCachedGeocoder(next, client, time.Hour, logging.Discard())
	mr.Close()

	res, err := g.Geocode(context.Background(), "Austin")
	require.NoError(t, err)
	assert.Equal(t, "Austin", res.City)
}

func TestNoopGeocoder(t *testing.T) {
	_, err := NoopGeocoder{}.Geocode(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoResult)
}
