package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCache map[string]string

func (m mapCache) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m mapCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	m[key] = value
	return nil
}

func mapboxServer(t *testing.T, body string, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "tok", r.URL.Query().Get("access_token"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLookupCachesHits(t *testing.T) {
	var calls int32
	srv := mapboxServer(t, `{"features":[{"center":[-71.1,42.35]}]}`, &calls)
	cache := mapCache{}
	c := NewClient("tok", cache, time.Hour, nil).WithBaseURL(srv.URL + "/")

	p, err := c.Lookup(context.Background(), "775 Commonwealth Ave")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, Point{Lat: 42.35, Lng: -71.1}, *p)
	assert.Contains(t, cache, "geocode:775 commonwealth ave")

	p, err = c.Lookup(context.Background(), "775 COMMONWEALTH AVE")
	require.NoError(t, err)
	assert.Equal(t, 42.35, p.Lat)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestLookupCachesMisses(t *testing.T) {
	var calls int32
	srv := mapboxServer(t, `{"features":[]}`, &calls)
	cache := mapCache{}
	c := NewClient("tok", cache, time.Hour, nil).WithBaseURL(srv.URL)

	for i := 0; i < 2; i++ {
		p, err := c.Lookup(context.Background(), "nowhere")
		require.NoError(t, err)
		assert.Nil(t, p)
	}
	assert.Equal(t, missMarker, cache["geocode:nowhere"])
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestLookupServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	cache := mapCache{}
	c := NewClient("tok", cache, time.Hour, nil).WithBaseURL(srv.URL)

	_, err := c.Lookup(context.Background(), "Marsh Plaza")
	assert.Error(t, err)
	assert.Empty(t, cache)
}

func TestLookupDisabled(t *testing.T) {
	c := NewClient("", nil, time.Hour, nil)
	assert.False(t, c.Enabled())
	p, err := c.Lookup(context.Background(), "Marsh Plaza")
	assert.NoError(t, err)
	assert.Nil(t, p)

	p, err = NewClient("tok", nil, time.Hour, nil).Lookup(context.Background(), "  ")
	assert.NoError(t, err)
	assert.Nil(t, p)
}
