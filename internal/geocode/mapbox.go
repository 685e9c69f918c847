package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the Mapbox forward geocoding endpoint.
	DefaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"
	cachePrefix    = "geocode:"
	missMarker     = "none"
)

// Point is a resolved coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Cache stores geocoding results by query.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Client resolves addresses with Mapbox and caches the answers, misses included.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
	cache   Cache
	ttl     time.Duration
	logger  *zap.Logger
	warn    sync.Once
}

// NewClient creates a geocoding client. cache may be nil.
func NewClient(token string, cache Cache, ttl time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		token:   token,
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		cache:   cache,
		ttl:     ttl,
		logger:  logger,
	}
}

// WithBaseURL points the client at another endpoint.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = strings.TrimRight(u, "/")
	return c
}

// Enabled reports whether an access token is configured.
func (c *Client) Enabled() bool {
	return c.token != ""
}

type mapboxResponse struct {
	Features []struct {
		Center []float64 `json:"center"`
	} `json:"features"`
}

// Lookup returns the coordinates of query, or nil when nothing matched or
// geocoding is disabled.
func (c *Client) Lookup(ctx context.Context, query string) (*Point, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if !c.Enabled() {
		c.warn.Do(func() { c.logger.Warn("MAPBOX_TOKEN not set; geocoding disabled") })
		return nil, nil
	}

	key := cachePrefix + strings.ToLower(query)
	if c.cache != nil {
		raw, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			c.logger.Warn("geocode cache read failed", zap.Error(err))
		} else if ok {
			return decodeCached(raw)
		}
	}

	p, err := c.fetch(ctx, query)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		value := missMarker
		if p != nil {
			b, _ := json.Marshal(p)
			value = string(b)
		}
		if err := c.cache.Set(ctx, key, value, c.ttl); err != nil {
			c.logger.Warn("geocode cache write failed", zap.Error(err))
		}
	}
	return p, nil
}

func (c *Client) fetch(ctx context.Context, query string) (*Point, error) {
	u := fmt.Sprintf("%s/%s.json?access_token=%s&limit=1", c.baseURL, url.PathEscape(query), url.QueryEscape(c.token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mapbox request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mapbox status: %d", resp.StatusCode)
	}
	var body mapboxResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode mapbox response: %w", err)
	}
	if len(body.Features) == 0 || len(body.Features[0].Center) < 2 {
		return nil, nil
	}
	center := body.Features[0].Center
	return &Point{Lng: center[0], Lat: center[1]}, nil
}

func decodeCached(raw string) (*Point, error) {
	if raw == missMarker {
		return nil, nil
	}
	var p Point
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("decode cached point: %w", err)
	}
	return &p, nil
}

// RedisCache adapts a go-redis client to Cache.
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache creates a Redis-backed geocode cache.
func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

// Get returns the cached value for key.
func (r *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set stores value under key for ttl.
func (r *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.rdb.Set(ctx, key, value, ttl).Err()
}
