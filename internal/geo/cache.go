package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/aba-directory/pkg/logging"
)

// CachedGeocoder fronts a Geocoder with Redis. Cache failures fall through
// to the provider.
type CachedGeocoder struct {
	next   Geocoder
	redis  *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewCachedGeocoder wraps next with a Redis cache.
func NewCachedGeocoder(next Geocoder, client *redis.Client, ttl time.Duration, logger *logging.Logger) *CachedGeocoder {
	if next == nil || client == nil {
		panic("geo: geocoder and redis client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CachedGeocoder{next: next, redis: client, ttl: ttl, logger: logger}
}

func (c *CachedGeocoder) key(address string) string {
	return fmt.Sprintf("geo:geocode:%s", strings.ToLower(strings.TrimSpace(address)))
}

// Geocode implements Geocoder.
func (c *CachedGeocoder) Geocode(ctx context.Context, address string) (Result, error) {
	key := c.key(address)
	data, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached Result
		if jerr := json.Unmarshal(data, &cached); jerr == nil {
			return cached, nil
		}
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("geocode cache read failed", "error", err)
	}

	res, err := c.next.Geocode(ctx, address)
	if err != nil {
		return Result{}, err
	}
	if data, err := json.Marshal(res); err == nil {
		if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("geocode cache write failed", "error", err)
		}
	}
	return res, nil
}
