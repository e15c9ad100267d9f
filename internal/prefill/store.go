// Package prefill remembers an applicant's contact details so the next
// application form can be filled in for them. It is a convenience only and
// never consulted for validation.
package prefill

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long saved details are kept without another submission.
const DefaultTTL = 30 * 24 * time.Hour

// Contact is the remembered part of an application form.
type Contact struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	LinkedInURL string `json:"linkedinUrl,omitempty"`
}

// Store loads and saves contacts by an opaque client key.
type Store interface {
	Load(ctx context.Context, key string) (Contact, bool, error)
	Save(ctx context.Context, key string, c Contact) error
}

// NoopStore remembers nothing.
type NoopStore struct{}

// Load implements Store.
func (NoopStore) Load(context.Context, string) (Contact, bool, error) { return Contact{}, false, nil }

// Save implements Store.
func (NoopStore) Save(context.Context, string, Contact) error { return nil }

// RedisStore keeps contacts in Redis. Each save overwrites the previous
// value and restarts the TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis backed store. A non-positive ttl uses
// DefaultTTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("prefill: redis client required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) key(k string) string {
	return fmt.Sprintf("prefill:applicant:%s", strings.TrimSpace(k))
}

// Load implements Store. An empty key is a miss.
func (s *RedisStore) Load(ctx context.Context, key string) (Contact, bool, error) {
	if strings.TrimSpace(key) == "" {
		return Contact{}, false, nil
	}
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Contact{}, false, nil
	}
	if err != nil {
		return Contact{}, false, fmt.Errorf("prefill: load: %w", err)
	}
	var c Contact
	if err := json.Unmarshal(data, &c); err != nil {
		return Contact{}, false, fmt.Errorf("prefill: decode: %w", err)
	}
	return c, true, nil
}

// Save implements Store. An empty key is ignored.
func (s *RedisStore) Save(ctx context.Context, key string, c Contact) error {
	if strings.TrimSpace(key) == "" {
		return nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("prefill: encode: %w", err)
	}
	if err := s.client.Set(ctx, s.key(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("prefill: save: %w", err)
	}
	return nil
}

var (
	_ Store = NoopStore{}
	_ Store = (*RedisStore)(nil)
)
