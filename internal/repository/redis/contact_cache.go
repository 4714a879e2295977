package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"pbxconnect-backend/internal/domain"
)

// ContactCache is a cache-aside layer over directory lookups. Number
// resolution runs on every incoming call, while the directory itself changes
// rarely, so hits are kept briefly and misses fall through to Postgres.
type ContactCache struct {
	client *goredis.Client
	ttl    time.Duration
}

// ErrCacheMiss is returned when a number has no cached entry
var ErrCacheMiss = errors.New("contact cache miss")

// Cached sentinel for numbers known to have no contact, so repeated calls
// from unknown numbers do not hammer the directory table.
const noContactSentinel = "-"

// NewContactCache creates a contact cache with the given entry TTL
func NewContactCache(client *goredis.Client, ttl time.Duration) *ContactCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ContactCache{client: client, ttl: ttl}
}

func contactKey(normalized string) string {
	return fmt.Sprintf("voip:contact:num:%s", normalized)
}

// Get returns the cached resolution for a normalized number. A cached
// negative entry comes back as (nil, nil); an absent key as ErrCacheMiss.
func (c *ContactCache) Get(ctx context.Context, normalized string) (*domain.Contact, error) {
	val, err := c.client.Get(ctx, contactKey(normalized)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to read contact cache: %w", err)
	}

	if val == noContactSentinel {
		return nil, nil
	}

	contact := &domain.Contact{}
	if err := json.Unmarshal([]byte(val), contact); err != nil {
		return nil, fmt.Errorf("failed to decode cached contact: %w", err)
	}

	return contact, nil
}

// Set caches a resolution. A nil contact stores the negative sentinel.
func (c *ContactCache) Set(ctx context.Context, normalized string, contact *domain.Contact) error {
	val := noContactSentinel
	if contact != nil {
		data, err := json.Marshal(contact)
		if err != nil {
			return fmt.Errorf("failed to encode contact for cache: %w", err)
		}
		val = string(data)
	}

	if err := c.client.Set(ctx, contactKey(normalized), val, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write contact cache: %w", err)
	}

	return nil
}

// Invalidate drops the cached resolution for a number
func (c *ContactCache) Invalidate(ctx context.Context, normalized string) error {
	if err := c.client.Del(ctx, contactKey(normalized)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate contact cache: %w", err)
	}
	return nil
}
