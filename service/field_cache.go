package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jorellortega/covionpartners-sub001/config"
	"github.com/jorellortega/covionpartners-sub001/pdfform"
)

// FieldCache remembers introspection results per blob key. Blob keys are never
// reused, so entries never go stale; the TTL only bounds memory.
type FieldCache interface {
	Get(ctx context.Context, key string) ([]pdfform.Descriptor, bool, error)
	Set(ctx context.Context, key string, fields []pdfform.Descriptor) error
}

const fieldCachePrefix = "contracts:pdf-fields:"

type RedisFieldCache struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewRedisFieldCache(client *goredis.Client, ttl time.Duration) *RedisFieldCache {
	return &RedisFieldCache{client: client, ttl: ttl}
}

// Get returns a cache miss, not an error, when the key is absent.
func (c *RedisFieldCache) Get(ctx context.Context, key string) ([]pdfform.Descriptor, bool, error) {
	raw, err := c.client.Get(ctx, fieldCachePrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var fields []pdfform.Descriptor
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, false, fmt.Errorf("decode cached fields: %w", err)
	}
	return fields, true, nil
}

func (c *RedisFieldCache) Set(ctx context.Context, key string, fields []pdfform.Descriptor) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, fieldCachePrefix+key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

type memoryEntry struct {
	fields  []pdfform.Descriptor
	expires time.Time
}

// MemoryFieldCache is the in-process FieldCache used when no Redis address is configured.
type MemoryFieldCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryFieldCache(ttl time.Duration) *MemoryFieldCache {
	return &MemoryFieldCache{entries: make(map[string]memoryEntry), ttl: ttl, now: time.Now}
}

func (c *MemoryFieldCache) Get(_ context.Context, key string) ([]pdfform.Descriptor, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if c.ttl > 0 && c.now().After(e.expires) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return append([]pdfform.Descriptor(nil), e.fields...), true, nil
}

func (c *MemoryFieldCache) Set(_ context.Context, key string, fields []pdfform.Descriptor) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{fields: append([]pdfform.Descriptor(nil), fields...), expires: c.now().Add(c.ttl)}
	return nil
}

// NewFieldCache connects to Redis when an address is configured and falls back
// to an in-memory cache otherwise.
func NewFieldCache(ctx context.Context, cfg config.RedisConfig) (FieldCache, func() error, error) {
	ttl := time.Duration(cfg.FieldCacheTTLMinutes) * time.Minute
	if cfg.Addr == "" {
		return NewMemoryFieldCache(ttl), func() error { return nil }, nil
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
	}
	return NewRedisFieldCache(client, ttl), client.Close, nil
}
