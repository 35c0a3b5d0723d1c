package redis

import (
	"context"
	"time"
)

// DiagramCache stores rendered structure PNGs as raw bytes.
type DiagramCache struct {
	cache Cache
	ttl   time.Duration
}

// NewDiagramCache keeps diagrams for ttl; zero uses the cache default.
func NewDiagramCache(cache Cache, ttl time.Duration) *DiagramCache {
	return &DiagramCache{cache: cache, ttl: ttl}
}

// Load returns the cached PNG. A miss is (nil, false, nil).
func (d *DiagramCache) Load(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := d.cache.GetBytes(ctx, key)
	if err == ErrCacheMiss {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Store caches a PNG.
func (d *DiagramCache) Store(ctx context.Context, key string, png []byte) error {
	return d.cache.SetBytes(ctx, key, png, d.ttl)
}
