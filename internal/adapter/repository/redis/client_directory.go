package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/bizledger/internal/domain"
	"github.com/iho/bizledger/internal/usecase"
)

// DefaultClientCacheTTL bounds how stale a cached client name can be.
const DefaultClientCacheTTL = 5 * time.Minute

// CachedClientDirectory serves client lookups from the cache and falls back
// to the wrapped directory on a miss. Cache failures never fail a lookup.
type CachedClientDirectory struct {
	next   usecase.ClientDirectory
	cache  usecase.Cache
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedClientDirectory wraps next with cache.
func NewCachedClientDirectory(next usecase.ClientDirectory, cache usecase.Cache, ttl time.Duration, logger zerolog.Logger) *CachedClientDirectory {
	if ttl <= 0 {
		ttl = DefaultClientCacheTTL
	}
	return &CachedClientDirectory{next: next, cache: cache, ttl: ttl, logger: logger}
}

// GetByID returns one client.
func (d *CachedClientDirectory) GetByID(ctx context.Context, ownerID, id string) (*domain.Client, error) {
	key := "client:" + ownerID + ":" + id

	var cached domain.Client
	if d.load(ctx, key, &cached) {
		return &cached, nil
	}

	c, err := d.next.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	d.store(ctx, key, c)
	return c, nil
}

// ListByOwner returns every client of ownerID.
func (d *CachedClientDirectory) ListByOwner(ctx context.Context, ownerID string) ([]domain.Client, error) {
	key := "clients:" + ownerID

	var cached []domain.Client
	if d.load(ctx, key, &cached) {
		return cached, nil
	}

	clients, err := d.next.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	d.store(ctx, key, clients)
	return clients, nil
}

// Invalidate drops the cached client list of ownerID.
func (d *CachedClientDirectory) Invalidate(ctx context.Context, ownerID string) error {
	return d.cache.Delete(ctx, "clients:"+ownerID)
}

func (d *CachedClientDirectory) load(ctx context.Context, key string, dst any) bool {
	raw, err := d.cache.Get(ctx, key)
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		d.logger.Warn().Err(err).Str("key", key).Msg("discarding malformed cached clients")
		return false
	}
	return true
}

func (d *CachedClientDirectory) store(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, key, raw, d.ttl); err != nil {
		d.logger.Warn().Err(err).Str("key", key).Msg("failed to cache clients")
	}
}
