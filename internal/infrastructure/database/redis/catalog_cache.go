package redis

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/vigiamx/satavisos/internal/domain/catalog"
	"github.com/vigiamx/satavisos/internal/infrastructure/monitoring/logging"
	"github.com/vigiamx/satavisos/pkg/types/common"
)

const catalogKeyPrefix = "satavisos:catalog:"

// CachedResolver fronts a catalog.Resolver with per-code redis entries.
// Catalog records change on the authority's schedule, not the engine's, so a
// moderate TTL is safe.  Misses are never cached; an unknown code stays a
// database question until it appears.  Cache failures degrade to the inner
// resolver.
type CachedResolver struct {
	inner  catalog.Resolver
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger logging.Logger
}

var _ catalog.Resolver = (*CachedResolver)(nil)

// NewCachedResolver wraps inner with a redis cache.
func NewCachedResolver(inner catalog.Resolver, client *redis.Client, ttl time.Duration, logger logging.Logger) *CachedResolver {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedResolver{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger.Named("catalog-cache"),
	}
}

// ResolveByIDs passes through; identifier lookups are not on the rendering
// hot path.
func (r *CachedResolver) ResolveByIDs(ctx context.Context, ids []common.ID, opts ...catalog.ResolveOption) (map[common.ID]*catalog.Record, error) {
	return r.inner.ResolveByIDs(ctx, ids, opts...)
}

func (r *CachedResolver) ResolveByCode(ctx context.Context, key catalog.Key, codes []string, opts ...catalog.ResolveOption) (map[string]*catalog.Record, error) {
	options := catalog.ApplyResolveOptions(opts...)
	if options.IncludeInactive {
		// Inactive records are excluded from the cache; serve those straight
		// from the database.
		return r.inner.ResolveByCode(ctx, key, codes, opts...)
	}

	out := make(map[string]*catalog.Record, len(codes))
	missing := r.readCached(ctx, key, codes, out)
	if len(missing) == 0 {
		return out, nil
	}

	// Collapse concurrent fetches of the same code set.
	sort.Strings(missing)
	sfKey := string(key) + "|" + strings.Join(missing, ",")
	v, err, _ := r.group.Do(sfKey, func() (interface{}, error) {
		return r.inner.ResolveByCode(ctx, key, missing)
	})
	if err != nil {
		return nil, err
	}

	fetched := v.(map[string]*catalog.Record)
	for code, rec := range fetched {
		out[code] = rec
		r.writeCached(ctx, key, code, rec)
	}
	return out, nil
}

func (r *CachedResolver) ResolveByCodeAcrossCatalogs(ctx context.Context, keys []catalog.Key, codes []string, opts ...catalog.ResolveOption) (map[string]*catalog.Record, error) {
	return r.inner.ResolveByCodeAcrossCatalogs(ctx, keys, codes, opts...)
}

// readCached fills out from the cache and returns the codes left to fetch.
func (r *CachedResolver) readCached(ctx context.Context, key catalog.Key, codes []string, out map[string]*catalog.Record) []string {
	if len(codes) == 0 {
		return nil
	}
	cacheKeys := make([]string, len(codes))
	for i, code := range codes {
		cacheKeys[i] = cacheKey(key, code)
	}

	values, err := r.client.MGet(ctx, cacheKeys...).Result()
	if err != nil {
		r.logger.Warn("catalog cache read failed", logging.Err(err))
		return codes
	}

	var missing []string
	for i, code := range codes {
		raw, ok := values[i].(string)
		if !ok {
			missing = append(missing, code)
			continue
		}
		var rec catalog.Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			missing = append(missing, code)
			continue
		}
		out[code] = &rec
	}
	return missing
}

func (r *CachedResolver) writeCached(ctx context.Context, key catalog.Key, code string, rec *catalog.Record) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, cacheKey(key, code), raw, r.ttl).Err(); err != nil {
		r.logger.Warn("catalog cache write failed", logging.Err(err))
	}
}

func cacheKey(key catalog.Key, code string) string {
	return catalogKeyPrefix + string(key) + ":" + code
}
