package drugref

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gheop3s/gheop3s/internal/platform/metrics"
)

const cacheKeyPrefix = "gheop3s:drug:"

// cachedRepo caches GetByCode results in Redis. Redis failures are logged
// and fall through to the wrapped repository.
type cachedRepo struct {
	Repository
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedRepo wraps inner with a read-through Redis cache. It returns
// inner unchanged when client is nil.
func NewCachedRepo(inner Repository, client *redis.Client, ttl time.Duration, logger zerolog.Logger) Repository {
	if client == nil {
		return inner
	}
	return &cachedRepo{
		Repository: inner,
		client:     client,
		ttl:        ttl,
		logger:     logger.With().Str("component", "drug-cache").Logger(),
	}
}

func cacheKey(code string) string {
	return cacheKeyPrefix + code
}

func (r *cachedRepo) GetByCode(ctx context.Context, code string) (*Product, error) {
	raw, err := r.client.Get(ctx, cacheKey(code)).Bytes()
	switch {
	case err == nil:
		var p Product
		if jsonErr := json.Unmarshal(raw, &p); jsonErr == nil {
			metrics.DrugCacheLookups.WithLabelValues("hit").Inc()
			return &p, nil
		}
		metrics.DrugCacheLookups.WithLabelValues("error").Inc()
		r.logger.Warn().Str("code", code).Msg("discarding undecodable cache entry")
	case errors.Is(err, redis.Nil):
		metrics.DrugCacheLookups.WithLabelValues("miss").Inc()
	default:
		metrics.DrugCacheLookups.WithLabelValues("error").Inc()
		r.logger.Warn().Err(err).Str("code", code).Msg("drug cache read failed")
	}

	p, err := r.Repository.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(p); err == nil {
		if err := r.client.Set(ctx, cacheKey(code), data, r.ttl).Err(); err != nil {
			r.logger.Warn().Err(err).Str("code", code).Msg("drug cache write failed")
		}
	}
	return p, nil
}

func (r *cachedRepo) Upsert(ctx context.Context, products ...Product) error {
	if err := r.Repository.Upsert(ctx, products...); err != nil {
		return err
	}
	if len(products) == 0 {
		return nil
	}
	keys := make([]string, 0, len(products))
	for _, p := range products {
		keys = append(keys, cacheKey(p.Code))
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.logger.Warn().Err(err).Int("keys", len(keys)).Msg("drug cache invalidation failed")
	}
	return nil
}
