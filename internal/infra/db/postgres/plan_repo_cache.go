package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"custom-billing/internal/domain/model"
	"custom-billing/internal/domain/ports/repository"
	"custom-billing/internal/infra/metrics"
	red "custom-billing/internal/infra/redis"
)

var _ repository.PlanRepository = (*planRepoCacheDecorator)(nil)

const plansCacheKey = "plans:all"

type planRepoCacheDecorator struct {
	inner repository.PlanRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewPlanRepoCacheDecorator(inner repository.PlanRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.PlanRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &planRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: logger}
}

// ListAll serves from cache. Reads inside a transaction bypass it.
func (d *planRepoCacheDecorator) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	if tx != nil {
		return d.inner.ListAll(ctx, tx)
	}
	val, err := d.cache.Get(ctx, plansCacheKey)
	if err == nil {
		var plans []*model.Plan
		if json.Unmarshal([]byte(val), &plans) == nil {
			metrics.IncCacheRequest("plan_list", "hit")
			return plans, nil
		}
	} else if !errors.Is(err, red.Nil) {
		d.log.Warn().Err(err).Str("key", plansCacheKey).Msg("plan cache read failed")
	}

	metrics.IncCacheRequest("plan_list", "miss")
	plans, err := d.inner.ListAll(ctx, tx)
	if err != nil {
		return nil, err
	}
	if bytes, err := json.Marshal(plans); err == nil {
		if err := d.cache.Set(ctx, plansCacheKey, bytes, d.ttl); err != nil {
			d.log.Warn().Err(err).Msg("plan cache write failed")
		}
	}
	return plans, nil
}

// ReplaceAll invalidates the cached list.
func (d *planRepoCacheDecorator) ReplaceAll(ctx context.Context, tx repository.Tx, plans []*model.Plan) error {
	if err := d.cache.Del(ctx, plansCacheKey); err != nil {
		d.log.Warn().Err(err).Msg("plan cache invalidation failed")
	}
	if err := d.inner.ReplaceAll(ctx, tx, plans); err != nil {
		return err
	}
	// drop anything a concurrent reader cached between the first delete and the write
	_ = d.cache.Del(ctx, plansCacheKey)
	return nil
}
