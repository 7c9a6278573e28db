//go:build !integration

package postgres

import (
	"context"
	"time"

	"custom-billing/internal/domain/model"
	"custom-billing/internal/domain/ports/repository"
	red "custom-billing/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerPlanRepo mocks the database repository that the Plan decorator wraps.
type mockInnerPlanRepo struct {
	ListAllFunc    func(ctx context.Context, tx repository.Tx) ([]*model.Plan, error)
	ReplaceAllFunc func(ctx context.Context, tx repository.Tx, plans []*model.Plan) error
}

func (m *mockInnerPlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	return m.ListAllFunc(ctx, tx)
}
func (m *mockInnerPlanRepo) ReplaceAll(ctx context.Context, tx repository.Tx, plans []*model.Plan) error {
	return m.ReplaceAllFunc(ctx, tx, plans)
}

// mockRedisClient mocks our Redis client wrapper. Unset funcs behave like an
// empty, healthy Redis.
type mockRedisClient struct {
	GetFunc func(ctx context.Context, key string) (string, error)
	SetFunc func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc func(ctx context.Context, keys ...string) error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc == nil {
		return "", red.Nil
	}
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc == nil {
		return nil
	}
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc == nil {
		return nil
	}
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error                      { return nil }
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) { return 0, nil }
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return nil
}
func (m *mockRedisClient) Close() error { return nil }
