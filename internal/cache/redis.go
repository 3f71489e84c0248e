package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stonemarket/internal/service"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisClient caches batch views for read endpoints. Entries expire by
// TTL only; the ledger in Postgres stays the single source of truth.
type RedisClient struct {
	client *redis.Client
	log    *zap.Logger
	ttl    time.Duration
}

func NewRedisClient(addr, password string, db int, ttl time.Duration, log *zap.Logger) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("redis connected", zap.String("addr", addr))

	return &RedisClient{
		client: rdb,
		log:    log,
		ttl:    ttl,
	}, nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

func batchViewKey(id uuid.UUID) string {
	return fmt.Sprintf("batch:view:%s", id)
}

func (r *RedisClient) GetBatchView(ctx context.Context, batchID uuid.UUID) (*service.BatchView, bool) {
	raw, err := r.client.Get(ctx, batchViewKey(batchID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.log.Warn("redis get failed", zap.Error(err))
		}
		return nil, false
	}

	var v service.BatchView
	if err := json.Unmarshal(raw, &v); err != nil {
		r.log.Warn("redis cached batch view is corrupt", zap.Error(err))
		return nil, false
	}
	return &v, true
}

func (r *RedisClient) InvalidateBatch(ctx context.Context, batchID uuid.UUID) {
	if err := r.client.Del(ctx, batchViewKey(batchID)).Err(); err != nil {
		r.log.Warn("redis del failed", zap.Error(err))
	}
}

func (r *RedisClient) SetBatchView(ctx context.Context, v *service.BatchView) {
	raw, err := json.Marshal(v)
	if err != nil {
		r.log.Warn("failed to marshal batch view", zap.Error(err))
		return
	}
	if err := r.client.Set(ctx, batchViewKey(v.ID), raw, r.ttl).Err(); err != nil {
		r.log.Warn("redis set failed", zap.Error(err))
	}
}
