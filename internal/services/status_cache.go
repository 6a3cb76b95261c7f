package services

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const readyKeyPrefix = "wallet:ready:"

// RedisStatusCache stores the address of wallets already observed ready.
// Ready is terminal at the custody provider, so entries never expire.
type RedisStatusCache struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewRedisStatusCache(rdb *redis.Client, log *zap.Logger) *RedisStatusCache {
	return &RedisStatusCache{rdb: rdb, log: log}
}

func (c *RedisStatusCache) GetReady(ctx context.Context, walletID string) (string, bool) {
	addr, err := c.rdb.Get(ctx, readyKeyPrefix+walletID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		c.log.Debug("status cache read failed", zap.String("wallet_id", walletID), zap.Error(err))
		return "", false
	}
	return addr, addr != ""
}

func (c *RedisStatusCache) SetReady(ctx context.Context, walletID, address string) {
	if err := c.rdb.Set(ctx, readyKeyPrefix+walletID, address, 0).Err(); err != nil {
		c.log.Warn("status cache write failed", zap.String("wallet_id", walletID), zap.Error(err))
	}
}
