package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tm-acme-shop/clubhouse-orders-service/internal/config"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/logging"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/models"
)

const (
	orderKeyPrefix    = "order:"
	deliveryConfigKey = "delivery_config:current"
	defaultCacheTTL   = 5 * time.Minute
)

// NewRedisClient builds a client from cfg. It does not dial.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func cacheTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return defaultCacheTTL
	}
	return ttl
}

// RedisOrderCache caches orders by id.
type RedisOrderCache struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisOrderCache(client redis.Cmdable, ttl time.Duration) *RedisOrderCache {
	return &RedisOrderCache{
		client: client,
		ttl:    cacheTTL(ttl),
		logger: logging.Named("order-cache"),
	}
}

// Get returns nil without error on a miss.
func (c *RedisOrderCache) Get(ctx context.Context, id string) (*models.Order, error) {
	data, err := c.client.Get(ctx, orderKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		c.logger.Debug("cache miss", zap.String("order_id", id))
		return nil, nil
	}
	if err != nil {
		c.logger.Error("cache get failed", zap.String("order_id", id), zap.Error(err))
		return nil, err
	}

	var order models.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *RedisOrderCache) Set(ctx context.Context, order *models.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, orderKeyPrefix+order.ID, data, c.ttl).Err(); err != nil {
		c.logger.Error("cache set failed", zap.String("order_id", order.ID), zap.Error(err))
		return err
	}
	return nil
}

func (c *RedisOrderCache) Delete(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, orderKeyPrefix+id).Err(); err != nil {
		c.logger.Error("cache delete failed", zap.String("order_id", id), zap.Error(err))
		return err
	}
	return nil
}

// RedisDeliveryConfigCache caches the delivery charge singleton. Writes to
// the config delete the key so the next read goes to the database.
type RedisDeliveryConfigCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisDeliveryConfigCache(client redis.Cmdable, ttl time.Duration) *RedisDeliveryConfigCache {
	return &RedisDeliveryConfigCache{client: client, ttl: cacheTTL(ttl)}
}

func (c *RedisDeliveryConfigCache) Get(ctx context.Context) (*models.DeliveryChargeConfig, error) {
	data, err := c.client.Get(ctx, deliveryConfigKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cfg models.DeliveryChargeConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *RedisDeliveryConfigCache) Set(ctx context.Context, cfg *models.DeliveryChargeConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, deliveryConfigKey, data, c.ttl).Err()
}

func (c *RedisDeliveryConfigCache) Delete(ctx context.Context) error {
	return c.client.Del(ctx, deliveryConfigKey).Err()
}
