package redisx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vasiliy-maslov/order-fulfillment/internal/order"
)

const keyOrderStatus = "order_status:%s"

var ttlStatusCache = 5 * time.Minute

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

// StatusCache keeps the last committed status of each order for cheap status
// polling. Entries expire on their own; the cache is never authoritative.
type StatusCache struct {
	rdb *redis.Client
}

func NewStatusCache(rdb *redis.Client) *StatusCache {
	return &StatusCache{rdb: rdb}
}

func (c *StatusCache) SetStatus(ctx context.Context, orderID uuid.UUID, status order.OrderStatus) error {
	key := fmt.Sprintf(keyOrderStatus, orderID)
	if err := c.rdb.Set(ctx, key, status.String(), ttlStatusCache).Err(); err != nil {
		return fmt.Errorf("redisx: failed to set %s: %w", key, err)
	}
	return nil
}

func (c *StatusCache) GetStatus(ctx context.Context, orderID uuid.UUID) (order.OrderStatus, bool, error) {
	key := fmt.Sprintf(keyOrderStatus, orderID)
	value, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redisx: failed to get %s: %w", key, err)
	}
	return order.OrderStatus(value), true, nil
}
