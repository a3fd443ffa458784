package redisclient

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// AcquireOrderLock acquires the per-order transition lock. Returns false
// when another transition for the same order is in flight.
func (c *Client) AcquireOrderLock(ctx context.Context, orderID int64, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:order:%d", orderID), "1", ttl).Result()
}

// ReleaseOrderLock releases the per-order transition lock
func (c *Client) ReleaseOrderLock(ctx context.Context, orderID int64) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:order:%d", orderID)).Err()
}

// SetSupplierRating caches a supplier's (average, count) pair. The cache is
// advisory; postgres remains the record of truth. A single HSET is atomic
// server-side, so readers never see a torn pair.
func (c *Client) SetSupplierRating(ctx context.Context, supplierID string, average float64, count int) error {
	key := fmt.Sprintf("rating:%s", supplierID)
	return c.rdb.HSet(ctx, key, "average", average, "count", count).Err()
}

// GetSupplierRating reads a cached rating. found is false on a cache miss.
func (c *Client) GetSupplierRating(ctx context.Context, supplierID string) (average float64, count int, found bool, err error) {
	key := fmt.Sprintf("rating:%s", supplierID)

	result, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return 0, 0, false, err
	}
	if len(result) == 0 {
		return 0, 0, false, nil
	}

	average, err = strconv.ParseFloat(result["average"], 64)
	if err != nil {
		return 0, 0, false, fmt.Errorf("corrupt rating cache for supplier %s: %w", supplierID, err)
	}
	count, err = strconv.Atoi(result["count"])
	if err != nil {
		return 0, 0, false, fmt.Errorf("corrupt rating cache for supplier %s: %w", supplierID, err)
	}

	return average, count, true, nil
}
