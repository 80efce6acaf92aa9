// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter is a fixed-window event counter in Valkey, shared by every
// server instance. It satisfies middleware.Counter.
type Counter struct {
	client *redis.Client
}

// NewCounter creates a Counter.
func NewCounter(client *redis.Client) *Counter {
	return &Counter{client: client}
}

// Incr bumps key and returns its count. The first increment starts the
// window; later ones leave the expiry alone.
func (c *Counter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}
	return incr.Val(), nil
}
