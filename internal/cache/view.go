// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// view.go caches the JSON rendering of a share as seen by Everyone, so
// anonymous readers of popular content skip the share lookup and the
// capability resolution.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// viewKeyPrefix is the Valkey key prefix for cached share views.
	viewKeyPrefix = "view:"

	// DefaultViewTTL is how long a public view stays cached.
	DefaultViewTTL = 5 * time.Minute
)

// View is a cached public rendering of a share. BlurbID is kept so the
// hit counter can still be bumped on a cache hit.
type View struct {
	BlurbID uuid.UUID       `json:"blurb_id"`
	Body    json.RawMessage `json:"body"`
}

// ViewCache manages public share views in Valkey.
type ViewCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewViewCache creates a view cache backed by the given Valkey client.
func NewViewCache(client *redis.Client, ttl time.Duration) *ViewCache {
	if ttl == 0 {
		ttl = DefaultViewTTL
	}
	return &ViewCache{client: client, ttl: ttl}
}

// Get returns the cached view of a share, if any.
func (vc *ViewCache) Get(ctx context.Context, shareID string) (*View, bool) {
	raw, err := vc.client.Get(ctx, viewKeyPrefix+shareID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("view cache get error", "share", shareID, "error", err)
		return nil, false
	}

	var v View
	if err := json.Unmarshal(raw, &v); err != nil {
		slog.Warn("view cache decode error", "share", shareID, "error", err)
		return nil, false
	}
	slog.Debug("view cache hit", "share", shareID)
	return &v, true
}

// Set stores the public view of a share with the configured TTL.
func (vc *ViewCache) Set(ctx context.Context, shareID string, v *View) {
	raw, err := json.Marshal(v)
	if err != nil {
		slog.Warn("view cache encode error", "share", shareID, "error", err)
		return
	}
	if err := vc.client.Set(ctx, viewKeyPrefix+shareID, raw, vc.ttl).Err(); err != nil {
		slog.Warn("view cache set error", "share", shareID, "error", err)
	}
}

// Invalidate drops the cached view of one share.
func (vc *ViewCache) Invalidate(ctx context.Context, shareID string) {
	if err := vc.client.Del(ctx, viewKeyPrefix+shareID).Err(); err != nil {
		slog.Warn("view cache invalidate error", "share", shareID, "error", err)
	}
}

// InvalidateAll removes every cached view by scanning for the prefix.
func (vc *ViewCache) InvalidateAll(ctx context.Context) {
	var cursor uint64
	var deleted int
	for {
		keys, next, err := vc.client.Scan(ctx, cursor, viewKeyPrefix+"*", 100).Result()
		if err != nil {
			slog.Warn("view cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := vc.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("view cache bulk delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Info("view cache cleared", "deleted", deleted)
	}
}
