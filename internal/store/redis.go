// Package store holds the persistence collaborators: a redis cache of the
// latest snapshot per session, and a postgres archive of completed games and
// series. The engine works without either; both are wired in when configured.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"riftdraft/internal/session"
)

var ErrNotCached = errors.New("snapshot not cached")

const snapshotTTL = 24 * time.Hour

// Cache mirrors every committed snapshot so pollers and overlay tooling can
// read state without touching the session actor.
type Cache struct {
	rdb *redis.Client
}

func NewCache(redisURL string) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("store: parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("store: redis ping: %w", err)
	}
	return &Cache{rdb: rdb}, nil
}

func (c *Cache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func (c *Cache) SaveSnapshot(ctx context.Context, sessionID string, snap session.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("store: marshal snapshot: %w", err)
	}
	if err := c.rdb.Set(ctx, snapshotKey(sessionID), raw, snapshotTTL).Err(); err != nil {
		return fmt.Errorf("store: save snapshot: %w", err)
	}
	return nil
}

func (c *Cache) LoadSnapshot(ctx context.Context, sessionID string) (session.Snapshot, error) {
	raw, err := c.rdb.Get(ctx, snapshotKey(sessionID)).Bytes()
	if err == redis.Nil {
		return session.Snapshot{}, ErrNotCached
	}
	if err != nil {
		return session.Snapshot{}, fmt.Errorf("store: load snapshot: %w", err)
	}
	var snap session.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return session.Snapshot{}, fmt.Errorf("store: decode snapshot: %w", err)
	}
	return snap, nil
}

func snapshotKey(sessionID string) string { return "draft:snapshot:" + sessionID }
