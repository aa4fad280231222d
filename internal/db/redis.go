package db

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis backs the fast-path snapshot cache and the tick-fanout channel the
// realtime transport layer subscribes to, grounded on the teacher's Redis
// wrapper (internal/db/redis.go) with the TODO'd caching methods actually
// implemented: SetSnapshot/GetSnapshot replace the teacher's planned
// SetGameState/GetGameState, and PublishTick is implemented rather than
// stubbed.
type Redis struct {
	client *redis.Client
}

func NewRedis(addr string) (*Redis, error) {
	if addr == "" {
		return &Redis{}, nil
	}

	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	slog.Info("connected to redis")
	return &Redis{client: client}, nil
}

func (r *Redis) Close() error {
	if r != nil && r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *Redis) Client() *redis.Client {
	if r == nil {
		return nil
	}
	return r.client
}

func (r *Redis) IsConnected() bool {
	return r != nil && r.client != nil
}

func snapshotKey(worldID string) string {
	return fmt.Sprintf("townsim:world:%s:snapshot", worldID)
}

func tickChannel(worldID string) string {
	return fmt.Sprintf("townsim:world:%s:tick", worldID)
}

// SetSnapshot caches the latest per-world snapshot so HTTP reads of world
// state don't need to route through the kernel's own locks.
func (r *Redis) SetSnapshot(ctx context.Context, worldID string, tick int64, players interface{}) error {
	if !r.IsConnected() {
		return nil
	}
	payload, err := json.Marshal(map[string]interface{}{
		"tick":    tick,
		"players": players,
	})
	if err != nil {
		return err
	}
	return r.client.Set(ctx, snapshotKey(worldID), payload, 10*time.Minute).Err()
}

// GetSnapshot returns the cached snapshot payload, if any.
func (r *Redis) GetSnapshot(ctx context.Context, worldID string) ([]byte, error) {
	if !r.IsConnected() {
		return nil, nil
	}
	data, err := r.client.Get(ctx, snapshotKey(worldID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return data, err
}

// PublishTick broadcasts a tick-complete notification so other processes
// watching the same world can push it to their own WebSocket viewers.
func (r *Redis) PublishTick(ctx context.Context, worldID string, payload []byte) error {
	if !r.IsConnected() {
		return nil
	}
	return r.client.Publish(ctx, tickChannel(worldID), payload).Err()
}
