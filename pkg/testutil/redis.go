package testutil

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go/modules/redis"
)

// RedisContainer wraps a testcontainers Redis instance.
type RedisContainer struct {
	Container *redis.RedisContainer
	Client    *goredis.Client
}

// NewRedisContainer starts a Redis container for testing.
// The caller should defer container.Cleanup(t).
func NewRedisContainer(ctx context.Context, t *testing.T) *RedisContainer {
	t.Helper()

	redisContainer, err := redis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}

	uri, err := redisContainer.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get redis connection string: %v", err)
	}

	opts, err := goredis.ParseURL(uri)
	if err != nil {
		t.Fatalf("failed to parse redis url %q: %v", uri, err)
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("failed to ping redis: %v", err)
	}

	return &RedisContainer{Container: redisContainer, Client: client}
}

// Cleanup terminates the container.
func (rc *RedisContainer) Cleanup(t *testing.T) {
	t.Helper()

	if rc.Client != nil {
		_ = rc.Client.Close()
	}

	if rc.Container != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := rc.Container.Terminate(ctx); err != nil {
			t.Logf("warning: failed to terminate redis container: %v", err)
		}
	}
}
