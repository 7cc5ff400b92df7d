package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hunters2410/zimaio-sub004/internal/domain/model"
	"github.com/hunters2410/zimaio-sub004/internal/domain/port"
)

var _ port.AttemptLock = (*RedisLock)(nil)

const keyPrefix = "payment:attempt:"

// releaseScript deletes the key only if it still holds our token, so an
// expired lock taken over by another attempt is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock serialises payment attempts per order across service replicas.
type RedisLock struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisLock(client redis.UniversalClient, ttl time.Duration) *RedisLock {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisLock{client: client, ttl: ttl}
}

// NewClient parses a redis:// URL and pings the server.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

func (l *RedisLock) Acquire(ctx context.Context, orderID uuid.UUID) (func(context.Context) error, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	key := keyPrefix + orderID.String()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquiring attempt lock: %w", err)
	}
	if !ok {
		return nil, model.ErrAttemptInProgress
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("releasing attempt lock: %w", err)
		}
		return nil
	}
	return release, nil
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
