package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Redis defaults.
const (
	DefaultTTL       = 30 * time.Second
	DefaultRetry     = 50 * time.Millisecond
	DefaultKeyPrefix = "docket:lock:"
)

// releaseScript deletes the key only if it still holds our token, so an
// expired lock taken over by another process is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a lock shared by every docket process using the same server.
// Locks expire after the TTL if the holder dies.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
	prefix string
	logger *zap.Logger
}

var _ Locker = (*Redis)(nil)

// NewRedis connects to the server at url (redis://host:port/db).
func NewRedis(ctx context.Context, url string, ttl time.Duration, logger *zap.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Redis{
		client: client,
		ttl:    ttl,
		retry:  DefaultRetry,
		prefix: DefaultKeyPrefix,
		logger: logger.Named("lock"),
	}, nil
}

// Lock polls SET NX until it wins the key or ctx is done.
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	k := r.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(r.retry)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, k, token, r.ttl).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("locking %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("locking %s: %w", key, ctx.Err())
		case <-ticker.C:
		}
	}

	r.logger.Debug("lock acquired", zap.String("key", key))

	var once sync.Once
	return func() {
		once.Do(func() { r.release(k, key, token) })
	}, nil
}

// release deletes k if it still holds token.
func (r *Redis) release(k, key, token string) {
	// The caller's ctx may already be cancelled; release regardless.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, r.client, []string{k}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		r.logger.Warn("releasing lock", zap.String("key", key), zap.Error(err))
	}
}

// Close releases the client connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
