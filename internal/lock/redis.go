package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	redisKeyPrefix = "lock:history:"
	retryInterval  = 50 * time.Millisecond
)

var luaUnlock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

// Redis is a lock shared by every relay instance using the same Redis. The
// TTL bounds how long a crashed holder can block a user.
type Redis struct {
	cli     *redis.Client
	ttl     time.Duration
	timeout time.Duration
	logger  zerolog.Logger
}

func NewRedis(cli *redis.Client, ttl, timeout time.Duration, logger zerolog.Logger) *Redis {
	return &Redis{cli: cli, ttl: ttl, timeout: timeout, logger: logger}
}

func (l *Redis) Lock(ctx context.Context, key string) (func(), error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	redisKey := redisKeyPrefix + key
	token := uuid.NewString()

	for {
		ok, err := l.cli.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err == nil && ok {
			break
		}
		if err != nil && ctx.Err() == nil {
			l.logger.Warn().Err(err).Str("key", redisKey).Msg("redis lock attempt failed")
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w %q: %v", ErrLockTimeout, key, ctx.Err())
		case <-time.After(retryInterval):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			unlockCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := luaUnlock.Run(unlockCtx, l.cli, []string{redisKey}, token).Err(); err != nil {
				l.logger.Warn().Err(err).Str("key", redisKey).Msg("redis unlock failed, lock will expire")
			}
		})
	}, nil
}
