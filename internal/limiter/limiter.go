package limiter

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"hairdash/internal/util"
)

// Limiter enforces per-caller request rate and concurrency for the AI
// endpoints using fixed one-second windows in redis.
type Limiter struct {
	Redis *redis.Client
	QPS   int
	Conc  int
	now   func() time.Time
}

func New(client *redis.Client, qps, conc int) *Limiter {
	return &Limiter{Redis: client, QPS: qps, Conc: conc, now: time.Now}
}

func qpsKey(scope, caller string, at time.Time) string {
	return "hairdash:qps:" + scope + ":" + util.HashString(caller) + ":" + at.UTC().Format("20060102150405")
}

func concKey(scope, caller string) string {
	return "hairdash:conc:" + scope + ":" + util.HashString(caller)
}

// Allow counts one request for caller in the current second.
func (l *Limiter) Allow(ctx context.Context, scope, caller string) (bool, error) {
	key := qpsKey(scope, caller, l.now())
	pipe := l.Redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 2*time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return int(incr.Val()) <= l.QPS, nil
}

// Acquire takes a concurrency slot; callers that get true must Release.
func (l *Limiter) Acquire(ctx context.Context, scope, caller string) (bool, error) {
	key := concKey(scope, caller)
	val, err := l.Redis.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if val == 1 {
		l.Redis.Expire(ctx, key, 60*time.Second)
	}
	if int(val) > l.Conc {
		l.Redis.Decr(ctx, key)
		return false, nil
	}
	return true, nil
}

func (l *Limiter) Release(ctx context.Context, scope, caller string) {
	_ = l.Redis.Decr(ctx, concKey(scope, caller)).Err()
}
