package middleware

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	Window     time.Duration
	ResetAfter time.Duration
}

// Limiter admits at most a fixed number of requests per key per window.
// Implementations must be safe for concurrent use.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

func decide(count int64, limit int, window, resetAfter time.Duration) Decision {
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:    count <= int64(limit),
		Limit:      limit,
		Remaining:  remaining,
		Window:     window,
		ResetAfter: resetAfter,
	}
}

type window struct {
	start time.Time
	count int64
}

// MemoryLimiter keeps fixed windows in process memory. Each key's window
// opens on its first request and lasts one period.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

func NewMemoryLimiter(limit int, period time.Duration) *MemoryLimiter {
	ml := newMemoryLimiter(limit, period, time.Now)
	go ml.sweep()
	return ml
}

func newMemoryLimiter(limit int, period time.Duration, now func() time.Time) *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     now,
		stop:    make(chan struct{}),
	}
}

func (ml *MemoryLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := ml.now()

	ml.mu.Lock()
	w, ok := ml.windows[key]
	if !ok || now.Sub(w.start) >= ml.period {
		w = &window{start: now}
		ml.windows[key] = w
	}
	w.count++
	count := w.count
	resetAfter := ml.period - now.Sub(w.start)
	ml.mu.Unlock()

	return decide(count, ml.limit, ml.period, resetAfter), nil
}

// sweep drops expired windows so idle clients do not accumulate.
func (ml *MemoryLimiter) sweep() {
	ticker := time.NewTicker(ml.period)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ml.prune()
		case <-ml.stop:
			return
		}
	}
}

func (ml *MemoryLimiter) prune() {
	now := ml.now()
	ml.mu.Lock()
	for key, w := range ml.windows {
		if now.Sub(w.start) >= ml.period {
			delete(ml.windows, key)
		}
	}
	ml.mu.Unlock()
}

// Close stops the background sweeper.
func (ml *MemoryLimiter) Close() {
	ml.once.Do(func() { close(ml.stop) })
}

// RedisLimiter shares fixed windows between server replicas. Windows are
// aligned to multiples of the period.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	period time.Duration
	now    func() time.Time
}

func NewRedisLimiter(client *redis.Client, prefix string, limit int, period time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: prefix,
		limit:  limit,
		period: period,
		now:    time.Now,
	}
}

func (rl *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := rl.now()
	slot := now.UnixNano() / int64(rl.period)
	redisKey := rl.prefix + key + ":" + strconv.FormatInt(slot, 10)
	resetAfter := time.Duration((slot+1)*int64(rl.period) - now.UnixNano())

	var incr *redis.IntCmd
	_, err := rl.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.Expire(ctx, redisKey, rl.period)
		return nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit counter: %w", err)
	}

	return decide(incr.Val(), rl.limit, rl.period, resetAfter), nil
}
