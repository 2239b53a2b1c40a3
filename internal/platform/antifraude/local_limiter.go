package antifraude

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/marcelojr/track-battle/internal/domain"
)

// LocalRateLimiter usa token bucket em memória; serve para instância única ou sem Redis.
type LocalRateLimiter struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	buckets  map[string]*localBucket
	now      func() time.Time
	lastGC   time.Time
	gcPeriod time.Duration
}

type localBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewLocalRateLimiter(limit int, window time.Duration) *LocalRateLimiter {
	return &LocalRateLimiter{
		limit:    limit,
		window:   window,
		buckets:  make(map[string]*localBucket),
		now:      time.Now,
		gcPeriod: 10 * window,
	}
}

func (l *LocalRateLimiter) Validar(_ context.Context, a domain.Attempt) error {
	if l.limit <= 0 || l.window <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.collect(now)

	key := string(a.Action) + ":" + attemptHash(a)
	b, ok := l.buckets[key]
	if !ok {
		// Rajada igual ao limite, reposição espalhada pela janela.
		every := rate.Every(l.window / time.Duration(l.limit))
		b = &localBucket{limiter: rate.NewLimiter(every, l.limit)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	if !b.limiter.AllowN(now, 1) {
		return ErrRateLimitExceeded
	}
	return nil
}

func (l *LocalRateLimiter) collect(now time.Time) {
	if now.Sub(l.lastGC) < l.gcPeriod {
		return
	}
	l.lastGC = now
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.window {
			delete(l.buckets, key)
		}
	}
}

var _ domain.Antifraude = (*LocalRateLimiter)(nil)
