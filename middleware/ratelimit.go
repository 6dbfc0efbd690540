// middleware/ratelimit.go
package middleware

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// CallerLimiter keeps one token bucket per caller identity and drops idle buckets.
type CallerLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	mu       sync.Mutex
	byCaller map[string]*callerBucket
	hits     uint64
}

type callerBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewCallerLimiter returns nil (no limiting) when rps or burst is not positive.
func NewCallerLimiter(rps float64, burst int, idleTTL time.Duration) *CallerLimiter {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &CallerLimiter{
		limit:    rate.Limit(rps),
		burst:    burst,
		idleTTL:  idleTTL,
		byCaller: make(map[string]*callerBucket),
	}
}

func (l *CallerLimiter) Allow(caller string, now time.Time) bool {
	if l == nil {
		return true
	}
	caller = strings.TrimSpace(caller)
	if caller == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.byCaller[caller]
	if !ok {
		b = &callerBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.byCaller[caller] = b
	}
	b.lastSeen = now
	allowed := b.limiter.AllowN(now, 1)

	l.hits++
	if l.hits%512 == 0 {
		cutoff := now.Add(-l.idleTTL)
		for k, v := range l.byCaller {
			if v.lastSeen.Before(cutoff) {
				delete(l.byCaller, k)
			}
		}
	}
	return allowed
}

// RateLimitMiddleware rejects callers over their budget with 429. It must run after
// CallerContextMiddleware.
func RateLimitMiddleware(l *CallerLimiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := Caller(c)
		if !l.Allow(caller, time.Now()) {
			log.Printf("🐢 [CALLER] %s over rate limit on %s", caller, c.Path())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests",
				"code":  "rate_limited",
			})
		}
		return c.Next()
	}
}
