// ratelimit.go throttles clients with an in-process token bucket keyed on the
// authenticated user, falling back to client IP for anonymous traffic.
package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// staleBucketAfter is how long an idle client's bucket survives before the
// cleanup loop drops it.
const staleBucketAfter = 10 * time.Minute

// RateLimitConfig tunes one limiter instance
type RateLimitConfig struct {
	// RequestsPerMinute is the sustained refill rate
	RequestsPerMinute int
	// BurstSize caps how many requests a client can spend at once
	BurstSize int
	// CleanupInterval is how often idle buckets are swept
	CleanupInterval time.Duration
}

// DefaultRateLimitConfig returns the limits applied to general authenticated
// API traffic
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 200,
		BurstSize:         50,
		CleanupInterval:   5 * time.Minute,
	}
}

// SubmitRateLimitConfig returns stricter limits for mutation submission, the
// endpoint most attractive to a runaway client
func SubmitRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 30,
		BurstSize:         10,
		CleanupInterval:   5 * time.Minute,
	}
}

// tokenBucket holds one client's spendable tokens. seen is the last refill
// time; tokens accrue lazily on access instead of on a timer.
type tokenBucket struct {
	tokens float64
	seen   time.Time
}

func (b *tokenBucket) refill(now time.Time, cfg RateLimitConfig) {
	perSecond := float64(cfg.RequestsPerMinute) / 60
	b.tokens = min(float64(cfg.BurstSize), b.tokens+now.Sub(b.seen).Seconds()*perSecond)
	b.seen = now
}

// RateLimiter tracks token buckets for every active client key
type RateLimiter struct {
	config  RateLimitConfig
	buckets map[string]*tokenBucket
	mu      sync.Mutex
	stopCh  chan struct{}
}

// NewRateLimiter creates a limiter and starts its idle-bucket sweep
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		config:  config,
		buckets: make(map[string]*tokenBucket),
		stopCh:  make(chan struct{}),
	}

	go rl.sweep()

	return rl
}

func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			rl.mu.Lock()
			for key, b := range rl.buckets {
				if now.Sub(b.seen) > staleBucketAfter {
					delete(rl.buckets, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

// Stop terminates the sweep goroutine
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// Allow spends one token for the key, reporting whether the request may
// proceed. An unseen key starts with a full burst.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.buckets[key]
	if !ok {
		rl.buckets[key] = &tokenBucket{tokens: float64(rl.config.BurstSize) - 1, seen: now}
		return true
	}

	b.refill(now, rl.config)
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// RemainingTokens reports how many requests the key could make right now
func (rl *RateLimiter) RemainingTokens(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok {
		return rl.config.BurstSize
	}
	b.refill(time.Now(), rl.config)
	return int(b.tokens)
}

// RateLimitMiddleware enforces the limiter on every request it wraps,
// answering 429 with a Retry-After hint once a client's bucket is empty
func RateLimitMiddleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := getRateLimitKey(c)

		if !limiter.Allow(key) {
			c.Header("X-RateLimit-Remaining", strconv.Itoa(limiter.RemainingTokens(key)))
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": 60,
			})
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.config.RequestsPerMinute))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(limiter.RemainingTokens(key)))

		c.Next()
	}
}

// getRateLimitKey scopes the bucket to the authenticated user when there is
// one, otherwise to the client IP.
func getRateLimitKey(c *gin.Context) string {
	if userID, exists := c.Get("user_id"); exists {
		if id, ok := userID.(uuid.UUID); ok && id != uuid.Nil {
			return "user:" + id.String()
		}
	}

	ip := c.ClientIP()
	if ip == "" {
		ip = c.Request.RemoteAddr
	}
	return "ip:" + ip
}
