// ratelimit.go implements per-client token bucket throttling for the HTTP API.
// Buckets are keyed by authenticated identity when available and by client IP
// otherwise, so anonymous index browsing cannot starve authenticated publishes.
package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// staleAfter is how long an idle bucket survives before the cleanup pass drops it.
const staleAfter = 10 * time.Minute

// RateLimitConfig controls a single limiter instance.
type RateLimitConfig struct {
	// RequestsPerMinute is the sustained refill rate.
	RequestsPerMinute int
	// BurstSize caps how many requests a client may make back to back.
	BurstSize int
	// CleanupInterval is how often idle buckets are reaped.
	CleanupInterval time.Duration
}

// DefaultRateLimitConfig covers general read traffic against the index.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 200,
		BurstSize:         50, // resolvers fetch project metadata in batches
		CleanupInterval:   5 * time.Minute,
	}
}

// AuthRateLimitConfig is deliberately tight since these endpoints see
// credential material.
func AuthRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 10,
		BurstSize:         5,
		CleanupInterval:   5 * time.Minute,
	}
}

// UploadRateLimitConfig bounds release publishing, which is far more expensive
// per request than metadata reads.
func UploadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 30,
		BurstSize:         5,
		CleanupInterval:   5 * time.Minute,
	}
}

type bucket struct {
	tokens     float64
	lastUpdate time.Time
}

// refill credits tokens for the time elapsed since the last touch and advances
// the clock. Caller must hold the limiter lock.
func (b *bucket) refill(now time.Time, cfg RateLimitConfig) {
	perSecond := float64(cfg.RequestsPerMinute) / 60.0
	b.tokens = min(float64(cfg.BurstSize), b.tokens+now.Sub(b.lastUpdate).Seconds()*perSecond)
	b.lastUpdate = now
}

// RateLimiter is an in-memory token bucket limiter. One instance is shared by
// all requests routed through its middleware.
type RateLimiter struct {
	config  RateLimitConfig
	buckets map[string]*bucket
	mu      sync.RWMutex
	stopCh  chan struct{}
}

// NewRateLimiter builds a limiter and starts its background cleanup loop.
// Call Stop during shutdown.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		config:  config,
		buckets: make(map[string]*bucket),
		stopCh:  make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			rl.mu.Lock()
			for key, b := range rl.buckets {
				if now.Sub(b.lastUpdate) > staleAfter {
					delete(rl.buckets, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

// Stop terminates the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// Allow consumes one token for key, creating the bucket on first sight.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.buckets[key]
	if !ok {
		// First request from this client; it spends one token of a full burst.
		rl.buckets[key] = &bucket{
			tokens:     float64(rl.config.BurstSize) - 1,
			lastUpdate: now,
		}
		return true
	}

	b.refill(now, rl.config)
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// RemainingTokens reports the current token count for key without consuming.
func (rl *RateLimiter) RemainingTokens(key string) int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	b, ok := rl.buckets[key]
	if !ok {
		return rl.config.BurstSize
	}

	perSecond := float64(rl.config.RequestsPerMinute) / 60.0
	current := min(float64(rl.config.BurstSize), b.tokens+time.Since(b.lastUpdate).Seconds()*perSecond)
	return int(current)
}

// RateLimitMiddleware enforces limiter on every request it wraps and exposes
// the usual X-RateLimit headers.
func RateLimitMiddleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rateLimitKey(c)

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

// rateLimitKey prefers user identity over API key identity over client IP, so
// one NAT'd office does not share an anonymous bucket with its logged-in users.
func rateLimitKey(c *gin.Context) string {
	if userID, ok := c.Get("user_id"); ok {
		if id, ok := userID.(string); ok && id != "" {
			return "user:" + id
		}
	}
	if apiKeyID, ok := c.Get("api_key_id"); ok {
		if id, ok := apiKeyID.(string); ok && id != "" {
			return "apikey:" + id
		}
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = c.Request.RemoteAddr
	}
	return "ip:" + ip
}
