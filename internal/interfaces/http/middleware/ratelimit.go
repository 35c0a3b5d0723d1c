package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/turtacn/DTI-Insight/pkg/errors"
)

// RateLimiter decides whether a request keyed by key may proceed.
type RateLimiter interface {
	Allow(key string) (bool, RateLimitInfo)
}

// RateLimitInfo is the limiter state reported in response headers.
type RateLimitInfo struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RateLimitConfig guards the prediction route, which calls a paid backend.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	KeyFunc           func(r *http.Request) string
	CleanupInterval   time.Duration
}

// DefaultRateLimitConfig allows one prediction per second per client with a
// burst of five.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 1,
		BurstSize:         5,
		KeyFunc:           ClientIP,
		CleanupInterval:   5 * time.Minute,
	}
}

// ClientIP keys requests by the first forwarded address or the peer host.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// TokenBucketLimiter is an in-memory per-key token bucket.
type TokenBucketLimiter struct {
	rate     float64
	burst    int
	now      func() time.Time
	mu       sync.Mutex
	buckets  map[string]*tokenBucket
	stop     chan struct{}
	stopOnce sync.Once
}

// NewTokenBucketLimiter starts a limiter; a positive cleanupInterval evicts
// idle buckets in the background until Stop.
func NewTokenBucketLimiter(rate float64, burst int, cleanupInterval time.Duration) *TokenBucketLimiter {
	if rate <= 0 {
		rate = 1
	}
	if burst <= 0 {
		burst = 1
	}
	l := &TokenBucketLimiter{
		rate:    rate,
		burst:   burst,
		now:     time.Now,
		buckets: make(map[string]*tokenBucket),
		stop:    make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go l.cleanupLoop(cleanupInterval)
	}
	return l
}

// Allow takes one token from key's bucket.
func (l *TokenBucketLimiter) Allow(key string) (bool, RateLimitInfo) {
	now := l.now()

	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = &tokenBucket{tokens: float64(l.burst), lastRefill: now}
		l.buckets[key] = b
	}
	l.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens += now.Sub(b.lastRefill).Seconds() * l.rate
	if b.tokens > float64(l.burst) {
		b.tokens = float64(l.burst)
	}
	b.lastRefill = now

	info := RateLimitInfo{
		Limit:   l.burst,
		ResetAt: now.Add(time.Duration(float64(time.Second) / l.rate)),
	}
	if b.tokens >= 1 {
		b.tokens--
		info.Remaining = int(b.tokens)
		return true, info
	}
	return false, info
}

func (l *TokenBucketLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.evictIdle(interval)
		case <-l.stop:
			return
		}
	}
}

// evictIdle drops buckets that are full and untouched for idle.
func (l *TokenBucketLimiter) evictIdle(idle time.Duration) {
	threshold := l.now().Add(-idle)
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		b.mu.Lock()
		if b.lastRefill.Before(threshold) && b.tokens >= float64(l.burst)-1 {
			delete(l.buckets, key)
		}
		b.mu.Unlock()
	}
}

// Stop ends background cleanup. It is safe to call more than once.
func (l *TokenBucketLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// BucketCount reports the number of tracked keys.
func (l *TokenBucketLimiter) BucketCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// RateLimit rejects over-limit requests with 429 and a Retry-After header.
func RateLimit(limiter RateLimiter, config RateLimitConfig) func(http.Handler) http.Handler {
	keyFunc := config.KeyFunc
	if keyFunc == nil {
		keyFunc = ClientIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, info := limiter.Allow(keyFunc(r))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetAt.Unix(), 10))
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			retry := int(time.Until(info.ResetAt).Seconds())
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"code":    string(errors.ErrCodeTooManyRequests),
				"message": "rate limit exceeded, please retry later",
			})
		})
	}
}

//Personal.AI order the ending
