package gateway

import (
	"sync"
	"time"
)

// RateLimiter implements per-user rate limiting using a token bucket
type RateLimiter struct {
	buckets    map[string]*tokenBucket
	bucketsMux sync.RWMutex
	limit      int
	period     time.Duration
}

type tokenBucket struct {
	tokens     int
	lastRefill time.Time
	mutex      sync.Mutex
}

// NewRateLimiter creates a rate limiter allowing limit requests per period
func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*tokenBucket),
		limit:   limit,
		period:  period,
	}
}

// Allow reports whether a request is allowed for the given user
func (rl *RateLimiter) Allow(userID string) (bool, error) {
	bucket := rl.getBucket(userID)

	bucket.mutex.Lock()
	defer bucket.mutex.Unlock()

	now := time.Now()
	elapsed := now.Sub(bucket.lastRefill)

	if elapsed >= rl.period {
		bucket.tokens = rl.limit
		bucket.lastRefill = now
	} else {
		tokensToAdd := int(elapsed.Nanoseconds() * int64(rl.limit) / rl.period.Nanoseconds())
		if tokensToAdd > 0 {
			bucket.tokens = min(bucket.tokens+tokensToAdd, rl.limit)
			bucket.lastRefill = now
		}
	}

	if bucket.tokens > 0 {
		bucket.tokens--
		return true, nil
	}

	return false, nil
}

// Reset refills the bucket for a user
func (rl *RateLimiter) Reset(userID string) {
	rl.bucketsMux.RLock()
	bucket, exists := rl.buckets[userID]
	rl.bucketsMux.RUnlock()

	if !exists {
		return
	}

	bucket.mutex.Lock()
	bucket.tokens = rl.limit
	bucket.lastRefill = time.Now()
	bucket.mutex.Unlock()
}

func (rl *RateLimiter) getBucket(userID string) *tokenBucket {
	rl.bucketsMux.RLock()
	bucket, exists := rl.buckets[userID]
	rl.bucketsMux.RUnlock()

	if exists {
		return bucket
	}

	rl.bucketsMux.Lock()
	defer rl.bucketsMux.Unlock()

	// Double-check after acquiring the write lock
	if bucket, exists := rl.buckets[userID]; exists {
		return bucket
	}

	bucket = &tokenBucket{
		tokens:     rl.limit,
		lastRefill: time.Now(),
	}
	rl.buckets[userID] = bucket

	return bucket
}

// cleanup removes buckets idle for more than a day
func (rl *RateLimiter) cleanup() {
	rl.bucketsMux.Lock()
	defer rl.bucketsMux.Unlock()

	cutoff := time.Now().Add(-24 * time.Hour)

	for userID, bucket := range rl.buckets {
		bucket.mutex.Lock()
		if bucket.lastRefill.Before(cutoff) {
			delete(rl.buckets, userID)
		}
		bucket.mutex.Unlock()
	}
}

// StartCleanup starts periodic cleanup of idle buckets
func (rl *RateLimiter) StartCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			rl.cleanup()
		}
	}()
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
