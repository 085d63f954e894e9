package ratelimit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/digiget/digiget/internal/observability/metrics"
)

// Submission limits per endpoint class. Check-in attempts are throttled
// well above the cooldown rules so the limiter only catches abuse, and
// login attempts are throttled to slow credential stuffing.
const (
	checkInRate  = 0.5
	checkInBurst = 10
	loginRate    = 0.2
	loginBurst   = 5
)

// SubmissionLimiter throttles write endpoints per caller identity.
type SubmissionLimiter struct {
	bucket  *TokenBucket
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewSubmissionLimiter(bucket *TokenBucket, log *zap.Logger, m *metrics.Metrics) *SubmissionLimiter {
	if bucket == nil {
		return nil
	}
	return &SubmissionLimiter{bucket: bucket, log: log.Named("ratelimit"), metrics: m}
}

// AllowCheckIn reports whether another check-in submission from this
// identity may proceed. Redis errors fail open: the cooldown rules are
// the correctness gate, this is abuse damping.
func (l *SubmissionLimiter) AllowCheckIn(ctx context.Context, identity string) (bool, time.Duration) {
	return l.allow(ctx, fmt.Sprintf("rl:checkin:%s", identity), checkInRate, checkInBurst)
}

// AllowLogin reports whether another login attempt may proceed.
func (l *SubmissionLimiter) AllowLogin(ctx context.Context, identity string) (bool, time.Duration) {
	return l.allow(ctx, fmt.Sprintf("rl:login:%s", identity), loginRate, loginBurst)
}

func (l *SubmissionLimiter) allow(ctx context.Context, key string, rate float64, burst int) (bool, time.Duration) {
	if l == nil || l.bucket == nil {
		return true, 0
	}

	result, err := l.bucket.Allow(ctx, key, rate, burst)
	if err != nil {
		l.log.Warn("rate limit check failed, allowing request", zap.Error(err))
		return true, 0
	}
	if !result.Allowed && l.metrics != nil {
		l.metrics.RecordRateLimited()
	}
	return result.Allowed, result.RetryAfter
}
