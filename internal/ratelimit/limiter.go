// Package ratelimit implements the backoff policy shared by every outbound
// generative call. One Limiter exists per external service.
package ratelimit

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Limiter paces calls to one service and computes retry delays.
type Limiter struct {
	policy    Policy
	retryable map[string]struct{}

	mu       sync.Mutex
	failures int

	sleep  SleepFunc
	jitter func() float64
}

// Option customises a Limiter.
type Option func(*Limiter)

// WithSleep replaces the blocking sleep, mainly for tests.
func WithSleep(fn SleepFunc) Option {
	return func(l *Limiter) { l.sleep = fn }
}

// WithJitterSource replaces the uniform [0,1) source used for jitter.
func WithJitterSource(fn func() float64) Option {
	return func(l *Limiter) { l.jitter = fn }
}

// New builds a limiter for policy.
func New(policy Policy, opts ...Option) *Limiter {
	l := &Limiter{
		policy:    policy,
		retryable: make(map[string]struct{}, len(policy.RetryableErrors)),
		sleep:     Sleep,
		jitter:    rand.Float64,
	}
	for _, code := range policy.RetryableErrors {
		l.retryable[strings.ToLower(strings.TrimSpace(code))] = struct{}{}
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Policy returns the limiter's tuning constants.
func (l *Limiter) Policy() Policy {
	return l.policy
}

// PacingDelay is min(maxDelay, baseDelay * 2^consecutiveFailures).
func (l *Limiter) PacingDelay() time.Duration {
	l.mu.Lock()
	failures := l.failures
	l.mu.Unlock()
	return l.capped(l.exponential(failures))
}

// WaitIfNeeded paces successive unrelated operations.
func (l *Limiter) WaitIfNeeded(ctx context.Context) error {
	return l.sleep(ctx, l.PacingDelay())
}

// RecordSuccess resets the consecutive failure counter.
func (l *Limiter) RecordSuccess() {
	l.mu.Lock()
	l.failures = 0
	l.mu.Unlock()
}

// RecordFailure increments the consecutive failure counter up to its cap.
func (l *Limiter) RecordFailure() {
	l.mu.Lock()
	if l.failures < l.maxFailures() {
		l.failures++
	}
	l.mu.Unlock()
}

// ConsecutiveFailures returns the current counter value.
func (l *Limiter) ConsecutiveFailures() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failures
}

// IsRetryable reports whether code is in the service's transient allowlist.
func (l *Limiter) IsRetryable(code string) bool {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return false
	}
	_, ok := l.retryable[code]
	return ok
}

// RetryDelay is min(maxDelay, base*2^attempt + uniform(0, base*2^attempt*jitter)).
func (l *Limiter) RetryDelay(attempt int) time.Duration {
	exp := l.exponential(attempt)
	jitter := time.Duration(float64(exp) * l.policy.JitterFactor * l.jitter())
	return l.capped(exp + jitter)
}

// BaseRetryDelay is the non-jittered exponential term of RetryDelay, capped.
func (l *Limiter) BaseRetryDelay(attempt int) time.Duration {
	return l.capped(l.exponential(attempt))
}

// WaitForRetry paces retries of the same logical operation.
func (l *Limiter) WaitForRetry(ctx context.Context, attempt int) error {
	return l.sleep(ctx, l.RetryDelay(attempt))
}

func (l *Limiter) maxFailures() int {
	if l.policy.MaxConsecutiveFailures > 0 {
		return l.policy.MaxConsecutiveFailures
	}
	return 5
}

func (l *Limiter) exponential(n int) time.Duration {
	if n < 0 {
		n = 0
	}
	// Anything past 2^30 overflows the cap regardless of base.
	if n > 30 {
		n = 30
	}
	d := float64(l.policy.BaseDelay) * math.Pow(2, float64(n))
	if d > float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

func (l *Limiter) capped(d time.Duration) time.Duration {
	if l.policy.MaxDelay > 0 && d > l.policy.MaxDelay {
		return l.policy.MaxDelay
	}
	if d < 0 {
		return l.policy.MaxDelay
	}
	return d
}

// Coder is implemented by provider errors that expose a service error code.
type Coder interface {
	ErrorCode() string
}

// CodeOf extracts the service error code from err, if any.
func CodeOf(err error) string {
	var coder Coder
	if errors.As(err, &coder) {
		return coder.ErrorCode()
	}
	return ""
}

// Do runs fn under the limiter: it paces the call, retries allowlisted
// failures up to MaxAttempts with jittered backoff and keeps the
// consecutive-failure counter current.
func Do(ctx context.Context, l *Limiter, fn func(ctx context.Context) error) error {
	if l == nil {
		return fn(ctx)
	}
	if err := l.WaitIfNeeded(ctx); err != nil {
		return err
	}
	attempts := l.policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			l.RecordSuccess()
			return nil
		}
		l.RecordFailure()
		if ctx.Err() != nil || !l.IsRetryable(CodeOf(err)) || attempt == attempts-1 {
			return err
		}
		if waitErr := l.WaitForRetry(ctx, attempt); waitErr != nil {
			return waitErr
		}
	}
	return err
}
