package httpx

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Retrier runs an operation up to MaxRetries times. The wait before attempt
// n+1 is Delay*n, a linear schedule rather than an exponential one.
type Retrier struct {
	MaxRetries int
	Delay      time.Duration
	Log        *zap.Logger
}

func NewRetrier(maxRetries int, delay time.Duration, log *zap.Logger) *Retrier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Retrier{MaxRetries: maxRetries, Delay: delay, Log: log}
}

type linearBackOff struct {
	base    time.Duration
	attempt int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return b.base * time.Duration(b.attempt)
}

func (b *linearBackOff) Reset() { b.attempt = 0 }

func (r *Retrier) attempts() int {
	if r == nil || r.MaxRetries < 1 {
		return 1
	}
	return r.MaxRetries
}

func (r *Retrier) logger() *zap.Logger {
	if r == nil || r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}

// Retry returns the first successful result of op, or the error of the last
// attempt. Every failed attempt is logged once at warn level. Errors are not
// classified: a 404 is retried like a timeout.
func Retry[T any](ctx context.Context, r *Retrier, op func() (T, error)) (T, error) {
	maxAttempts := r.attempts()
	var delay time.Duration
	if r != nil {
		delay = r.Delay
	}
	log := r.logger()

	attempt := 0
	b := backoff.WithContext(
		backoff.WithMaxRetries(&linearBackOff{base: delay}, uint64(maxAttempts-1)),
		ctx,
	)
	return backoff.RetryWithData(func() (T, error) {
		attempt++
		v, err := op()
		if err != nil {
			log.Warn("retry.attempt_failed",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", maxAttempts),
				zap.Error(err),
			)
		}
		return v, err
	}, b)
}
