package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"priceoracle-service/internal/application"
	"priceoracle-service/internal/domain"
)

var (
	// BreakerMinRequests is the number of requests in a window before the
	// failure ratio is considered.
	BreakerMinRequests uint32 = 10
	// BreakerFailureRatio trips the breaker once reached.
	BreakerFailureRatio = 0.6
	// BreakerOpenTimeout is how long an open breaker rejects calls.
	BreakerOpenTimeout = 60 * time.Second
)

// Breaker wraps a provider with a circuit breaker. While open, Fetch fails
// immediately and the aggregator moves on to the next provider.
type Breaker struct {
	next application.PriceProvider
	cb   *gobreaker.CircuitBreaker
}

var _ application.PriceProvider = (*Breaker)(nil)

func WithBreaker(next application.PriceProvider, log *zap.Logger) *Breaker {
	log = logOrNop(log)
	return &Breaker{
		next: next,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    string(next.ID()),
			Timeout: BreakerOpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				ratio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= BreakerMinRequests && ratio >= BreakerFailureRatio
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("provider.breaker_state",
					zap.String("provider", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		}),
	}
}

func (b *Breaker) ID() domain.ProviderID { return b.next.ID() }

func (b *Breaker) State() gobreaker.State { return b.cb.State() }

func (b *Breaker) Fetch(ctx context.Context, symbol string) (domain.PriceRecord, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Fetch(ctx, symbol)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return domain.PriceRecord{}, fmt.Errorf("%s: %w", b.next.ID(), err)
		}
		return domain.PriceRecord{}, err
	}
	return out.(domain.PriceRecord), nil
}
