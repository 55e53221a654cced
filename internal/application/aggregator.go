package application

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"priceoracle-service/internal/domain"
)

// BuildChain orders the available providers of a class by the fixed
// preference order. The first entry is the primary, the rest are
// fallbacks.
func BuildChain(class domain.AssetClass, providers []PriceProvider, available func(domain.ProviderID) bool) []PriceProvider {
	byID := make(map[domain.ProviderID]PriceProvider, len(providers))
	for _, p := range providers {
		byID[p.ID()] = p
	}
	var chain []PriceProvider
	for _, id := range domain.PreferenceOrder(class) {
		p, ok := byID[id]
		if !ok {
			continue
		}
		if available != nil && !available(id) {
			continue
		}
		chain = append(chain, p)
	}
	return chain
}

// Aggregator fetches every symbol of one asset class concurrently, trying
// the chain's providers in order for each symbol.
type Aggregator struct {
	class          domain.AssetClass
	chain          []PriceProvider
	maxConcurrency int
	log            *zap.Logger
	obs            Observer
}

type AggregatorOption func(*Aggregator)

func WithMaxConcurrency(n int) AggregatorOption {
	return func(a *Aggregator) { a.maxConcurrency = n }
}

func WithAggregatorLogger(l *zap.Logger) AggregatorOption {
	return func(a *Aggregator) { a.log = l }
}

func WithAggregatorObserver(o Observer) AggregatorOption {
	return func(a *Aggregator) { a.obs = o }
}

func NewAggregator(class domain.AssetClass, chain []PriceProvider, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{class: class, chain: chain}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = zap.NewNop()
	}
	if a.obs == nil {
		a.obs = noopObserver{}
	}
	a.log = a.log.With(zap.String("asset_class", string(class)))
	return a
}

func (a *Aggregator) Class() domain.AssetClass { return a.class }

func (a *Aggregator) Chain() []domain.ProviderID {
	ids := make([]domain.ProviderID, 0, len(a.chain))
	for _, p := range a.chain {
		ids = append(ids, p.ID())
	}
	return ids
}

// FetchAll returns records in completion order. Symbols whose whole chain
// failed are logged and left out. When no symbol produced a record the
// error wraps domain.ErrAllSourcesFailed; an input without symbols yields
// an empty result and no requests.
func (a *Aggregator) FetchAll(ctx context.Context, symbols []string) ([]domain.PriceRecord, error) {
	todo := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s = strings.TrimSpace(s); s != "" {
			todo = append(todo, s)
		}
	}
	if len(todo) == 0 {
		return []domain.PriceRecord{}, nil
	}

	var (
		mu  sync.Mutex
		out = make([]domain.PriceRecord, 0, len(todo))
	)
	g := new(errgroup.Group)
	if a.maxConcurrency > 0 {
		g.SetLimit(a.maxConcurrency)
	}
	for _, symbol := range todo {
		g.Go(func() error {
			rec, err := a.FetchOne(ctx, symbol)
			if err != nil {
				a.log.Warn("aggregator.symbol_failed", zap.String("symbol", symbol), zap.Error(err))
				return nil
			}
			mu.Lock()
			out = append(out, rec)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if len(out) == 0 {
		return out, fmt.Errorf("%w: %s: %d symbols", domain.ErrAllSourcesFailed, a.class, len(todo))
	}
	return out, nil
}

// FetchOne walks the chain sequentially and returns the first success.
func (a *Aggregator) FetchOne(ctx context.Context, symbol string) (domain.PriceRecord, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return domain.PriceRecord{}, domain.ErrEmptySymbol
	}
	if len(a.chain) == 0 {
		return domain.PriceRecord{}, fmt.Errorf("%w: %s: no providers available", domain.ErrAllSourcesFailed, symbol)
	}

	var lastErr error
	for i, p := range a.chain {
		rec, err := p.Fetch(ctx, symbol)
		a.obs.ProviderResult(p.ID(), err)
		if err == nil {
			if i > 0 {
				a.log.Info("aggregator.fallback_succeeded",
					zap.String("symbol", symbol),
					zap.String("provider", string(p.ID())),
					zap.Int("position", i),
				)
			}
			return rec, nil
		}
		a.log.Debug("aggregator.provider_failed",
			zap.String("symbol", symbol),
			zap.String("provider", string(p.ID())),
			zap.Error(err),
		)
		lastErr = err
	}
	return domain.PriceRecord{}, fmt.Errorf("%w: %s: %w", domain.ErrAllSourcesFailed, symbol, lastErr)
}
