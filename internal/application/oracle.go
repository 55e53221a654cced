package application

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"priceoracle-service/internal/config"
	"priceoracle-service/internal/domain"
)

// Oracle owns one aggregator and one cache per asset class. It does no
// locking of its own; share it through SharedOracle.
type Oracle struct {
	cfg     config.Config
	aggs    map[domain.AssetClass]*Aggregator
	caches  map[domain.AssetClass]*domain.PriceCache
	clock   Clock
	log     *zap.Logger
	obs     Observer
	created time.Time
}

type OracleOption func(*Oracle)

func WithClock(c Clock) OracleOption        { return func(o *Oracle) { o.clock = c } }
func WithLogger(l *zap.Logger) OracleOption { return func(o *Oracle) { o.log = l } }
func WithObserver(obs Observer) OracleOption {
	return func(o *Oracle) { o.obs = obs }
}

// NewOracle validates cfg and builds the provider chain of each class from
// the providers whose credentials are configured.
func NewOracle(cfg config.Config, providers []PriceProvider, opts ...OracleOption) (*Oracle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &Oracle{
		cfg:    cfg,
		aggs:   make(map[domain.AssetClass]*Aggregator, len(domain.AssetClasses)),
		caches: make(map[domain.AssetClass]*domain.PriceCache, len(domain.AssetClasses)),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.clock == nil {
		o.clock = realClock{}
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	if o.obs == nil {
		o.obs = noopObserver{}
	}
	o.created = o.clock.Now()

	for _, class := range domain.AssetClasses {
		chain := BuildChain(class, providers, cfg.Available)
		o.aggs[class] = NewAggregator(class, chain,
			WithMaxConcurrency(cfg.General.MaxConcurrency),
			WithAggregatorLogger(o.log),
			WithAggregatorObserver(o.obs),
		)
		o.caches[class] = domain.NewPriceCache()
	}
	return o, nil
}

func (o *Oracle) parts(class domain.AssetClass) (*Aggregator, *domain.PriceCache, error) {
	agg, ok := o.aggs[class]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", domain.ErrUnknownAssetClass, class)
	}
	return agg, o.caches[class], nil
}

// Chain lists the provider order used for a class.
func (o *Oracle) Chain(class domain.AssetClass) []domain.ProviderID {
	agg, _, err := o.parts(class)
	if err != nil {
		return nil
	}
	return agg.Chain()
}

// Update refreshes one class and returns the number of records written.
// An ErrAllSourcesFailed from the aggregator is returned as is.
func (o *Oracle) Update(ctx context.Context, class domain.AssetClass) (int, error) {
	agg, cache, err := o.parts(class)
	if err != nil {
		return 0, err
	}
	start := o.clock.Now()
	recs, err := agg.FetchAll(ctx, o.cfg.Symbols(class))
	o.obs.UpdateDuration(class, o.clock.Now().Sub(start))
	if err != nil {
		return 0, err
	}
	now := o.clock.Now()
	for _, r := range recs {
		cache.Put(r, now)
	}
	o.obs.CacheSize(class, cache.Len())
	return len(recs), nil
}

func (o *Oracle) UpdateCryptoPrices(ctx context.Context) (int, error) {
	return o.Update(ctx, domain.AssetClassCrypto)
}

func (o *Oracle) UpdateStockPrices(ctx context.Context) (int, error) {
	return o.Update(ctx, domain.AssetClassStock)
}

// UpdateAllPrices updates every class independently. A failing class is
// logged and contributes nothing to the returned count.
func (o *Oracle) UpdateAllPrices(ctx context.Context) int {
	total := 0
	for _, class := range domain.AssetClasses {
		n, err := o.Update(ctx, class)
		if err != nil {
			o.log.Warn("oracle.update_failed", zap.String("asset_class", string(class)), zap.Error(err))
			continue
		}
		total += n
	}
	return total
}

// GetPrice serves from the cache and otherwise fetches the symbol directly
// through the class chain. Directly fetched records are not cached.
func (o *Oracle) GetPrice(ctx context.Context, class domain.AssetClass, symbol string) (domain.PriceRecord, error) {
	rec, ok, err := o.cached(class, symbol)
	if err != nil || ok {
		return rec, err
	}
	return o.fetchDirect(ctx, class, symbol)
}

func (o *Oracle) cached(class domain.AssetClass, symbol string) (domain.PriceRecord, bool, error) {
	_, cache, err := o.parts(class)
	if err != nil {
		return domain.PriceRecord{}, false, err
	}
	rec, ok := cache.Get(symbol)
	return rec, ok, nil
}

// fetchDirect only reads the aggregators, which never change after
// construction, so it needs no lock.
func (o *Oracle) fetchDirect(ctx context.Context, class domain.AssetClass, symbol string) (domain.PriceRecord, error) {
	agg, _, err := o.parts(class)
	if err != nil {
		return domain.PriceRecord{}, err
	}
	rec, err := agg.FetchOne(ctx, symbol)
	if err != nil {
		return domain.PriceRecord{}, fmt.Errorf("%w: %s/%s: %w", domain.ErrPriceNotFound, class, symbol, err)
	}
	return rec, nil
}

// GetSymbols returns the configured universe of a class, not the cache keys.
func (o *Oracle) GetSymbols(class domain.AssetClass) []string {
	return o.cfg.Symbols(class)
}

func (o *Oracle) GetAllPrices(class domain.AssetClass) []domain.PriceRecord {
	_, cache, err := o.parts(class)
	if err != nil {
		return nil
	}
	return cache.All()
}

// LastUpdate is the latest cache write, or the construction time before
// the first write.
func (o *Oracle) LastUpdate() time.Time {
	last := time.Time{}
	for _, c := range o.caches {
		if c.LastUpdate().After(last) {
			last = c.LastUpdate()
		}
	}
	if last.IsZero() {
		return o.created
	}
	return last
}

// Statistics reports cache sizes, the last update and the mean price of
// each class. A class with an empty cache has no average key.
func (o *Oracle) Statistics() map[string]any {
	stats := map[string]any{
		"total_crypto_symbols": o.caches[domain.AssetClassCrypto].Len(),
		"total_stock_symbols":  o.caches[domain.AssetClassStock].Len(),
		"last_update":          o.LastUpdate().UTC().Format(time.RFC3339),
	}
	if avg, ok := o.caches[domain.AssetClassCrypto].AveragePrice(); ok {
		stats["avg_crypto_price"] = avg
	}
	if avg, ok := o.caches[domain.AssetClassStock].AveragePrice(); ok {
		stats["avg_stock_price"] = avg
	}
	return stats
}

// FormatTable writes the cached prices of both classes as aligned columns.
func (o *Oracle) FormatTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CLASS\tSYMBOL\tPRICE\tCHANGE 24H\tSOURCE\tUPDATED")
	for _, class := range domain.AssetClasses {
		for _, r := range o.caches[class].All() {
			change := "-"
			if r.ChangePercent != nil {
				change = fmt.Sprintf("%+.2f%%", *r.ChangePercent)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				class, r.Symbol, formatPrice(r.Price), change, r.Source, r.Timestamp.Format(time.TimeOnly))
		}
	}
	return tw.Flush()
}

func formatPrice(p float64) string {
	switch {
	case p >= 1:
		return fmt.Sprintf("%.2f", p)
	case p >= 0.01:
		return fmt.Sprintf("%.4f", p)
	default:
		return fmt.Sprintf("%.8f", p)
	}
}
