package provider

import (
	"context"
	"hash/fnv"
	"time"

	"priceoracle-service/internal/application"
	"priceoracle-service/internal/domain"
)

// Ensure Fake implements application.PriceProvider.
var _ application.PriceProvider = (*Fake)(nil)

// Fake serves deterministic prices without network access. It backs the
// PROVIDER=fake mode used for local runs and demos.
type Fake struct {
	id     domain.ProviderID
	class  domain.AssetClass
	prices map[string]float64
	Now    func() time.Time
}

func NewFake(id domain.ProviderID, class domain.AssetClass, prices map[string]float64) *Fake {
	normalized := make(map[string]float64, len(prices))
	for k, v := range prices {
		normalized[domain.CacheKey(k)] = v
	}
	return &Fake{id: id, class: class, prices: normalized}
}

func (f *Fake) ID() domain.ProviderID { return f.id }

func (f *Fake) Fetch(_ context.Context, symbol string) (domain.PriceRecord, error) {
	symbol, err := checkSymbol(symbol)
	if err != nil {
		return domain.PriceRecord{}, err
	}
	price, ok := f.prices[domain.CacheKey(symbol)]
	if !ok {
		price = syntheticPrice(domain.CacheKey(symbol))
	}
	return domain.NewPriceRecord(f.class.DisplaySymbol(symbol), price, string(f.id), nowFn(f.Now))
}

// syntheticPrice maps a symbol to a stable price in [1, 1000).
func syntheticPrice(key string) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return 1 + float64(h.Sum32()%99900)/100
}
