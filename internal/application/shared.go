package application

import (
	"context"
	"io"
	"sync"
	"time"

	"priceoracle-service/internal/domain"
)

// SharedOracle guards an Oracle with a readers-writer lock: updates take
// the write lock, cache reads the read lock.
type SharedOracle struct {
	mu     sync.RWMutex
	oracle *Oracle
}

func NewSharedOracle(o *Oracle) *SharedOracle {
	return &SharedOracle{oracle: o}
}

func (s *SharedOracle) Update(ctx context.Context, class domain.AssetClass) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.oracle.Update(ctx, class)
}

func (s *SharedOracle) UpdateAllPrices(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.oracle.UpdateAllPrices(ctx)
}

// GetPrice holds the read lock only for the cache lookup. A direct fetch
// on a miss runs unlocked so a slow provider cannot stall updates.
func (s *SharedOracle) GetPrice(ctx context.Context, class domain.AssetClass, symbol string) (domain.PriceRecord, error) {
	s.mu.RLock()
	rec, ok, err := s.oracle.cached(class, symbol)
	s.mu.RUnlock()
	if err != nil || ok {
		return rec, err
	}
	return s.oracle.fetchDirect(ctx, class, symbol)
}

func (s *SharedOracle) GetAllPrices(class domain.AssetClass) []domain.PriceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.oracle.GetAllPrices(class)
}

func (s *SharedOracle) GetSymbols(class domain.AssetClass) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.oracle.GetSymbols(class)
}

func (s *SharedOracle) Statistics() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.oracle.Statistics()
}

func (s *SharedOracle) LastUpdate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.oracle.LastUpdate()
}

func (s *SharedOracle) Chain(class domain.AssetClass) []domain.ProviderID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.oracle.Chain(class)
}

func (s *SharedOracle) FormatTable(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.oracle.FormatTable(w)
}
