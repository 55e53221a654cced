package domain

import (
	"sort"
	"time"
)

// PriceCache holds the latest record per lowercased symbol for one asset
// class. It is not safe for concurrent use; callers serialize access.
type PriceCache struct {
	records    map[string]PriceRecord
	lastUpdate time.Time
}

func NewPriceCache() *PriceCache {
	return &PriceCache{records: make(map[string]PriceRecord)}
}

// Put replaces any record stored under the same normalized symbol.
func (c *PriceCache) Put(r PriceRecord, at time.Time) {
	c.records[CacheKey(r.Symbol)] = r
	c.lastUpdate = at
}

func (c *PriceCache) Get(symbol string) (PriceRecord, bool) {
	r, ok := c.records[CacheKey(symbol)]
	return r, ok
}

func (c *PriceCache) Len() int { return len(c.records) }

func (c *PriceCache) LastUpdate() time.Time { return c.lastUpdate }

// All returns the cached records ordered by key.
func (c *PriceCache) All() []PriceRecord {
	keys := make([]string, 0, len(c.records))
	for k := range c.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]PriceRecord, 0, len(keys))
	for _, k := range keys {
		out = append(out, c.records[k])
	}
	return out
}

// AveragePrice is the arithmetic mean of cached prices; ok is false when
// the cache is empty.
func (c *PriceCache) AveragePrice() (avg float64, ok bool) {
	if len(c.records) == 0 {
		return 0, false
	}
	var sum float64
	for _, r := range c.records {
		sum += r.Price
	}
	return sum / float64(len(c.records)), true
}
