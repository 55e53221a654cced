package domain

import (
	"fmt"
	"math"
	"time"
)

type PriceRecord struct {
	Symbol         string    `json:"symbol"`
	Price          float64   `json:"price"`
	ChangeAbsolute *float64  `json:"change_24h,omitempty"`
	ChangePercent  *float64  `json:"change_percent_24h,omitempty"`
	Volume         *float64  `json:"volume_24h,omitempty"`
	MarketCap      *float64  `json:"market_cap,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	Source         string    `json:"source"`
}

// NewPriceRecord rejects NaN, infinite and negative prices.
func NewPriceRecord(symbol string, price float64, source string, at time.Time) (PriceRecord, error) {
	if symbol == "" {
		return PriceRecord{}, ErrEmptySymbol
	}
	if err := CheckPrice(price); err != nil {
		return PriceRecord{}, err
	}
	return PriceRecord{
		Symbol:    symbol,
		Price:     price,
		Timestamp: at.UTC(),
		Source:    source,
	}, nil
}

func CheckPrice(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidPrice, v)
	}
	return nil
}

// Float returns a pointer to v, or nil when v is not a finite number.
func Float(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
