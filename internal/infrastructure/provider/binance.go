package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"priceoracle-service/internal/application"
	"priceoracle-service/internal/domain"
	"priceoracle-service/internal/infrastructure/httpx"
)

const (
	BinanceBaseURL     = "https://api.binance.com"
	binanceTicker24h   = "/api/v3/ticker/24hr"
	binanceTickerPrice = "/api/v3/ticker/price"
	binanceQuote       = "USDT"
)

// quote assets stripped from a compact symbol such as "BTCUSD".
var binanceKnownQuotes = []string{"USDT", "USDC", "BUSD", "FDUSD", "TUSD", "USD"}

type Binance struct {
	BaseURL string
	APIKey  string
	Client  *httpx.Client
	Now     func() time.Time
	Log     *zap.Logger
}

var _ application.PriceProvider = (*Binance)(nil)

type binanceTicker struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChange        string `json:"priceChange"`
	PriceChangePercent string `json:"priceChangePercent"`
	Volume             string `json:"volume"`
}

type binancePrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

func (p *Binance) ID() domain.ProviderID { return domain.ProviderBinance }

// BinancePair maps a configured symbol onto a USDT pair: "btc", "BTC-USD",
// "btc/eur" and "BTCUSDC" all become "BTCUSDT". Stablecoins such as "tusd"
// keep their full name as the base.
func BinancePair(symbol string) string {
	parts := strings.FieldsFunc(strings.ToUpper(strings.TrimSpace(symbol)), func(r rune) bool {
		return r == '-' || r == '/' || r == '_' || r == ' '
	})
	if len(parts) == 0 {
		return ""
	}
	base := parts[0]
	if len(parts) == 1 && !isBinanceQuote(base) {
		for _, q := range binanceKnownQuotes {
			// a quote suffix only counts when at least two base letters remain
			if len(base) >= len(q)+2 && strings.HasSuffix(base, q) {
				base = strings.TrimSuffix(base, q)
				break
			}
		}
	}
	return base + binanceQuote
}

func isBinanceQuote(s string) bool {
	for _, q := range binanceKnownQuotes {
		if s == q {
			return true
		}
	}
	return false
}

func (p *Binance) Fetch(ctx context.Context, symbol string) (domain.PriceRecord, error) {
	symbol, err := checkSymbol(symbol)
	if err != nil {
		return domain.PriceRecord{}, err
	}
	pair := BinancePair(symbol)
	log := logOrNop(p.Log).With(zap.String("provider", string(p.ID())), zap.String("symbol", symbol))
	if strings.Contains(symbol, "-") {
		log.Warn("binance.pair_normalized", zap.String("pair", pair))
	}

	rec, err := p.ticker24h(ctx, symbol, pair)
	if err == nil {
		return rec, nil
	}
	log.Debug("binance.ticker24h_failed", zap.Error(err))

	rec, priceErr := p.tickerPrice(ctx, symbol, pair)
	if priceErr != nil {
		return domain.PriceRecord{}, fmt.Errorf("binance: %s: %w", pair, priceErr)
	}
	return rec, nil
}

func (p *Binance) request(path, pair string) (httpx.Request, error) {
	base := p.BaseURL
	if base == "" {
		base = BinanceBaseURL
	}
	u, err := buildURL(base, path, url.Values{"symbol": {pair}})
	if err != nil {
		return httpx.Request{}, fmt.Errorf("binance: %w", err)
	}
	hdr := http.Header{}
	if p.APIKey != "" {
		hdr.Set("X-MBX-APIKEY", p.APIKey)
	}
	return httpx.Request{Provider: p.ID(), URL: u, Header: hdr}, nil
}

func (p *Binance) ticker24h(ctx context.Context, symbol, pair string) (domain.PriceRecord, error) {
	req, err := p.request(binanceTicker24h, pair)
	if err != nil {
		return domain.PriceRecord{}, err
	}
	return httpx.FetchJSON(ctx, p.Client, req, func(t binanceTicker) (domain.PriceRecord, error) {
		price, err := parsePrice(p.ID(), "lastPrice", t.LastPrice)
		if err != nil {
			return domain.PriceRecord{}, err
		}
		rec, err := domain.NewPriceRecord(domain.AssetClassCrypto.DisplaySymbol(symbol), price, string(p.ID()), nowFn(p.Now))
		if err != nil {
			return domain.PriceRecord{}, err
		}
		rec.ChangeAbsolute = parseOptional(t.PriceChange)
		rec.ChangePercent = parseOptional(t.PriceChangePercent)
		rec.Volume = parseOptional(t.Volume)
		return rec, nil
	})
}

func (p *Binance) tickerPrice(ctx context.Context, symbol, pair string) (domain.PriceRecord, error) {
	req, err := p.request(binanceTickerPrice, pair)
	if err != nil {
		return domain.PriceRecord{}, err
	}
	return httpx.FetchJSON(ctx, p.Client, req, func(t binancePrice) (domain.PriceRecord, error) {
		price, err := parsePrice(p.ID(), "price", t.Price)
		if err != nil {
			return domain.PriceRecord{}, err
		}
		return domain.NewPriceRecord(domain.AssetClassCrypto.DisplaySymbol(symbol), price, string(p.ID()), nowFn(p.Now))
	})
}
