package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"priceoracle-service/internal/application"
	"priceoracle-service/internal/domain"
	"priceoracle-service/internal/infrastructure/httpx"
)

const (
	CoinbaseExchangeURL = "https://api.exchange.coinbase.com"
	CoinbaseSpotURL     = "https://api.coinbase.com"
)

// Coinbase reads the exchange ticker and 24h stats, falling back to the
// retail spot price endpoint when the ticker is unavailable.
type Coinbase struct {
	ExchangeURL string
	SpotURL     string
	APIKey      string
	VsCurrency  string
	Client      *httpx.Client
	Now         func() time.Time
	Log         *zap.Logger
}

var _ application.PriceProvider = (*Coinbase)(nil)

type coinbaseTicker struct {
	Price  string `json:"price"`
	Volume string `json:"volume"`
}

type coinbaseStats struct {
	Open   string `json:"open"`
	Volume string `json:"volume"`
}

type coinbaseSpot struct {
	Data struct {
		Base     string `json:"base"`
		Currency string `json:"currency"`
		Amount   string `json:"amount"`
	} `json:"data"`
}

func (p *Coinbase) ID() domain.ProviderID { return domain.ProviderCoinbase }

// CoinbasePair keeps an explicit "BASE-QUOTE" pair and otherwise appends
// the configured quote currency.
func CoinbasePair(symbol, vs string) string {
	parts := strings.FieldsFunc(strings.ToUpper(strings.TrimSpace(symbol)), func(r rune) bool {
		return r == '-' || r == '/' || r == '_'
	})
	if len(parts) == 0 {
		return ""
	}
	if len(parts) >= 2 {
		return parts[0] + "-" + parts[1]
	}
	if vs == "" {
		vs = "usd"
	}
	return parts[0] + "-" + strings.ToUpper(vs)
}

func (p *Coinbase) Fetch(ctx context.Context, symbol string) (domain.PriceRecord, error) {
	symbol, err := checkSymbol(symbol)
	if err != nil {
		return domain.PriceRecord{}, err
	}
	pair := CoinbasePair(symbol, p.VsCurrency)
	log := logOrNop(p.Log).With(zap.String("provider", string(p.ID())), zap.String("symbol", symbol))

	rec, err := p.ticker(ctx, symbol, pair)
	if err == nil {
		p.addStats(ctx, &rec, pair, log)
		return rec, nil
	}
	log.Debug("coinbase.ticker_failed", zap.Error(err))

	rec, spotErr := p.spot(ctx, symbol, pair)
	if spotErr != nil {
		return domain.PriceRecord{}, fmt.Errorf("coinbase: %s: %w", pair, spotErr)
	}
	return rec, nil
}

func (p *Coinbase) header() http.Header {
	hdr := http.Header{}
	if p.APIKey != "" {
		hdr.Set("CB-ACCESS-KEY", p.APIKey)
	}
	return hdr
}

func (p *Coinbase) exchangeRequest(path string) (httpx.Request, error) {
	base := p.ExchangeURL
	if base == "" {
		base = CoinbaseExchangeURL
	}
	u, err := buildURL(base, path, nil)
	if err != nil {
		return httpx.Request{}, fmt.Errorf("coinbase: %w", err)
	}
	return httpx.Request{Provider: p.ID(), URL: u, Header: p.header()}, nil
}

func (p *Coinbase) ticker(ctx context.Context, symbol, pair string) (domain.PriceRecord, error) {
	req, err := p.exchangeRequest("/products/" + pair + "/ticker")
	if err != nil {
		return domain.PriceRecord{}, err
	}
	return httpx.FetchJSON(ctx, p.Client, req, func(t coinbaseTicker) (domain.PriceRecord, error) {
		price, err := parsePrice(p.ID(), "price", t.Price)
		if err != nil {
			return domain.PriceRecord{}, err
		}
		rec, err := domain.NewPriceRecord(domain.AssetClassCrypto.DisplaySymbol(symbol), price, string(p.ID()), nowFn(p.Now))
		if err != nil {
			return domain.PriceRecord{}, err
		}
		rec.Volume = parseOptional(t.Volume)
		return rec, nil
	})
}

// addStats fills change fields from the 24h open. Failures leave the
// record price-only.
func (p *Coinbase) addStats(ctx context.Context, rec *domain.PriceRecord, pair string, log *zap.Logger) {
	req, err := p.exchangeRequest("/products/" + pair + "/stats")
	if err != nil {
		return
	}
	stats, err := httpx.FetchJSON(ctx, p.Client, req, func(s coinbaseStats) (coinbaseStats, error) { return s, nil })
	if err != nil {
		log.Debug("coinbase.stats_failed", zap.Error(err))
		return
	}
	rec.ChangeAbsolute, rec.ChangePercent = changeFrom(rec.Price, parseOptional(stats.Open))
	if rec.Volume == nil {
		rec.Volume = parseOptional(stats.Volume)
	}
}

func (p *Coinbase) spot(ctx context.Context, symbol, pair string) (domain.PriceRecord, error) {
	base := p.SpotURL
	if base == "" {
		base = CoinbaseSpotURL
	}
	u, err := buildURL(base, "/v2/prices/"+pair+"/spot", nil)
	if err != nil {
		return domain.PriceRecord{}, err
	}
	req := httpx.Request{Provider: p.ID(), URL: u, Header: p.header()}
	return httpx.FetchJSON(ctx, p.Client, req, func(s coinbaseSpot) (domain.PriceRecord, error) {
		price, err := parsePrice(p.ID(), "amount", s.Data.Amount)
		if err != nil {
			return domain.PriceRecord{}, err
		}
		return domain.NewPriceRecord(domain.AssetClassCrypto.DisplaySymbol(symbol), price, string(p.ID()), nowFn(p.Now))
	})
}
