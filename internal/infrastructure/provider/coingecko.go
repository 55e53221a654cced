package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"priceoracle-service/internal/application"
	"priceoracle-service/internal/domain"
	"priceoracle-service/internal/infrastructure/httpx"
)

const (
	CoinGeckoBaseURL   = "https://api.coingecko.com"
	coinGeckoSimple    = "/api/v3/simple/price"
	coinGeckoKeyHeader = "x-cg-demo-api-key"
)

var coinGeckoIDs = map[string]string{
	"btc":   "bitcoin",
	"eth":   "ethereum",
	"sol":   "solana",
	"sui":   "sui",
	"bnb":   "binancecoin",
	"xrp":   "ripple",
	"usdt":  "tether",
	"usdc":  "usd-coin",
	"ada":   "cardano",
	"doge":  "dogecoin",
	"dot":   "polkadot",
	"trx":   "tron",
	"avax":  "avalanche-2",
	"link":  "chainlink",
	"ltc":   "litecoin",
	"matic": "matic-network",
	"ton":   "the-open-network",
}

type CoinGecko struct {
	BaseURL    string
	APIKey     string
	VsCurrency string
	Client     *httpx.Client
	Now        func() time.Time
	Log        *zap.Logger
}

var _ application.PriceProvider = (*CoinGecko)(nil)

// coinGeckoSimpleResp maps coin id to fields such as "usd",
// "usd_24h_change", "usd_24h_vol" and "usd_market_cap". Each coin is
// decoded on its own so one malformed entry only loses that coin.
type coinGeckoSimpleResp map[string]json.RawMessage

func (p *CoinGecko) ID() domain.ProviderID { return domain.ProviderCoinGecko }

// CoinGeckoID resolves a ticker to a coin id. Unknown symbols are assumed
// to already be ids.
func CoinGeckoID(symbol string) string {
	s := domain.CacheKey(symbol)
	if i := strings.IndexAny(s, "-/_"); i > 0 {
		if id, ok := coinGeckoIDs[s[:i]]; ok {
			return id
		}
	}
	if id, ok := coinGeckoIDs[s]; ok {
		return id
	}
	return s
}

func (p *CoinGecko) vs() string {
	if p.VsCurrency == "" {
		return "usd"
	}
	return strings.ToLower(p.VsCurrency)
}

func (p *CoinGecko) Fetch(ctx context.Context, symbol string) (domain.PriceRecord, error) {
	symbol, err := checkSymbol(symbol)
	if err != nil {
		return domain.PriceRecord{}, err
	}
	recs, err := p.FetchBatch(ctx, []string{symbol})
	if err != nil {
		return domain.PriceRecord{}, err
	}
	if len(recs) == 0 {
		return domain.PriceRecord{}, &domain.APIError{Provider: string(p.ID()), Msg: fmt.Sprintf("no %s price for %s", p.vs(), CoinGeckoID(symbol))}
	}
	return recs[0], nil
}

// FetchBatch prices many symbols with one request. Symbols missing from
// the response, or with an invalid price, are left out of the result.
func (p *CoinGecko) FetchBatch(ctx context.Context, symbols []string) ([]domain.PriceRecord, error) {
	idSet := map[string]struct{}{}
	var wanted []string
	for _, s := range symbols {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		wanted = append(wanted, s)
		idSet[CoinGeckoID(s)] = struct{}{}
	}
	if len(wanted) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	base := p.BaseURL
	if base == "" {
		base = CoinGeckoBaseURL
	}
	vs := p.vs()
	u, err := buildURL(base, coinGeckoSimple, url.Values{
		"ids":                 {strings.Join(ids, ",")},
		"vs_currencies":       {vs},
		"include_24hr_change": {"true"},
		"include_24hr_vol":    {"true"},
		"include_market_cap":  {"true"},
	})
	if err != nil {
		return nil, fmt.Errorf("coingecko: %w", err)
	}
	hdr := http.Header{}
	if p.APIKey != "" {
		hdr.Set(coinGeckoKeyHeader, p.APIKey)
	}
	log := logOrNop(p.Log).With(zap.String("provider", string(p.ID())))

	return httpx.FetchJSON(ctx, p.Client, httpx.Request{Provider: p.ID(), URL: u, Header: hdr}, func(body coinGeckoSimpleResp) ([]domain.PriceRecord, error) {
		now := nowFn(p.Now)
		out := make([]domain.PriceRecord, 0, len(wanted))
		for _, s := range wanted {
			raw, ok := body[CoinGeckoID(s)]
			if !ok {
				log.Debug("coingecko.id_missing", zap.String("symbol", s))
				continue
			}
			var fields map[string]*looseFloat
			if err := json.Unmarshal(raw, &fields); err != nil {
				log.Debug("coingecko.invalid_entry", zap.String("symbol", s), zap.Error(err))
				continue
			}
			price, err := requirePrice(p.ID(), vs, fields[vs])
			if err != nil {
				log.Debug("coingecko.invalid_price", zap.String("symbol", s), zap.Error(err))
				continue
			}
			rec, err := domain.NewPriceRecord(domain.AssetClassCrypto.DisplaySymbol(s), price, string(p.ID()), now)
			if err != nil {
				continue
			}
			rec.ChangePercent = optional(fields[vs+"_24h_change"])
			rec.Volume = optional(fields[vs+"_24h_vol"])
			rec.MarketCap = optional(fields[vs+"_market_cap"])
			if rec.ChangePercent != nil {
				// abs change relative to the price 24h ago
				prev := price / (1 + *rec.ChangePercent/100)
				rec.ChangeAbsolute = domain.Float(price - prev)
			}
			out = append(out, rec)
		}
		return out, nil
	})
}
