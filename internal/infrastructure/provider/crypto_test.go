package provider_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"priceoracle-service/internal/domain"
	"priceoracle-service/internal/infrastructure/provider"
)

func TestBinancePair(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"btc":      "BTCUSDT",
		"BTC-USD":  "BTCUSDT",
		"eth/eur":  "ETHUSDT",
		"BTCUSDC":  "BTCUSDT",
		"solusdt":  "SOLUSDT",
		"USDC":     "USDCUSDT",
		" sui ":    "SUIUSDT",
		"doge_usd": "DOGEUSDT",
		"tusd":     "TUSDUSDT",
		"busd":     "BUSDUSDT",
		"fdusd":    "FDUSDUSDT",
		"susd":     "SUSDUSDT",
		"usdt":     "USDTUSDT",
	}
	for in, want := range cases {
		require.Equal(t, want, provider.BinancePair(in), in)
	}
}

func TestBinance_Ticker24h(t *testing.T) {
	rec := newRecorder(map[string]func(*http.Request) (int, string){
		"/api/v3/ticker/24hr": reply(200, `{"symbol":"BTCUSDT","lastPrice":"65000.50","priceChange":"-120.5","priceChangePercent":"-0.18","volume":"1234.5"}`),
	})
	p := &provider.Binance{BaseURL: "https://binance.test", Client: rec.client(1), Now: now}

	got, err := p.Fetch(context.Background(), "BTC")
	require.NoError(t, err)
	require.Equal(t, "btc", got.Symbol)
	require.Equal(t, 65000.50, got.Price)
	require.Equal(t, "binance", got.Source)
	require.Equal(t, fixedNow, got.Timestamp)
	require.InDelta(t, -120.5, *got.ChangeAbsolute, 1e-9)
	require.InDelta(t, -0.18, *got.ChangePercent, 1e-9)
	require.InDelta(t, 1234.5, *got.Volume, 1e-9)
	require.Equal(t, "BTCUSDT", rec.last().URL.Query().Get("symbol"))
}

func TestBinance_FallsBackToPriceEndpoint(t *testing.T) {
	rec := newRecorder(map[string]func(*http.Request) (int, string){
		"/api/v3/ticker/24hr":  reply(500, `oops`),
		"/api/v3/ticker/price": reply(200, `{"symbol":"ETHUSDT","price":"3000.1"}`),
	})
	p := &provider.Binance{BaseURL: "https://binance.test", Client: rec.client(1), Now: now}

	got, err := p.Fetch(context.Background(), "eth")
	require.NoError(t, err)
	require.Equal(t, 3000.1, got.Price)
	require.Nil(t, got.ChangePercent)
	require.Equal(t, []string{"/api/v3/ticker/24hr", "/api/v3/ticker/price"}, rec.paths())
}

func TestBinance_UnparsablePriceIsError(t *testing.T) {
	rec := newRecorder(map[string]func(*http.Request) (int, string){
		"/api/v3/ticker/24hr":  reply(200, `{"lastPrice":"NaN"}`),
		"/api/v3/ticker/price": reply(200, `{"price":"-1"}`),
	})
	p := &provider.Binance{BaseURL: "https://binance.test", Client: rec.client(1), Now: now}

	_, err := p.Fetch(context.Background(), "btc")
	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
}

func TestBinance_BadOptionalFieldsDegrade(t *testing.T) {
	rec := newRecorder(map[string]func(*http.Request) (int, string){
		"/api/v3/ticker/24hr": reply(200, `{"lastPrice":"1.5","priceChange":"n/a","priceChangePercent":"","volume":"abc"}`),
	})
	p := &provider.Binance{BaseURL: "https://binance.test", Client: rec.client(1), Now: now}

	got, err := p.Fetch(context.Background(), "ada")
	require.NoError(t, err)
	require.Equal(t, 1.5, got.Price)
	require.Nil(t, got.ChangeAbsolute)
	require.Nil(t, got.ChangePercent)
	require.Nil(t, got.Volume)
}

func TestFetch_EmptySymbolIssuesNoRequest(t *testing.T) {
	rec := newRecorder(nil)
	c := rec.client(1)
	providers := []interface {
		Fetch(context.Context, string) (domain.PriceRecord, error)
	}{
		&provider.Binance{Client: c},
		&provider.Coinbase{Client: c},
		&provider.CoinGecko{Client: c},
		&provider.AlphaVantage{Client: c, APIKey: "k"},
		&provider.Finnhub{Client: c, APIKey: "k"},
		&provider.Yahoo{Client: c},
	}
	for _, p := range providers {
		_, err := p.Fetch(context.Background(), "  ")
		require.ErrorIs(t, err, domain.ErrEmptySymbol)
	}
	require.Empty(t, rec.paths())
}

func TestCoinbase_TickerWithStats(t *testing.T) {
	rec := newRecorder(map[string]func(*http.Request) (int, string){
		"/products/BTC-USD/ticker": reply(200, `{"price":"110","volume":"50"}`),
		"/products/BTC-USD/stats":  reply(200, `{"open":"100","volume":"55"}`),
	})
	p := &provider.Coinbase{ExchangeURL: "https://ex.test", SpotURL: "https://spot.test", APIKey: "key", VsCurrency: "usd", Client: rec.client(1), Now: now}

	got, err := p.Fetch(context.Background(), "BTC")
	require.NoError(t, err)
	require.Equal(t, "btc", got.Symbol)
	require.Equal(t, "coinbase", got.Source)
	require.Equal(t, 110.0, got.Price)
	require.InDelta(t, 10.0, *got.ChangeAbsolute, 1e-9)
	require.InDelta(t, 10.0, *got.ChangePercent, 1e-9)
	require.InDelta(t, 50.0, *got.Volume, 1e-9)
	require.Equal(t, "key", rec.last().Header.Get("CB-ACCESS-KEY"))
}

func TestCoinbase_StatsFailureDegrades(t *testing.T) {
	rec := newRecorder(map[string]func(*http.Request) (int, string){
		"/products/ETH-EUR/ticker": reply(200, `{"price":"2000"}`),
	})
	p := &provider.Coinbase{ExchangeURL: "https://ex.test", VsCurrency: "eur", Client: rec.client(1), Now: now}

	got, err := p.Fetch(context.Background(), "eth")
	require.NoError(t, err)
	require.Equal(t, 2000.0, got.Price)
	require.Nil(t, got.ChangePercent)
}

func TestCoinbase_SpotFallback(t *testing.T) {
	rec := newRecorder(map[string]func(*http.Request) (int, string){
		"/v2/prices/SOL-USD/spot": reply(200, `{"data":{"base":"SOL","currency":"USD","amount":"150.25"}}`),
	})
	p := &provider.Coinbase{ExchangeURL: "https://ex.test", SpotURL: "https://spot.test", Client: rec.client(1), Now: now}

	got, err := p.Fetch(context.Background(), "sol-usd")
	require.NoError(t, err)
	require.Equal(t, 150.25, got.Price)
	require.Equal(t, "coinbase", got.Source)
	require.Equal(t, []string{"/products/SOL-USD/ticker", "/v2/prices/SOL-USD/spot"}, rec.paths())
}

func TestCoinGecko_BatchAndAliases(t *testing.T) {
	rec := newRecorder(map[string]func(*http.Request) (int, string){
		"/api/v3/simple/price": reply(200, `{
			"bitcoin": {"usd": 65000, "usd_24h_change": 2.5, "usd_24h_vol": 1000, "usd_market_cap": 9000},
			"ethereum": {"usd": null}
		}`),
	})
	p := &provider.CoinGecko{BaseURL: "https://cg.test", APIKey: "demo", Client: rec.client(1), Now: now}

	got, err := p.FetchBatch(context.Background(), []string{"BTC", "eth", "nosuchcoin"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "btc", got[0].Symbol)
	require.Equal(t, 65000.0, got[0].Price)
	require.Equal(t, "coingecko", got[0].Source)
	require.InDelta(t, 2.5, *got[0].ChangePercent, 1e-9)
	require.InDelta(t, 9000, *got[0].MarketCap, 1e-9)

	q := rec.last().URL.Query()
	require.Equal(t, "bitcoin,ethereum,nosuchcoin", q.Get("ids"))
	require.Equal(t, "usd", q.Get("vs_currencies"))
	require.Equal(t, "demo", rec.last().Header.Get("x-cg-demo-api-key"))
}

func TestCoinGecko_MissingIDIsFailureNotZero(t *testing.T) {
	rec := newRecorder(map[string]func(*http.Request) (int, string){
		"/api/v3/simple/price": reply(200, `{}`),
	})
	p := &provider.CoinGecko{BaseURL: "https://cg.test", Client: rec.client(1), Now: now}

	_, err := p.Fetch(context.Background(), "doesnotexist")
	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
}

func TestCoinGecko_BadOptionalFieldsDegrade(t *testing.T) {
	rec := newRecorder(map[string]func(*http.Request) (int, string){
		"/api/v3/simple/price": reply(200, `{"bitcoin": {"usd": 65000, "usd_24h_change": "n/a", "usd_24h_vol": {}, "usd_market_cap": "12.5"}}`),
	})
	p := &provider.CoinGecko{BaseURL: "https://cg.test", Client: rec.client(1), Now: now}

	got, err := p.Fetch(context.Background(), "btc")
	require.NoError(t, err)
	require.Equal(t, 65000.0, got.Price)
	require.Nil(t, got.ChangePercent)
	require.Nil(t, got.ChangeAbsolute)
	require.Nil(t, got.Volume)
	require.InDelta(t, 12.5, *got.MarketCap, 1e-9)
}

func TestCoinGecko_BadEntryOnlyDropsThatCoin(t *testing.T) {
	rec := newRecorder(map[string]func(*http.Request) (int, string){
		"/api/v3/simple/price": reply(200, `{
			"bitcoin": {"usd": 65000},
			"ethereum": {"usd": "oops"},
			"solana": "not an object"
		}`),
	})
	p := &provider.CoinGecko{BaseURL: "https://cg.test", Client: rec.client(1), Now: now}

	got, err := p.FetchBatch(context.Background(), []string{"btc", "eth", "sol"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "btc", got[0].Symbol)
	require.Equal(t, 65000.0, got[0].Price)

	_, err = p.Fetch(context.Background(), "eth")
	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
}

func TestCoinGeckoID(t *testing.T) {
	t.Parallel()
	require.Equal(t, "bitcoin", provider.CoinGeckoID("BTC"))
	require.Equal(t, "bitcoin", provider.CoinGeckoID("bitcoin"))
	require.Equal(t, "ethereum", provider.CoinGeckoID("eth-usd"))
	require.Equal(t, "pepe", provider.CoinGeckoID("PEPE"))
}
