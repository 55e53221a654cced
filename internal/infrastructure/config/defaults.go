package config

import "time"

const (
	DefaultConfigFile      = "config.json"
	DefaultHTTPPort        = 3000
	DefaultShutdownTimeout = 10 * time.Second
	DefaultRequestTimeout  = 30 * time.Second
	DefaultMaxRetries      = 3
	DefaultRetryDelay      = time.Second
	DefaultUpdateInterval  = 30 * time.Second
	DefaultVsCurrency      = "usd"
	DefaultTokenTTL        = 30 * 24 * time.Hour
	DefaultIdempotencyTTL  = 60 * time.Second
	DefaultPGMaxConns      = 5
	DefaultPGMinConns      = 1
)

var (
	DefaultCryptoSymbols = []string{"btc", "eth", "sol", "sui", "bnb", "xrp", "usdc"}
	DefaultStockSymbols  = []string{"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "TSLA", "META", "JPM", "V", "ORCL"}
)
