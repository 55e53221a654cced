package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"priceoracle-service/internal/domain"
	defaults "priceoracle-service/internal/infrastructure/config"
)

type Config struct {
	Crypto  CryptoConfig  `mapstructure:"crypto" json:"crypto"`
	Stocks  StocksConfig  `mapstructure:"stocks" json:"stocks"`
	General GeneralConfig `mapstructure:"general" json:"general"`
	Server  ServerConfig  `mapstructure:"server" json:"server"`

	// Runtime is read from the environment only and never persisted.
	Runtime Runtime `mapstructure:"-" json:"-"`
}

type CryptoConfig struct {
	Symbols           []string `mapstructure:"symbols" json:"symbols"`
	DefaultVsCurrency string   `mapstructure:"default_vs_currency" json:"default_vs_currency"`
	CoinGeckoAPIKey   string   `mapstructure:"coingecko_api_key" json:"coingecko_api_key"`
	CoinbaseAPIKey    string   `mapstructure:"coinbase_api_key" json:"coinbase_api_key"`
	BinanceAPIKey     string   `mapstructure:"binance_api_key" json:"binance_api_key"`
}

type StocksConfig struct {
	Symbols            []string `mapstructure:"symbols" json:"symbols"`
	AlphaVantageAPIKey string   `mapstructure:"alpha_vantage_api_key" json:"alpha_vantage_api_key"`
	FinnhubAPIKey      string   `mapstructure:"finnhub_api_key" json:"finnhub_api_key"`
}

type GeneralConfig struct {
	RequestTimeoutSec int  `mapstructure:"request_timeout_sec" json:"request_timeout_sec"`
	MaxRetries        int  `mapstructure:"max_retries" json:"max_retries"`
	RetryDelayMs      int  `mapstructure:"retry_delay_ms" json:"retry_delay_ms"`
	UpdateIntervalSec int  `mapstructure:"update_interval_sec" json:"update_interval_sec"`
	MaxConcurrency    int  `mapstructure:"max_concurrency" json:"max_concurrency"`
	CircuitBreaker    bool `mapstructure:"circuit_breaker" json:"circuit_breaker"`
}

type ServerConfig struct {
	Port          int `mapstructure:"port" json:"port"`
	TokenTTLHours int `mapstructure:"token_ttl_hours" json:"token_ttl_hours"`
}

type Runtime struct {
	Env                string
	LogLevel           string
	DatabaseURL        string
	Provider           string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	IdempotencyBackend string
	IdempotencyTTL     time.Duration
}

func Default() Config {
	return Config{
		Crypto: CryptoConfig{
			Symbols:           append([]string(nil), defaults.DefaultCryptoSymbols...),
			DefaultVsCurrency: defaults.DefaultVsCurrency,
		},
		Stocks: StocksConfig{
			Symbols: append([]string(nil), defaults.DefaultStockSymbols...),
		},
		General: GeneralConfig{
			RequestTimeoutSec: int(defaults.DefaultRequestTimeout / time.Second),
			MaxRetries:        defaults.DefaultMaxRetries,
			RetryDelayMs:      int(defaults.DefaultRetryDelay / time.Millisecond),
			UpdateIntervalSec: int(defaults.DefaultUpdateInterval / time.Second),
		},
		Server: ServerConfig{
			Port:          defaults.DefaultHTTPPort,
			TokenTTLHours: int(defaults.DefaultTokenTTL / time.Hour),
		},
		Runtime: loadRuntime(),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiDef(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func loadRuntime() Runtime {
	return Runtime{
		Env:                getEnv("ENV", "local"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		Provider:           getEnv("PROVIDER", "live"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            atoiDef(getEnv("REDIS_DB", "0"), 0),
		IdempotencyBackend: getEnv("IDEMPOTENCY_BACKEND", "noop"),
		IdempotencyTTL:     time.Duration(atoiDef(getEnv("IDEMPOTENCY_TTL_MS", "60000"), 60000)) * time.Millisecond,
	}
}

var envKeys = map[string]string{
	"crypto.coingecko_api_key":     "COINGECKO_API_KEY",
	"crypto.coinbase_api_key":      "COINBASE_API_KEY",
	"crypto.binance_api_key":       "BINANCE_API_KEY",
	"stocks.alpha_vantage_api_key": "ALPHA_VANTAGE_API_KEY",
	"stocks.finnhub_api_key":       "FINNHUB_API_KEY",
	"server.port":                  "PORT",
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("crypto.symbols", d.Crypto.Symbols)
	v.SetDefault("crypto.default_vs_currency", d.Crypto.DefaultVsCurrency)
	v.SetDefault("crypto.coingecko_api_key", d.Crypto.CoinGeckoAPIKey)
	v.SetDefault("crypto.coinbase_api_key", d.Crypto.CoinbaseAPIKey)
	v.SetDefault("crypto.binance_api_key", d.Crypto.BinanceAPIKey)
	v.SetDefault("stocks.symbols", d.Stocks.Symbols)
	v.SetDefault("stocks.alpha_vantage_api_key", d.Stocks.AlphaVantageAPIKey)
	v.SetDefault("stocks.finnhub_api_key", d.Stocks.FinnhubAPIKey)
	v.SetDefault("general.request_timeout_sec", d.General.RequestTimeoutSec)
	v.SetDefault("general.max_retries", d.General.MaxRetries)
	v.SetDefault("general.retry_delay_ms", d.General.RetryDelayMs)
	v.SetDefault("general.update_interval_sec", d.General.UpdateIntervalSec)
	v.SetDefault("general.max_concurrency", d.General.MaxConcurrency)
	v.SetDefault("general.circuit_breaker", d.General.CircuitBreaker)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.token_ttl_hours", d.Server.TokenTTLHours)
}

// Load reads the JSON config file at path, applying defaults for absent
// keys and environment overrides for credentials and port. A missing file
// is not an error: the defaults are written to path and used.
func Load(path string) (Config, error) {
	if path == "" {
		path = getEnv("CONFIG_FILE", defaults.DefaultConfigFile)
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	setDefaults(v, Default())

	fi, err := os.Stat(path)
	switch {
	case err == nil && fi.IsDir():
		return Config{}, fmt.Errorf("%w: %s is a directory", domain.ErrConfig, path)
	case errors.Is(err, fs.ErrNotExist):
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return Config{}, fmt.Errorf("%w: create config dir: %v", domain.ErrConfig, err)
			}
		}
		if err := v.WriteConfigAs(path); err != nil {
			return Config{}, fmt.Errorf("%w: persist defaults: %v", domain.ErrConfig, err)
		}
	case err != nil:
		return Config{}, fmt.Errorf("%w: stat %s: %v", domain.ErrConfig, path, err)
	default:
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("%w: read %s: %v", domain.ErrConfig, path, err)
		}
	}

	// Bound after persisting so credentials from the environment stay out of the file.
	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("%w: bind %s: %v", domain.ErrConfig, env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: decode: %v", domain.ErrConfig, err)
	}
	cfg.Runtime = loadRuntime()
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	if c.General.MaxRetries < 1 {
		c.General.MaxRetries = 1
	}
	if c.Crypto.DefaultVsCurrency == "" {
		c.Crypto.DefaultVsCurrency = defaults.DefaultVsCurrency
	}
	if c.General.UpdateIntervalSec <= 0 {
		c.General.UpdateIntervalSec = int(defaults.DefaultUpdateInterval / time.Second)
	}
}

// Validate reports an ErrConfig when no symbols are configured or the
// request timeout is not positive.
func (c Config) Validate() error {
	if len(c.Crypto.Symbols) == 0 && len(c.Stocks.Symbols) == 0 {
		return fmt.Errorf("%w: no crypto or stock symbols configured", domain.ErrConfig)
	}
	if c.General.RequestTimeoutSec <= 0 {
		return fmt.Errorf("%w: request_timeout_sec must be > 0", domain.ErrConfig)
	}
	return nil
}

// Available reports whether a provider can be used with this config.
func (c Config) Available(id domain.ProviderID) bool {
	switch id {
	case domain.ProviderCoinbase:
		return c.Crypto.CoinbaseAPIKey != ""
	case domain.ProviderAlphaVantage:
		return c.Stocks.AlphaVantageAPIKey != ""
	case domain.ProviderFinnhub:
		return c.Stocks.FinnhubAPIKey != ""
	case domain.ProviderBinance, domain.ProviderCoinGecko, domain.ProviderYahoo:
		return true
	}
	return false
}

func (c Config) Symbols(class domain.AssetClass) []string {
	switch class {
	case domain.AssetClassCrypto:
		return append([]string(nil), c.Crypto.Symbols...)
	case domain.AssetClassStock:
		return append([]string(nil), c.Stocks.Symbols...)
	}
	return nil
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.General.RequestTimeoutSec) * time.Second
}

func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.General.RetryDelayMs) * time.Millisecond
}

func (c Config) UpdateInterval() time.Duration {
	return time.Duration(c.General.UpdateIntervalSec) * time.Second
}

func (c Config) TokenTTL() time.Duration {
	if c.Server.TokenTTLHours <= 0 {
		return defaults.DefaultTokenTTL
	}
	return time.Duration(c.Server.TokenTTLHours) * time.Hour
}

func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Server.Port)
}
