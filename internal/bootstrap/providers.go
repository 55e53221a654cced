package bootstrap

import (
	"context"
	"fmt"

	"priceoracle-service/internal/application"
	"priceoracle-service/internal/config"
	"priceoracle-service/internal/domain"
	"priceoracle-service/internal/infrastructure/httpx"
	"priceoracle-service/internal/infrastructure/logx"
	"priceoracle-service/internal/infrastructure/metrics"
	"priceoracle-service/internal/infrastructure/pg"
	"priceoracle-service/internal/infrastructure/provider"
	redisstore "priceoracle-service/internal/infrastructure/redis"

	"go.uber.org/zap"
)

func ProvideLogger() *zap.Logger { return logx.L() }

// ProvideDB connects and migrates when DATABASE_URL is set. A nil DB means
// the service runs without accounts.
func ProvideDB(ctx context.Context, log *zap.Logger, cfg config.Config) (*pg.DB, func(), error) {
	if cfg.Runtime.DatabaseURL == "" {
		log.Info("DATABASE_URL not set; user accounts disabled")
		return nil, func() {}, nil
	}
	db, err := pg.Connect(ctx, cfg.Runtime.DatabaseURL)
	if err != nil {
		return nil, func() {}, err
	}
	if err := pg.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, func() {}, err
	}
	cleanup := func() {
		log.Info("closing pg")
		db.Close()
	}
	return db, cleanup, nil
}

func ProvideUserService(db *pg.DB, cfg config.Config) *application.UserService {
	if db == nil {
		return nil
	}
	return application.NewUserService(pg.NewUserRepo(db), pg.NewTokenRepo(db),
		application.WithUnitOfWork(&pg.UnitOfWork{Pool: db.Pool}),
		application.WithTokenTTL(cfg.TokenTTL()),
	)
}

// ProvideIdempotency picks the store named by IDEMPOTENCY_BACKEND: "redis",
// "memory", or anything else for a store that accepts every key.
func ProvideIdempotency(ctx context.Context, log *zap.Logger, cfg config.Config) (application.IdempotencyStore, func(), error) {
	rt := cfg.Runtime
	switch rt.IdempotencyBackend {
	case "redis":
	case "memory":
		return application.NewMemoryIdempotency(rt.IdempotencyTTL, nil), func() {}, nil
	default:
		return application.NoopIdempotency{}, func() {}, nil
	}
	rdb, err := redisstore.Connect(ctx, rt.RedisAddr, rt.RedisPassword, rt.RedisDB)
	if err != nil {
		return nil, func() {}, fmt.Errorf("redis: %w", err)
	}
	cleanup := func() {
		log.Info("closing redis")
		_ = rdb.Close()
	}
	return redisstore.New(rdb, rt.IdempotencyTTL), cleanup, nil
}

func ProvideHTTPClient(log *zap.Logger, cfg config.Config) *httpx.Client {
	r := httpx.NewRetrier(cfg.General.MaxRetries, cfg.RetryDelay(), log)
	return httpx.New(cfg.RequestTimeout(), r)
}

// ProvidePriceProviders builds every known provider. Whether one takes part
// in a chain is decided later from the config. PROVIDER=fake swaps them for
// offline fakes with the same IDs.
func ProvidePriceProviders(log *zap.Logger, cfg config.Config, client *httpx.Client) []application.PriceProvider {
	var out []application.PriceProvider
	if cfg.Runtime.Provider == "fake" {
		for _, class := range domain.AssetClasses {
			for _, id := range domain.PreferenceOrder(class) {
				out = append(out, provider.NewFake(id, class, nil))
			}
		}
		return out
	}

	vs := cfg.Crypto.DefaultVsCurrency
	out = []application.PriceProvider{
		&provider.Binance{APIKey: cfg.Crypto.BinanceAPIKey, Client: client, Log: log},
		&provider.Coinbase{APIKey: cfg.Crypto.CoinbaseAPIKey, VsCurrency: vs, Client: client, Log: log},
		&provider.CoinGecko{APIKey: cfg.Crypto.CoinGeckoAPIKey, VsCurrency: vs, Client: client, Log: log},
		&provider.AlphaVantage{APIKey: cfg.Stocks.AlphaVantageAPIKey, Client: client, Log: log},
		&provider.Finnhub{APIKey: cfg.Stocks.FinnhubAPIKey, Client: client, Log: log},
		&provider.Yahoo{Client: client, Log: log},
	}
	if cfg.General.CircuitBreaker {
		for i, p := range out {
			out[i] = provider.WithBreaker(p, log)
		}
	}
	return out
}

func ProvideOracle(log *zap.Logger, cfg config.Config, providers []application.PriceProvider, obs application.Observer) (*application.SharedOracle, error) {
	o, err := application.NewOracle(cfg, providers,
		application.WithLogger(log),
		application.WithObserver(obs),
	)
	if err != nil {
		return nil, err
	}
	for _, class := range domain.AssetClasses {
		log.Info("provider chain", zap.String("asset_class", string(class)), zap.Any("providers", o.Chain(class)))
	}
	return application.NewSharedOracle(o), nil
}

func ProvideMetrics() *metrics.Collectors { return metrics.New() }
