package bootstrap

import (
	"context"
	"net/http"

	"priceoracle-service/internal/application"
	"priceoracle-service/internal/config"
	httpserver "priceoracle-service/internal/infrastructure/http"
	"priceoracle-service/internal/infrastructure/worker"

	"go.uber.org/zap"
)

// API is everything cmd/api needs to serve and refresh prices.
type API struct {
	Handler   http.Handler
	Oracle    *application.SharedOracle
	Refresher *worker.Refresher
}

type cleanups []func()

func (c cleanups) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

// InitAPI wires the oracle, the optional account and idempotency stores,
// metrics and the HTTP router. The returned cleanup closes what was opened.
func InitAPI(ctx context.Context, cfg config.Config) (*API, func(), error) {
	log := ProvideLogger()
	var cl cleanups

	oracle, obs, err := initOracle(log, cfg)
	if err != nil {
		return nil, func() {}, err
	}

	db, closeDB, err := ProvideDB(ctx, log, cfg)
	if err != nil {
		return nil, func() {}, err
	}
	cl = append(cl, closeDB)

	idem, closeRedis, err := ProvideIdempotency(ctx, log, cfg)
	if err != nil {
		cl.run()
		return nil, func() {}, err
	}
	cl = append(cl, closeRedis)

	opts := []httpserver.ServerOption{
		httpserver.WithIdempotency(idem),
		httpserver.WithMetrics(obs.Handler()),
	}
	if users := ProvideUserService(db, cfg); users != nil {
		opts = append(opts, httpserver.WithUsers(users))
	}
	srv := httpserver.NewServer(oracle, opts...)
	if db != nil {
		srv.SetReadyCheck(db.Ping)
	}

	return &API{
		Handler:   httpserver.NewRouter(srv),
		Oracle:    oracle,
		Refresher: ProvideRefresher(log, cfg, oracle),
	}, cl.run, nil
}

func initOracle(log *zap.Logger, cfg config.Config) (*application.SharedOracle, metricsHandler, error) {
	obs := ProvideMetrics()
	client := ProvideHTTPClient(log, cfg)
	oracle, err := ProvideOracle(log, cfg, ProvidePriceProviders(log, cfg, client), obs)
	if err != nil {
		return nil, nil, err
	}
	return oracle, obs, nil
}

type metricsHandler interface {
	application.Observer
	Handler() http.Handler
}

func ProvideRefresher(log *zap.Logger, cfg config.Config, oracle *application.SharedOracle) *worker.Refresher {
	return &worker.Refresher{Oracle: oracle, Every: cfg.UpdateInterval(), Log: log}
}
