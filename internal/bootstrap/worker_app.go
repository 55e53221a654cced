package bootstrap

import (
	"context"
	"io"

	"priceoracle-service/internal/config"
)

type WorkerApp func(ctx context.Context) error

// InitWorkerApp builds a standalone refresher. When out is not nil the
// price table is written to it after every tick.
func InitWorkerApp(_ context.Context, cfg config.Config, out io.Writer) (WorkerApp, func(), error) {
	log := ProvideLogger()
	oracle, _, err := initOracle(log, cfg)
	if err != nil {
		return nil, func() {}, err
	}
	r := ProvideRefresher(log, cfg, oracle)
	if out != nil {
		r.OnTick = func(int) { _ = oracle.FormatTable(out) }
	}
	run := func(ctx context.Context) error {
		r.Start(ctx)
		return nil
	}
	return run, func() {}, nil
}
