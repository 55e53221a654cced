package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"priceoracle-service/internal/application"
)

var _ application.Worker = (*Refresher)(nil)

// Updater is the part of the oracle the refresher drives.
type Updater interface {
	UpdateAllPrices(ctx context.Context) int
}

// Refresher updates all prices once at start and then on a fixed cron
// interval. A tick that is still running when the next one is due is
// skipped, so updates never overlap.
type Refresher struct {
	Oracle Updater
	Every  time.Duration
	Log    *zap.Logger

	// OnTick, if set, runs after every update with the number of records written.
	OnTick func(written int)
}

func (r *Refresher) Start(ctx context.Context) {
	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}
	if r.Every < time.Second {
		r.Every = 30 * time.Second
	}

	cronLog := cron.PrintfLogger(zap.NewStdLog(log.With(zap.String("component", "cron"))))
	c := cron.New(
		cron.WithLogger(cron.DiscardLogger),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", r.Every), func() { r.tick(ctx, log) }); err != nil {
		log.Error("refresher.schedule_failed", zap.Error(err))
		return
	}

	log.Info("refresher.started", zap.Duration("every", r.Every))
	r.tick(ctx, log)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	log.Info("refresher.stopped")
}

func (r *Refresher) tick(ctx context.Context, log *zap.Logger) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	n := r.Oracle.UpdateAllPrices(ctx)
	log.Info("refresher.tick", zap.Int("written", n), zap.Duration("took", time.Since(start)))
	if r.OnTick != nil {
		r.OnTick(n)
	}
}
