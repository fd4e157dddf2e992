package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/guttosm/tickapi/internal/logger"
	"github.com/guttosm/tickapi/internal/storage"
)

// Scheduler runs a sync job on a cron schedule (UTC).
//
// Runs never overlap: a tick that fires while the previous run is still going is skipped.
type Scheduler struct {
	cron   *cron.Cron
	job    func(ctx context.Context) error
	ctx    context.Context
	cancel context.CancelFunc
	log    zerolog.Logger
}

// NewScheduler parses spec (standard 5-field cron or descriptors like "@daily")
// and registers job on it. The scheduler is idle until Start is called.
func NewScheduler(spec string, job func(ctx context.Context) error) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		job:    job,
		ctx:    ctx,
		cancel: cancel,
		log:    logger.With("scheduler"),
	}

	s.cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid sync schedule %q: %w", spec, err)
	}
	return s, nil
}

// NewSyncScheduler wires Sync into a Scheduler.
func NewSyncScheduler(spec string, client MarketClient, repo storage.StockRepository, tickers []string, rng string, parallel int) (*Scheduler, error) {
	list := append([]string(nil), tickers...)
	return NewScheduler(spec, func(ctx context.Context) error {
		_, err := Sync(ctx, client, repo, list, rng, parallel)
		return err
	})
}

// Start begins firing the job on schedule.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("entries", len(s.cron.Entries())).Msg("scheduler started")
}

// Stop cancels any running job and waits for it to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) run() {
	start := time.Now()
	s.log.Info().Msg("scheduled sync start")
	if err := s.job(s.ctx); err != nil {
		s.log.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("scheduled sync failed")
		return
	}
	s.log.Info().Dur("elapsed", time.Since(start)).Msg("scheduled sync done")
}
