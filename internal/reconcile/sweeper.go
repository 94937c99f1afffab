// Package reconcile finds transactions left pending by a crashed or
// abandoned apply.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/baharkarakas/ledger-backend/internal/metrics"
	repo "github.com/baharkarakas/ledger-backend/internal/repository"
)

// ReasonOrphaned is the failure_reason written for swept rows.
const ReasonOrphaned = "orphaned"

type Config struct {
	Schedule string
	MaxAge   time.Duration
	Batch    int
}

type Result struct {
	Found    int
	Resolved int
}

// Sweeper only resolves rows when the applier is atomic: there a pending
// row never has a committed balance effect, so failing it is safe. With the
// lock-based applier a pending row may sit behind a balance write, so the
// sweeper reports it and leaves it for an operator.
type Sweeper struct {
	txns    repo.Transactions
	resolve bool
	cfg     Config
	log     *slog.Logger
	now     func() time.Time
	cron    *cron.Cron
}

func NewSweeper(txns repo.Transactions, applier repo.Applier, cfg Config, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Batch <= 0 {
		cfg.Batch = 100
	}
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	return &Sweeper{
		txns:    txns,
		resolve: applier.Atomic(),
		cfg:     cfg,
		log:     logger,
		now:     time.Now,
		cron:    cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
	}
}

func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	cutoff := s.now().UTC().Add(-s.cfg.MaxAge)
	stale, err := s.txns.ListPendingBefore(ctx, cutoff, s.cfg.Batch)
	if err != nil {
		return Result{}, err
	}
	metrics.PendingOrphans.Set(float64(len(stale)))
	res := Result{Found: len(stale)}
	if !s.resolve {
		for _, t := range stale {
			s.log.Warn("pending transaction needs manual reconcile",
				"transaction_id", t.ID, "account_number", t.AccountNumber, "since", t.Timestamp)
		}
		return res, nil
	}

	for _, t := range stale {
		err := s.txns.Fail(ctx, t.ID, ReasonOrphaned)
		switch {
		case err == nil:
			res.Resolved++
		case errors.Is(err, repo.ErrNotPending):
			// finished while we were looking
		default:
			return res, err
		}
	}
	if res.Resolved > 0 {
		s.log.Info("orphaned transactions failed", "count", res.Resolved)
	}
	return res, nil
}

func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := s.Sweep(ctx); err != nil {
			s.log.Error("reconcile sweep", "err", err)
		}
	})
	if err != nil {
		return err
	}
	s.log.Info("scheduled reconcile sweep", "schedule", s.cfg.Schedule, "max_age", s.cfg.MaxAge)
	s.cron.Start()
	return nil
}

// Stop halts scheduling; the returned context is done once a running sweep
// has finished.
func (s *Sweeper) Stop() context.Context {
	return s.cron.Stop()
}
