package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs a full pass on a cron schedule until its context ends.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// NewScheduler registers pass under spec (five field cron or a descriptor such
// as "@every 1h"). A pass skipped because another one holds the lock is logged.
func NewScheduler(ctx context.Context, spec string, pass func(ctx context.Context) error, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(spec, func() {
		logger.Info("scheduled pass started")
		err := pass(ctx)
		switch {
		case errors.Is(err, ErrLocked):
			logger.Info("scheduled pass skipped", zap.String("reason", err.Error()))
		case err != nil:
			logger.Error("scheduled pass failed", zap.Error(err))
		default:
			logger.Info("scheduled pass finished")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}

	return &Scheduler{cron: c, logger: logger}, nil
}

// Run blocks until ctx is done and waits for a running pass to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.logger.Info("scheduler started", zap.Time("next run", e.Next))
	}

	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}
