package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"pwb_feeds/config"
)

// Triggerable allows workers to be triggered manually
type Triggerable interface {
	Trigger()
}

// Purger drops expired cache entries
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

type Scheduler struct {
	cfg    *config.SchedulerConfig
	probe  Triggerable
	purger Purger
	log    logrus.FieldLogger

	cron     *cron.Cron
	ticker   *time.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once
}

func New(cfg *config.SchedulerConfig, probe Triggerable, purger Purger, log logrus.FieldLogger) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		probe:  probe,
		purger: purger,
		log:    log.WithField("component", "scheduler"),
		cron:   cron.New(),
		stopCh: make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.ProbeCron != "" {
		s.log.Infof("Starting health probe with cron: %s", s.cfg.ProbeCron)
		if _, err := s.cron.AddFunc(s.cfg.ProbeCron, s.probe.Trigger); err != nil {
			return fmt.Errorf("invalid probe cron expression: %w", err)
		}
	} else if s.cfg.ProbeInterval > 0 {
		s.log.Infof("Starting health probe with interval: %s", s.cfg.ProbeInterval)
		s.ticker = time.NewTicker(s.cfg.ProbeInterval)
		go func() {
			for {
				select {
				case <-s.ticker.C:
					s.probe.Trigger()
				case <-s.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	} else {
		s.log.Info("No probe schedule configured, health checks run on demand only")
	}

	if s.cfg.PurgeCron != "" && s.purger != nil {
		if _, err := s.cron.AddFunc(s.cfg.PurgeCron, func() { s.RunPurge(ctx) }); err != nil {
			return fmt.Errorf("invalid purge cron expression: %w", err)
		}
	}

	s.cron.Start()
	return nil
}

// RunPurge removes expired cache entries once
func (s *Scheduler) RunPurge(ctx context.Context) {
	n, err := s.purger.Purge(ctx)
	if err != nil {
		s.log.WithError(err).Warn("cache purge failed")
		return
	}
	if n > 0 {
		s.log.WithField("purged", n).Info("cache purge complete")
	}
}

func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		<-s.cron.Stop().Done()
		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
	})
}
