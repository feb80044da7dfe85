package workers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"pwb_feeds/models"
)

// Prober checks every provider account
type Prober interface {
	CheckAll(ctx context.Context) []models.ProviderCheck
}

// HealthcheckWorker probes provider availability on a ticker or on demand
type HealthcheckWorker struct {
	prober    Prober
	triggerCh chan struct{}
	log       logrus.FieldLogger
}

func NewHealthcheckWorker(prober Prober, log logrus.FieldLogger) *HealthcheckWorker {
	return &HealthcheckWorker{
		prober:    prober,
		triggerCh: make(chan struct{}, 1),
		log:       log.WithField("worker", "healthcheck"),
	}
}

// Trigger causes the worker to run immediately
func (w *HealthcheckWorker) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

// Run probes every interval until ctx is done. A zero interval only
// responds to Trigger.
func (w *HealthcheckWorker) Run(ctx context.Context, interval time.Duration) {
	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			w.log.Info("healthcheck worker stopping")
			return
		case <-tick:
			w.RunOnce(ctx)
		case <-w.triggerCh:
			w.log.Info("healthcheck worker triggered manually")
			w.RunOnce(ctx)
		}
	}
}

// RunOnce probes all accounts and logs a summary
func (w *HealthcheckWorker) RunOnce(ctx context.Context) []models.ProviderCheck {
	checks := w.prober.CheckAll(ctx)

	var down int
	for _, c := range checks {
		if !c.Available {
			down++
		}
	}
	entry := w.log.WithFields(logrus.Fields{"checked": len(checks), "unavailable": down})
	if down > 0 {
		entry.Warn("healthcheck complete")
	} else {
		entry.Info("healthcheck complete")
	}
	return checks
}
