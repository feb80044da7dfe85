package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pwb_feeds/models"
	"pwb_feeds/storage"
)

// HealthcheckService probes provider accounts and keeps the latest result
// per account in memory.
type HealthcheckService struct {
	feeds *FeedService
	store storage.Store
	log   logrus.FieldLogger

	mu     sync.RWMutex
	latest map[string]models.ProviderCheck
}

func NewHealthcheckService(feeds *FeedService, store storage.Store, log logrus.FieldLogger) *HealthcheckService {
	if store == nil {
		store = storage.NopStore{}
	}
	return &HealthcheckService{
		feeds:  feeds,
		store:  store,
		log:    log,
		latest: make(map[string]models.ProviderCheck),
	}
}

// Check probes one account and records the outcome
func (s *HealthcheckService) Check(ctx context.Context, id string) (*models.ProviderCheck, error) {
	p, err := s.feeds.Provider(id)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	available := p.Available(ctx)
	check := models.ProviderCheck{
		ID:         uuid.New(),
		ProviderID: id,
		Available:  available,
		Latency:    time.Since(start),
		CheckedAt:  time.Now().UTC(),
	}

	s.mu.Lock()
	s.latest[id] = check
	s.mu.Unlock()

	if err := s.store.RecordCheck(ctx, &check); err != nil {
		s.log.WithError(err).WithField("account", id).Warn("failed to record provider check")
	}

	entry := s.log.WithFields(logrus.Fields{"account": id, "available": available, "latency": check.Latency})
	if available {
		entry.Debug("provider check")
	} else {
		entry.Warn("provider unavailable")
	}
	return &check, nil
}

// CheckAll probes every account in id order
func (s *HealthcheckService) CheckAll(ctx context.Context) []models.ProviderCheck {
	ids := s.feeds.ProviderIDs()
	checks := make([]models.ProviderCheck, 0, len(ids))
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		check, err := s.Check(ctx, id)
		if err != nil {
			continue
		}
		checks = append(checks, *check)
	}
	return checks
}

// Latest returns a copy of the most recent check per account
func (s *HealthcheckService) Latest() map[string]models.ProviderCheck {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.ProviderCheck, len(s.latest))
	for id, c := range s.latest {
		out[id] = c
	}
	return out
}

func (s *HealthcheckService) History(ctx context.Context, id string, limit int) ([]models.ProviderCheck, error) {
	if _, err := s.feeds.Provider(id); err != nil {
		return nil, err
	}
	return s.store.RecentChecks(ctx, id, limit)
}
