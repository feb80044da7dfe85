package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"pwb_feeds/config"
	"pwb_feeds/feed"
	"pwb_feeds/identity"
	"pwb_feeds/models"
	"pwb_feeds/storage"
)

var ErrUnknownProvider = errors.New("unknown provider")

const fanoutLimit = 4

const (
	opSearch        = "search"
	opFind          = "find"
	opSimilar       = "similar"
	opLocations     = "locations"
	opPropertyTypes = "property_types"
)

// BuildProviders constructs one provider per configured account
func BuildProviders(cfg *config.Config, client *http.Client, log logrus.FieldLogger) (map[string]feed.Provider, error) {
	providers := make(map[string]feed.Provider, len(cfg.Providers))
	for id, pc := range cfg.Providers {
		p, err := feed.New(pc, client, log)
		if err != nil {
			return nil, err
		}
		if !p.Configured() {
			log.WithField("account", id).Warn("provider is missing credentials, calls will fail until configured")
		}
		providers[id] = p
	}
	return providers, nil
}

// FeedService fronts the configured provider accounts with a
// cache-aside layer. Accounts are addressed by config id.
type FeedService struct {
	providers map[string]feed.Provider
	ids       []string
	store     storage.Store
	ttl       config.CacheConfig
	log       logrus.FieldLogger
}

func NewFeedService(providers map[string]feed.Provider, store storage.Store, cacheCfg *config.CacheConfig, log logrus.FieldLogger) *FeedService {
	if store == nil {
		store = storage.NopStore{}
	}
	ids := make([]string, 0, len(providers))
	for id := range providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return &FeedService{
		providers: providers,
		ids:       ids,
		store:     store,
		ttl:       *cacheCfg,
		log:       log,
	}
}

// ProviderIDs lists account ids, sorted
func (s *FeedService) ProviderIDs() []string {
	return append([]string(nil), s.ids...)
}

func (s *FeedService) Provider(id string) (feed.Provider, error) {
	p, ok := s.providers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, id)
	}
	return p, nil
}

func (s *FeedService) configured(id, op string) (feed.Provider, error) {
	p, err := s.Provider(id)
	if err != nil {
		return nil, err
	}
	if !p.Configured() {
		return nil, feed.NewError(feed.ErrConfiguration, string(p.Name()), op, fmt.Errorf("account %s is not configured", id))
	}
	return p, nil
}

func (s *FeedService) Search(ctx context.Context, id string, params models.SearchParams) (*models.SearchResult, error) {
	p, err := s.configured(id, opSearch)
	if err != nil {
		return nil, err
	}

	key := identity.Key(opSearch, id, params)
	var cached models.SearchResult
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	result, err := p.Search(ctx, params)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, key, result, s.ttl.SearchTTL)
	return result, nil
}

// Find returns (nil, nil) when the property does not exist. Misses are not cached.
func (s *FeedService) Find(ctx context.Context, id, reference string, params models.FindParams) (*models.Property, error) {
	p, err := s.configured(id, opFind)
	if err != nil {
		return nil, err
	}

	key := identity.Key(opFind, id, struct {
		Reference string
		Params    models.FindParams
	}{identity.NormalizeReference(reference), params})

	var cached models.Property
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	prop, err := p.Find(ctx, reference, params)
	if err != nil || prop == nil {
		return prop, err
	}
	s.cacheSet(ctx, key, prop, s.ttl.PropertyTTL)
	return prop, nil
}

// Similar loads the seed property and asks the provider for matches.
// A missing seed is reported as feed.ErrNotFound.
func (s *FeedService) Similar(ctx context.Context, id, reference string, find models.FindParams, params models.SimilarParams) ([]models.Property, error) {
	p, err := s.configured(id, opSimilar)
	if err != nil {
		return nil, err
	}

	key := identity.Key(opSimilar, id, struct {
		Reference string
		Find      models.FindParams
		Limit     int
		Locale    string
	}{identity.NormalizeReference(reference), find, params.ClampedLimit(), params.Locale})

	var cached []models.Property
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	seed, err := s.Find(ctx, id, reference, find)
	if err != nil {
		return nil, err
	}
	if seed == nil {
		return nil, feed.NewError(feed.ErrNotFound, string(p.Name()), opSimilar, fmt.Errorf("reference %s", reference))
	}

	similar, err := p.Similar(ctx, seed, params)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, key, similar, s.ttl.SimilarTTL)
	return similar, nil
}

func (s *FeedService) Locations(ctx context.Context, id string, params models.LookupParams) ([]models.Option, error) {
	p, err := s.Provider(id)
	if err != nil {
		return nil, err
	}

	key := identity.Key(opLocations, id, params)
	var cached []models.Option
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	options := p.Locations(ctx, params)
	s.cacheSet(ctx, key, options, s.ttl.LookupTTL)
	return options, nil
}

func (s *FeedService) PropertyTypes(ctx context.Context, id string, params models.LookupParams) ([]models.PropertyTypeOption, error) {
	p, err := s.Provider(id)
	if err != nil {
		return nil, err
	}

	key := identity.Key(opPropertyTypes, id, params)
	var cached []models.PropertyTypeOption
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	options := p.PropertyTypes(ctx, params)
	s.cacheSet(ctx, key, options, s.ttl.LookupTTL)
	return options, nil
}

// FanoutResult is one account's share of a SearchAll call
type FanoutResult struct {
	ProviderID string               `json:"provider_id"`
	Result     *models.SearchResult `json:"result,omitempty"`
	Err        error                `json:"-"`
	Error      string               `json:"error,omitempty"`
}

// SearchAll runs the same search on every configured account. A failing
// account is reported in its FanoutResult and does not fail the call.
func (s *FeedService) SearchAll(ctx context.Context, params models.SearchParams) []FanoutResult {
	var ids []string
	for _, id := range s.ids {
		if s.providers[id].Configured() {
			ids = append(ids, id)
		}
	}

	results := make([]FanoutResult, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanoutLimit)

	for i, id := range ids {
		g.Go(func() error {
			start := time.Now()
			result, err := s.Search(gctx, id, params)
			results[i] = FanoutResult{ProviderID: id, Result: result, Err: err}
			if err != nil {
				results[i].Error = err.Error()
				s.log.WithError(err).WithField("account", id).Warn("fan-out search failed")
			} else {
				s.log.WithFields(logrus.Fields{"account": id, "count": len(result.Properties), "elapsed": time.Since(start)}).Debug("fan-out search complete")
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Purge drops expired cache entries
func (s *FeedService) Purge(ctx context.Context) (int64, error) {
	return s.store.Purge(ctx)
}

func (s *FeedService) cacheGet(ctx context.Context, key string, v any) bool {
	ok, err := storage.GetJSON(ctx, s.store, key, v)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache read failed")
		return false
	}
	return ok
}

func (s *FeedService) cacheSet(ctx context.Context, key string, v any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := storage.SetJSON(ctx, s.store, key, v, ttl); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache write failed")
	}
}
