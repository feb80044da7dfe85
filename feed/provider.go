// Package feed defines the contract every external listing provider
// implements and the error kinds they report.
package feed

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"pwb_feeds/config"
	"pwb_feeds/models"
)

// Provider adapts one external listing source to the normalized model.
// Implementations are stateless per call and safe for concurrent use.
type Provider interface {
	Name() models.ProviderName

	// Configured reports whether all required credentials are present.
	Configured() bool

	// Search never returns a nil result on success; zero matches is an empty page.
	Search(ctx context.Context, params models.SearchParams) (*models.SearchResult, error)

	// Find returns (nil, nil) when the provider reports the property does not exist.
	Find(ctx context.Context, reference string, params models.FindParams) (*models.Property, error)

	// Similar never includes the seed property itself.
	Similar(ctx context.Context, property *models.Property, params models.SimilarParams) ([]models.Property, error)

	// Locations and PropertyTypes never fail; missing data yields a default list.
	Locations(ctx context.Context, params models.LookupParams) []models.Option
	PropertyTypes(ctx context.Context, params models.LookupParams) []models.PropertyTypeOption

	// Available is a health probe and never fails.
	Available(ctx context.Context) bool
}

// Base carries the shared config validation for providers
type Base struct {
	name     models.ProviderName
	required map[string]string
}

// NewBase records the required configuration values keyed by their config name
func NewBase(name models.ProviderName, required map[string]string) Base {
	return Base{name: name, required: required}
}

func (b Base) Name() models.ProviderName { return b.name }

// MissingKeys lists the required keys that are blank, sorted
func (b Base) MissingKeys() []string {
	var missing []string
	for key, val := range b.required {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return missing
}

func (b Base) Configured() bool {
	return len(b.MissingKeys()) == 0
}

// EnsureConfigured must run before any network call
func (b Base) EnsureConfigured(op string) error {
	if missing := b.MissingKeys(); len(missing) > 0 {
		return NewError(ErrConfiguration, string(b.name), op, fmt.Errorf("missing %s", strings.Join(missing, ", ")))
	}
	return nil
}

// Factory constructs a provider from its account config
type Factory func(cfg *config.ProviderConfig, client *http.Client, log logrus.FieldLogger) (Provider, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a provider available by name. Providers call it from init.
func Register(name models.ProviderName, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[string(name)]; dup {
		panic("feed: Register called twice for provider " + string(name))
	}
	registry[string(name)] = factory
}

// New builds the provider named by cfg.Provider
func New(cfg *config.ProviderConfig, client *http.Client, log logrus.FieldLogger) (Provider, error) {
	registryMu.RLock()
	factory, ok := registry[cfg.Provider]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown provider type %q for %s", cfg.Provider, cfg.ID)
	}
	return factory(cfg, client, log)
}

// Registered lists the provider names that can be built
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
