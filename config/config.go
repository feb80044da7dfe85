package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"pwb_feeds/models"
)

type Config struct {
	ListenAddr   string `env:"LISTEN_ADDR" envDefault:":8080"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	LogPath      string `env:"LOG_PATH" envDefault:"feeds.log"`
	ProvidersDir string `env:"PROVIDERS_DIR" envDefault:"config/providers"`

	Cache     CacheConfig
	Scheduler SchedulerConfig
	HTTP      HTTPConfig

	Providers map[string]*ProviderConfig
}

type CacheConfig struct {
	Driver      string        `env:"CACHE_DRIVER" envDefault:"sqlite"` // sqlite, postgres, none
	DBPath      string        `env:"DB_PATH" envDefault:"feeds.db"`
	DBURL       string        `env:"DATABASE_URL"`
	SearchTTL   time.Duration `env:"CACHE_SEARCH_TTL" envDefault:"1h"`
	PropertyTTL time.Duration `env:"CACHE_PROPERTY_TTL" envDefault:"24h"`
	SimilarTTL  time.Duration `env:"CACHE_SIMILAR_TTL" envDefault:"6h"`
	LookupTTL   time.Duration `env:"CACHE_LOOKUP_TTL" envDefault:"168h"`
}

type SchedulerConfig struct {
	ProbeCron     string        `env:"PROBE_CRON"`
	ProbeInterval time.Duration `env:"PROBE_INTERVAL" envDefault:"15m"`
	PurgeCron     string        `env:"PURGE_CRON" envDefault:"@hourly"`
}

type HTTPConfig struct {
	ProxyURL       string        `env:"HTTP_PROXY_URL"`
	ConnectTimeout time.Duration `env:"HTTP_CONNECT_TIMEOUT" envDefault:"10s"`
	ReadTimeout    time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
}

// ProviderConfig is one feed account, loaded from PROVIDERS_DIR/*.yaml.
// Values are read-only once loaded.
type ProviderConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Provider string `yaml:"provider"`

	APIKey       string `yaml:"api_key"`
	AccountID    string `yaml:"account_id"` // optional agency filter, sent as p1
	APIIDSales   string `yaml:"api_id_sales"`
	APIIDRentals string `yaml:"api_id_rentals"`

	BaseURL        string `yaml:"base_url"`
	SalesVersion   string `yaml:"sales_version"`
	RentalsVersion string `yaml:"rentals_version"`

	LocaleLanguages map[string]string `yaml:"locale_languages"`
	DefaultCountry  string            `yaml:"default_country"`
	ImageCount      int               `yaml:"image_count"`
	FeatureParams   map[string]string `yaml:"feature_params"`

	Locations     []models.Option             `yaml:"locations"`
	PropertyTypes []models.PropertyTypeOption `yaml:"property_types"`
}

// RentalsID returns the rentals API id, falling back to the sales id
func (p *ProviderConfig) RentalsID() string {
	if strings.TrimSpace(p.APIIDRentals) != "" {
		return p.APIIDRentals
	}
	return p.APIIDSales
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{Providers: make(map[string]*ProviderConfig)}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.loadProviderConfigs(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadProviderConfigs() error {
	entries, err := os.ReadDir(c.ProvidersDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}

		path := filepath.Join(c.ProvidersDir, entry.Name())
		pc, err := LoadProviderFile(path)
		if err != nil {
			return err
		}
		if _, dup := c.Providers[pc.ID]; dup {
			return fmt.Errorf("%s: duplicate provider id %q", path, pc.ID)
		}
		c.Providers[pc.ID] = pc
	}

	return nil
}

// LoadProviderFile reads one provider YAML. ${VAR} references are expanded
// from the environment so secrets stay out of the file.
func LoadProviderFile(path string) (*ProviderConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var pc ProviderConfig
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &pc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if pc.ID == "" {
		pc.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if pc.Provider == "" {
		pc.Provider = string(models.ProviderResalesOnline)
	}

	return &pc, nil
}
