package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProviderFile_ExpandsEnvAndDefaults(t *testing.T) {
	t.Setenv("TEST_RESALES_KEY", "secret-key")

	pc, err := LoadProviderFile(filepath.Join("testdata", "resales.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "resales", pc.ID)
	assert.Equal(t, "resales_online", pc.Provider)
	assert.Equal(t, "secret-key", pc.APIKey)
	assert.Equal(t, "1234", pc.APIIDSales)
	assert.Equal(t, "P_Pool", pc.FeatureParams["private_pool"])
	require.Len(t, pc.Locations, 1)
	assert.Equal(t, "Marbella", pc.Locations[0].Value)
}

func TestRentalsIDFallsBackToSales(t *testing.T) {
	pc := &ProviderConfig{APIIDSales: "100"}
	assert.Equal(t, "100", pc.RentalsID())

	pc.APIIDRentals = "200"
	assert.Equal(t, "200", pc.RentalsID())
}

func TestLoad_ReadsEnvAndProviderDir(t *testing.T) {
	dir := t.TempDir()
	yml := "id: office_a\napi_key: k\napi_id_sales: \"1\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(yml), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	t.Setenv("PROVIDERS_DIR", dir)
	t.Setenv("CACHE_SEARCH_TTL", "5m")
	t.Setenv("CACHE_DRIVER", "none")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "none", cfg.Cache.Driver)
	assert.Equal(t, 5*time.Minute, cfg.Cache.SearchTTL)
	assert.Equal(t, 24*time.Hour, cfg.Cache.PropertyTTL)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ConnectTimeout)
	require.Contains(t, cfg.Providers, "office_a")
	assert.Equal(t, "k", cfg.Providers["office_a"].APIKey)
}

func TestLoad_RejectsDuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	yml := "id: same\napi_key: k\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(yml), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yml"), []byte(yml), 0644))
	t.Setenv("PROVIDERS_DIR", dir)

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_MissingProviderDirIsFine(t *testing.T) {
	t.Setenv("PROVIDERS_DIR", filepath.Join(t.TempDir(), "missing"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.Providers)
}
