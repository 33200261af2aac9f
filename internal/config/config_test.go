package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadFrom(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.APIURL)
	assert.Equal(t, "skadmin", cfg.AdminUsername)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 5*time.Second, cfg.Order.PollInterval)
	assert.Equal(t, 24*time.Hour, cfg.Catalog.ShuffleWindow)
	assert.Equal(t, "Orane", cfg.Catalog.DefaultBrand)
	assert.Nil(t, cfg.KafkaBrokers())
}

func TestLoadFrom_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STOREFRONT_API_URL", "https://shop.example.com/")
	t.Setenv("STOREFRONT_STORE_DRIVER", "memory")
	t.Setenv("STOREFRONT_CATALOG_SHUFFLE_WINDOW", "12h")
	t.Setenv("STOREFRONT_KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := LoadFrom(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "https://shop.example.com", cfg.APIURL)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 12*time.Hour, cfg.Catalog.ShuffleWindow)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers())
}

func TestLoadFrom_File(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	file := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(file, []byte("api_url: http://api.local:9000\norder:\n  poll_interval: 2s\n"), 0o600))

	cfg, err := LoadFrom(viper.New(), file)
	require.NoError(t, err)
	assert.Equal(t, "http://api.local:9000", cfg.APIURL)
	assert.Equal(t, 2*time.Second, cfg.Order.PollInterval)
}

func TestLoadFrom_MissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := LoadFrom(viper.New(), "does-not-exist.yaml")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := func() Config {
		return Config{
			APIURL:  "http://localhost:8000",
			Store:   StoreConfig{Driver: "memory"},
			Order:   OrderConfig{PollInterval: time.Second},
			Catalog: CatalogConfig{ShuffleWindow: time.Hour},
			HTTP:    HTTPConfig{Timeout: time.Second},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{name: "relative api url", mutate: func(c *Config) { c.APIURL = "localhost" }, want: "absolute URL"},
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "mongo" }, want: "unknown store.driver"},
		{name: "redis without url", mutate: func(c *Config) { c.Store.Driver = "redis" }, want: "redis_url"},
		{name: "sqlite without dsn", mutate: func(c *Config) { c.Store.Driver = "sqlite" }, want: "store.dsn"},
		{name: "zero poll", mutate: func(c *Config) { c.Order.PollInterval = 0 }, want: "poll_interval"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	ok := base()
	assert.NoError(t, ok.Validate())
}

func TestCSV(t *testing.T) {
	t.Parallel()
	assert.Nil(t, CSV(""))
	assert.Equal(t, []string{"a", "b"}, CSV(" a ,, b "))
}
