package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	APIURL        string `mapstructure:"api_url"`
	LogLevel      string `mapstructure:"log_level"`
	AdminUsername string `mapstructure:"admin_username"`

	Store   StoreConfig   `mapstructure:"store"`
	Cart    CartConfig    `mapstructure:"cart"`
	Order   OrderConfig   `mapstructure:"order"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	ES      ESConfig      `mapstructure:"es"`
	Sandbox SandboxConfig `mapstructure:"sandbox"`
}

type StoreConfig struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	RedisURL string `mapstructure:"redis_url"`
	Prefix   string `mapstructure:"prefix"`
}

type CartConfig struct {
	SyncDebounce time.Duration `mapstructure:"sync_debounce"`
}

type OrderConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type CatalogConfig struct {
	ShuffleWindow time.Duration `mapstructure:"shuffle_window"`
	DefaultBrand  string        `mapstructure:"default_brand"`
}

type HTTPConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"`
	Burst     int           `mapstructure:"burst"`
}

type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
}

type ESConfig struct {
	URL      string `mapstructure:"url"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Index    string `mapstructure:"index"`
}

type SandboxConfig struct {
	Addr          string `mapstructure:"addr"`
	JWTSecret     string `mapstructure:"jwt_secret"`
	AdminPassword string `mapstructure:"admin_password"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_url", "http://localhost:8000")
	v.SetDefault("log_level", "info")
	v.SetDefault("admin_username", "skadmin")

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "storefront.db")
	v.SetDefault("store.redis_url", "")
	v.SetDefault("store.prefix", "storefront:")

	v.SetDefault("cart.sync_debounce", 750*time.Millisecond)
	v.SetDefault("order.poll_interval", 5*time.Second)
	v.SetDefault("catalog.shuffle_window", 24*time.Hour)
	v.SetDefault("catalog.default_brand", "Orane")

	v.SetDefault("http.timeout", 10*time.Second)
	v.SetDefault("http.rate_limit", 10.0)
	v.SetDefault("http.burst", 20)

	v.SetDefault("kafka.brokers", "")

	v.SetDefault("es.url", "")
	v.SetDefault("es.user", "")
	v.SetDefault("es.password", "")
	v.SetDefault("es.index", "product")

	v.SetDefault("sandbox.addr", ":8000")
	v.SetDefault("sandbox.jwt_secret", "sandbox-secret")
	v.SetDefault("sandbox.admin_password", "admin")
}

// Load reads .env, then storefront.yaml (optional), then STOREFRONT_*
// environment variables. Later sources win.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}
	return LoadFrom(viper.New(), "")
}

// LoadFrom is Load with an explicit viper instance and config file, used by
// the CLI --config flag and by tests.
func LoadFrom(v *viper.Viper, file string) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("storefront")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.storefront/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var problems []string

	if c.APIURL == "" {
		problems = append(problems, "api_url is required")
	} else if u, err := url.Parse(c.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, "api_url must be an absolute URL")
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
		if c.Store.DSN == "" {
			problems = append(problems, "store.dsn is required for driver "+c.Store.Driver)
		}
	case "redis":
		if c.Store.RedisURL == "" {
			problems = append(problems, "store.redis_url is required for driver redis")
		}
	case "memory":
	default:
		problems = append(problems, fmt.Sprintf("unknown store.driver %q", c.Store.Driver))
	}

	if c.Cart.SyncDebounce < 0 {
		problems = append(problems, "cart.sync_debounce must not be negative")
	}
	if c.Order.PollInterval <= 0 {
		problems = append(problems, "order.poll_interval must be positive")
	}
	if c.Catalog.ShuffleWindow <= 0 {
		problems = append(problems, "catalog.shuffle_window must be positive")
	}
	if c.HTTP.Timeout <= 0 {
		problems = append(problems, "http.timeout must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) KafkaBrokers() []string {
	return CSV(c.Kafka.Brokers)
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
