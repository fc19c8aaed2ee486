package infra

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"crypto_search/internal/domain"
	"crypto_search/internal/infra/marketdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CRYPTO_SEARCH_"

// Default endpoints.
const (
	DefaultSourceURL   = "https://api.coingecko.com/api/v3/coins/markets?vs_currency=usd&order=market_cap_desc&per_page=50&page=1"
	DefaultUpstreamURL = "https://min-api.cryptocompare.com/data/top/mktcapfull?limit=50&tsym=USD"
)

// Config holds every setting of the three binaries.
// LoadConfig reads the YAML file first; environment variables override it.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Source struct {
		URL   string `yaml:"url"`
		Shape string `yaml:"shape"`
	} `yaml:"source"`

	Refresh struct {
		Interval time.Duration `yaml:"interval"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"refresh"`

	Relay struct {
		Addr        string        `yaml:"addr"`
		UpstreamURL string        `yaml:"upstream_url"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"relay"`

	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`

	Icons struct {
		Dir         string `yaml:"dir"`
		DBPath      string `yaml:"db_path"`
		Concurrency int    `yaml:"concurrency"`
	} `yaml:"icons"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig reads and validates the configuration file at path.
// A missing file yields an error wrapping domain.ErrConfigNotFound.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &domain.ConfigError{Field: path, Err: err}
	}
	cfg.applyDefaults()

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefaultConfig returns defaults with environment overrides applied.
func LoadDefaultConfig() (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment. Variables already set are kept. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func (c *Config) finish() error {
	if err := overrideWithEnv(c); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "crypto_search"
	}
	if c.Source.URL == "" {
		c.Source.URL = DefaultSourceURL
	}
	if c.Source.Shape == "" {
		c.Source.Shape = string(marketdata.ShapeCoinGecko)
	}
	if c.Refresh.Interval == 0 {
		c.Refresh.Interval = 30 * time.Second
	}
	if c.Relay.Addr == "" {
		c.Relay.Addr = ":4000"
	}
	if c.Relay.UpstreamURL == "" {
		c.Relay.UpstreamURL = DefaultUpstreamURL
	}
	if c.Relay.Timeout == 0 {
		c.Relay.Timeout = 10 * time.Second
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Icons.Dir == "" {
		c.Icons.Dir = "data/icons"
	}
	if c.Icons.DBPath == "" {
		c.Icons.DBPath = "data/icons.db"
	}
	if c.Icons.Concurrency == 0 {
		c.Icons.Concurrency = 5
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = "logs"
	}
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if err := checkHTTPURL(c.Source.URL); err != nil {
		return &domain.ConfigError{Field: "source.url", Err: err}
	}
	if _, err := marketdata.ParseShape(c.Source.Shape); err != nil {
		return &domain.ConfigError{Field: "source.shape", Err: err}
	}

	if c.Refresh.Interval <= 0 {
		return &domain.ConfigError{Field: "refresh.interval", Err: errors.New("must be positive")}
	}
	if c.Refresh.Timeout < 0 {
		return &domain.ConfigError{Field: "refresh.timeout", Err: errors.New("must not be negative")}
	}

	if err := checkHTTPURL(c.Relay.UpstreamURL); err != nil {
		return &domain.ConfigError{Field: "relay.upstream_url", Err: err}
	}
	if c.Relay.Timeout <= 0 {
		return &domain.ConfigError{Field: "relay.timeout", Err: errors.New("must be positive")}
	}

	if c.Icons.Concurrency <= 0 {
		return &domain.ConfigError{Field: "icons.concurrency", Err: errors.New("must be positive")}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &domain.ConfigError{Field: "logging.level", Err: fmt.Errorf("unknown level %q", c.Logging.Level)}
	}

	return nil
}

// SourceShape returns the validated source shape.
func (c *Config) SourceShape() marketdata.Shape {
	shape, _ := marketdata.ParseShape(c.Source.Shape)
	return shape
}

// RefreshTimeout returns the fetch timeout, defaulting to one interval.
func (c *Config) RefreshTimeout() time.Duration {
	if c.Refresh.Timeout > 0 {
		return c.Refresh.Timeout
	}
	return c.Refresh.Interval
}

func checkHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme in %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}

// overrideWithEnv replaces values whose environment variable is set.
func overrideWithEnv(cfg *Config) error {
	strs := map[string]*string{
		"SOURCE_URL":         &cfg.Source.URL,
		"SOURCE_SHAPE":       &cfg.Source.Shape,
		"RELAY_ADDR":         &cfg.Relay.Addr,
		"RELAY_UPSTREAM_URL": &cfg.Relay.UpstreamURL,
		"HTTP_ADDR":          &cfg.HTTP.Addr,
		"ICONS_DIR":          &cfg.Icons.Dir,
		"ICONS_DB_PATH":      &cfg.Icons.DBPath,
		"LOG_LEVEL":          &cfg.Logging.Level,
		"LOG_DIR":            &cfg.Logging.Dir,
	}
	for key, dst := range strs {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"REFRESH_INTERVAL": &cfg.Refresh.Interval,
		"REFRESH_TIMEOUT":  &cfg.Refresh.Timeout,
		"RELAY_TIMEOUT":    &cfg.Relay.Timeout,
	}
	for key, dst := range durations {
		v := os.Getenv(EnvPrefix + key)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return &domain.ConfigError{Field: EnvPrefix + key, Err: err}
		}
		*dst = d
	}

	if v := os.Getenv(EnvPrefix + "ICONS_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return &domain.ConfigError{Field: EnvPrefix + "ICONS_CONCURRENCY", Err: err}
		}
		cfg.Icons.Concurrency = n
	}
	return nil
}
