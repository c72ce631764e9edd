package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Backend    BackendConfig    `yaml:"backend"`
	Store      StoreConfig      `yaml:"store"`
	Redis      RedisConfig      `yaml:"redis"`
	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	API        APIConfig        `yaml:"api"`
	Poller     PollerConfig     `yaml:"poller"`
	Venue      VenueConfig      `yaml:"venue"`
	Exports    ExportConfig     `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

// BackendConfig describes the Coffee Beat REST backend.
type BackendConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Timeout        time.Duration `yaml:"timeout"`
	RequestsPerSec float64       `yaml:"requests_per_sec"`
	Burst          int           `yaml:"burst"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	Port      int                `yaml:"port"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key  string `yaml:"key"`
	Name string `yaml:"name"`
	Role string `yaml:"role"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type PollerConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// VenueConfig pins the timezone the coarse booking slots are interpreted in.
type VenueConfig struct {
	Timezone string `yaml:"timezone"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; environment variables referenced from the YAML file
	// may come from the process environment as well.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return errors.New("backend base_url is required")
	}
	if c.Store.Path == "" {
		return errors.New("store path is required")
	}
	if c.Venue.Timezone != "" {
		if _, err := time.LoadLocation(c.Venue.Timezone); err != nil {
			return fmt.Errorf("invalid venue timezone %q: %w", c.Venue.Timezone, err)
		}
	}
	return nil
}

// VenueLocation resolves the configured timezone, defaulting to local time.
func (c *Config) VenueLocation() *time.Location {
	if c.Venue.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Venue.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "coffeebeat-agent"
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = 15 * time.Second
	}
	if c.Backend.RequestsPerSec == 0 {
		c.Backend.RequestsPerSec = 10
	}
	if c.Backend.Burst == 0 {
		c.Backend.Burst = 20
	}
	if c.API.Port == 0 {
		c.API.Port = 8090
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Poller.Interval == 0 {
		c.Poller.Interval = 60 * time.Second
	}
	if c.Poller.Interval < 30*time.Second {
		c.Poller.Interval = 30 * time.Second
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
