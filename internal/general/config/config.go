package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/drone/envsubst"
	"github.com/subosito/gotenv"
	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"database"`
	} `yaml:"database"`

	RabbitMQ struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
	} `yaml:"rabbitmq"`

	Services struct {
		RequestServicePort int `yaml:"request_service"`
		RelayServicePort   int `yaml:"relay_service"`
	} `yaml:"services"`

	JWT struct {
		SecretKey string `yaml:"secret_key"`
	} `yaml:"jwt"`

	Estimator struct {
		GeocodingURL string                    `yaml:"geocoding_url"`
		RoutingURL   string                    `yaml:"routing_url"`
		Tariffs      map[string]TariffOverride `yaml:"tariffs"`
	} `yaml:"estimator"`

	Tracking struct {
		BackendURL         string `yaml:"backend_url"`
		RelayURL           string `yaml:"relay_url"`
		PollSeconds        int    `yaml:"poll_seconds"`
		CancelWindowSecond int    `yaml:"cancel_window_seconds"`
		FailureThreshold   int    `yaml:"failure_threshold"`
	} `yaml:"tracking"`
}

// TariffOverride holds per-service pricing coefficients from the estimator
// config section. Nil fields keep the built-in value, so an operator can
// change a single rate without restating the whole table.
type TariffOverride struct {
	BaseFare     *float64 `yaml:"base_fare"`
	DayPerKM     *float64 `yaml:"day_per_km"`
	NightPerKM   *float64 `yaml:"night_per_km"`
	PrepMinutes  *int     `yaml:"prep_minutes"`
	MinutesPerKM *float64 `yaml:"minutes_per_km"`
}

// LoadFromFile loads .env, expands ${VAR:-default} references in the YAML
// file, unmarshals it, applies defaults, and validates required fields.
func LoadFromFile(path string) (*Config, error) {
	// best effort: a missing .env just means the environment is already set
	if err := gotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	replaced, err := envsubst.EvalEnv(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to expand env references: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(replaced), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// PollInterval returns the tracker poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Tracking.PollSeconds) * time.Second
}

// CancelWindow returns the tracker cancellation window as a duration.
func (c *Config) CancelWindow() time.Duration {
	return time.Duration(c.Tracking.CancelWindowSecond) * time.Second
}

// applyDefaults sets safe defaults for some fields.
func applyDefaults(cfg *Config) {
	// Database
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}

	// RabbitMQ
	if cfg.RabbitMQ.Host == "" {
		cfg.RabbitMQ.Host = "localhost"
	}
	if cfg.RabbitMQ.Port == 0 {
		cfg.RabbitMQ.Port = 5672
	}

	// Services
	if cfg.Services.RequestServicePort == 0 {
		cfg.Services.RequestServicePort = 3000
	}
	if cfg.Services.RelayServicePort == 0 {
		cfg.Services.RelayServicePort = 3002
	}

	if cfg.JWT.SecretKey == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			// fallback: time-based bytes
			key = []byte(fmt.Sprintf("%d", time.Now().UnixNano()))
		}
		cfg.JWT.SecretKey = base64.StdEncoding.EncodeToString(key)
	}

	// Tracking
	if cfg.Tracking.BackendURL == "" {
		cfg.Tracking.BackendURL = fmt.Sprintf("http://localhost:%d", cfg.Services.RequestServicePort)
	}
	if cfg.Tracking.PollSeconds == 0 {
		cfg.Tracking.PollSeconds = 5
	}
	if cfg.Tracking.CancelWindowSecond == 0 {
		cfg.Tracking.CancelWindowSecond = 90
	}
	if cfg.Tracking.FailureThreshold == 0 {
		cfg.Tracking.FailureThreshold = 3
	}
}

// validate checks required fields and basic ranges.
func (c *Config) validate() error {
	var problems []string

	// DB
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		problems = append(problems, "database.port must be in 1..65535")
	}
	if c.Database.User == "" {
		problems = append(problems, "database.user is required")
	}
	if c.Database.Password == "" {
		problems = append(problems, "database.password is required")
	}
	if c.Database.Name == "" {
		problems = append(problems, "database.database is required")
	}

	// RabbitMQ
	if c.RabbitMQ.Port <= 0 || c.RabbitMQ.Port > 65535 {
		problems = append(problems, "rabbitmq.port must be in 1..65535")
	}
	if c.RabbitMQ.User == "" {
		problems = append(problems, "rabbitmq.user is required")
	}
	if c.RabbitMQ.Password == "" {
		problems = append(problems, "rabbitmq.password is required")
	}

	// Services
	if c.Services.RequestServicePort <= 0 || c.Services.RequestServicePort > 65535 {
		problems = append(problems, "services.request_service must be in 1..65535")
	}
	if c.Services.RelayServicePort <= 0 || c.Services.RelayServicePort > 65535 {
		problems = append(problems, "services.relay_service must be in 1..65535")
	}

	// Estimator
	for name, tariff := range c.Estimator.Tariffs {
		if tariff.BaseFare != nil && *tariff.BaseFare < 0 {
			problems = append(problems, fmt.Sprintf("estimator.tariffs.%s.base_fare must be >= 0", name))
		}
		if tariff.DayPerKM != nil && *tariff.DayPerKM < 0 {
			problems = append(problems, fmt.Sprintf("estimator.tariffs.%s.day_per_km must be >= 0", name))
		}
		if tariff.NightPerKM != nil && *tariff.NightPerKM < 0 {
			problems = append(problems, fmt.Sprintf("estimator.tariffs.%s.night_per_km must be >= 0", name))
		}
		if tariff.PrepMinutes != nil && *tariff.PrepMinutes < 0 {
			problems = append(problems, fmt.Sprintf("estimator.tariffs.%s.prep_minutes must be >= 0", name))
		}
		if tariff.MinutesPerKM != nil && *tariff.MinutesPerKM <= 0 {
			problems = append(problems, fmt.Sprintf("estimator.tariffs.%s.minutes_per_km must be > 0", name))
		}
	}

	// Tracking
	if c.Tracking.PollSeconds < 1 {
		problems = append(problems, "tracking.poll_seconds must be >= 1")
	}
	if c.Tracking.CancelWindowSecond < 1 {
		problems = append(problems, "tracking.cancel_window_seconds must be >= 1")
	}
	if c.Tracking.FailureThreshold < 1 {
		problems = append(problems, "tracking.failure_threshold must be >= 1")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
