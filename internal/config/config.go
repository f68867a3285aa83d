// Package config defines the top-level configuration for the simulation
// server and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by PITSIM_* environment variables.
type Config struct {
	Server   ServerConfig  `toml:"server"`
	Market   MarketConfig  `toml:"market"`
	Logging  LoggingConfig `toml:"logging"`
	LogLevel string        `toml:"log_level"` // deprecated alias for logging.level
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// AssetConfig seeds one tradable asset.
type AssetConfig struct {
	ID    string  `toml:"id"`
	Price float64 `toml:"price"`
}

// MarketConfig holds the simulation parameters.
type MarketConfig struct {
	TickInterval    duration      `toml:"tick_interval"`
	DriftRange      float64       `toml:"drift_range"`
	PriceFloor      float64       `toml:"price_floor"`
	ImpactPerUnit   float64       `toml:"impact_per_unit"`
	LeaderboardSize int           `toml:"leaderboard_size"`
	MaxNameLen      int           `toml:"max_name_len"`
	DefaultName     string        `toml:"default_name"`
	Seed            int64         `toml:"seed"` // 0 seeds from the clock
	Assets          []AssetConfig `toml:"assets"`
}

// LoggingConfig holds logger parameters. Dir empty disables the rotating file
// sink.
type LoggingConfig struct {
	Level string `toml:"level"`
	Dir   string `toml:"dir"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "1s", "250ms").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with the stock demo market: three
// assets, one drift cycle per second, four-cent drift, 0.2% price impact per
// unit traded, top-10 leaderboard.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{},
		},
		Market: MarketConfig{
			TickInterval:    duration{time.Second},
			DriftRange:      0.04,
			PriceFloor:      0.01,
			ImpactPerUnit:   0.002,
			LeaderboardSize: 10,
			MaxNameLen:      24,
			DefaultName:     "anonymous",
			Seed:            0,
			Assets: []AssetConfig{
				{ID: "A", Price: 100},
				{ID: "B", Price: 50},
				{ID: "C", Price: 25},
			},
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "",
		},
	}
}

// validLogLevels enumerates the accepted values for LoggingConfig.Level.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}

	if c.Market.TickInterval.Duration <= 0 {
		errs = append(errs, "market: tick_interval must be positive")
	}
	if c.Market.DriftRange < 0 {
		errs = append(errs, "market: drift_range must not be negative")
	}
	if c.Market.PriceFloor <= 0 {
		errs = append(errs, "market: price_floor must be positive")
	}
	if c.Market.ImpactPerUnit < 0 {
		errs = append(errs, "market: impact_per_unit must not be negative")
	}
	if c.Market.LeaderboardSize < 1 {
		errs = append(errs, "market: leaderboard_size must be >= 1")
	}
	if c.Market.MaxNameLen < 1 {
		errs = append(errs, "market: max_name_len must be >= 1")
	}
	if len(c.Market.Assets) == 0 {
		errs = append(errs, "market: at least one asset must be defined")
	}
	seen := make(map[string]bool, len(c.Market.Assets))
	for _, a := range c.Market.Assets {
		if a.ID == "" {
			errs = append(errs, "market: asset id must not be empty")
			continue
		}
		if seen[a.ID] {
			errs = append(errs, fmt.Sprintf("market: duplicate asset id %q", a.ID))
		}
		seen[a.ID] = true
		if a.Price < c.Market.PriceFloor {
			errs = append(errs, fmt.Sprintf("market: asset %q initial price %.4f is below the price floor", a.ID, a.Price))
		}
	}

	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("logging: unknown level %q (valid: debug, info, warn, error)", c.Logging.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
