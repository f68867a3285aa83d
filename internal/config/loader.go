package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies PITSIM_* environment variable overrides, and
// returns the final Config. A missing file is not an error; the defaults plus
// environment are enough to run. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	// Legacy top-level log_level wins only if logging.level was untouched.
	if cfg.LogLevel != "" && cfg.Logging.Level == Defaults().Logging.Level {
		cfg.Logging.Level = cfg.LogLevel
	}

	return &cfg, nil
}

// applyEnvOverrides reads well-known PITSIM_* environment variables and
// overwrites the corresponding Config fields when a variable is set. The bare
// PORT variable is honored first so platform-injected ports work out of the
// box; PITSIM_SERVER_PORT wins over it.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setInt(&cfg.Server.Port, "PORT")
	setInt(&cfg.Server.Port, "PITSIM_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "PITSIM_SERVER_CORS_ORIGINS")

	// ── Market ──
	setDuration(&cfg.Market.TickInterval, "PITSIM_MARKET_TICK_INTERVAL")
	setFloat64(&cfg.Market.DriftRange, "PITSIM_MARKET_DRIFT_RANGE")
	setFloat64(&cfg.Market.PriceFloor, "PITSIM_MARKET_PRICE_FLOOR")
	setFloat64(&cfg.Market.ImpactPerUnit, "PITSIM_MARKET_IMPACT_PER_UNIT")
	setInt(&cfg.Market.LeaderboardSize, "PITSIM_MARKET_LEADERBOARD_SIZE")
	setInt(&cfg.Market.MaxNameLen, "PITSIM_MARKET_MAX_NAME_LEN")
	setStr(&cfg.Market.DefaultName, "PITSIM_MARKET_DEFAULT_NAME")
	setInt64(&cfg.Market.Seed, "PITSIM_MARKET_SEED")

	// ── Logging ──
	setStr(&cfg.Logging.Level, "PITSIM_LOG_LEVEL")
	setStr(&cfg.Logging.Dir, "PITSIM_LOG_DIR")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
