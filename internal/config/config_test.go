package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, time.Second, cfg.Market.TickInterval.Duration)
	assert.Len(t, cfg.Market.Assets, 3)
	assert.Equal(t, 10, cfg.Market.LeaderboardSize)
	assert.Equal(t, 24, cfg.Market.MaxNameLen)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults().Server.Port, cfg.Server.Port)
}

func TestLoadMergesTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[server]
port = 9000

[market]
tick_interval = "250ms"
seed = 42

[[market.assets]]
id = "X"
price = 10.0

[logging]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.Market.TickInterval.Duration)
	assert.Equal(t, int64(42), cfg.Market.Seed)
	require.Len(t, cfg.Market.Assets, 1)
	assert.Equal(t, "X", cfg.Market.Assets[0].ID)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestPortEnvPrecedence(t *testing.T) {
	t.Setenv("PORT", "7001")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, 7001, cfg.Server.Port, "bare PORT overrides the default")

	t.Setenv("PITSIM_SERVER_PORT", "7002")
	cfg, err = Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, 7002, cfg.Server.Port, "PITSIM_SERVER_PORT wins over PORT")
}

func TestMarketEnvOverrides(t *testing.T) {
	t.Setenv("PITSIM_MARKET_TICK_INTERVAL", "100ms")
	t.Setenv("PITSIM_MARKET_SEED", "1234")
	t.Setenv("PITSIM_MARKET_DRIFT_RANGE", "0.1")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, 100*time.Millisecond, cfg.Market.TickInterval.Duration)
	assert.Equal(t, int64(1234), cfg.Market.Seed)
	assert.Equal(t, 0.1, cfg.Market.DriftRange)
}

func TestValidateCatchesBadValues(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Port = 0
	cfg.Market.PriceFloor = 0
	cfg.Market.Assets = append(cfg.Market.Assets, AssetConfig{ID: "A", Price: 1})
	cfg.Logging.Level = "verbose"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port")
	assert.Contains(t, err.Error(), "price_floor")
	assert.Contains(t, err.Error(), "duplicate asset id")
	assert.Contains(t, err.Error(), "unknown level")
}
