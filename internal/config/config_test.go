package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 100_000.0, cfg.LockHeuristicUSD)
	assert.Equal(t, 5, cfg.MaxConcurrentLookups)
	assert.Equal(t, 60*time.Second, cfg.MarketCacheTTL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "9090")
	t.Setenv("ETHERSCAN_API_KEY", "secret")
	t.Setenv("MAX_CONCURRENT_LOOKUPS", "12")
	t.Setenv("BREAKER_COOLDOWN", "2m")
	t.Setenv("SIGNING_ENABLED", "true")
	t.Setenv("ETHERSCAN_RPS", "not-a-number")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "secret", cfg.EtherscanAPIKey)
	assert.Equal(t, 12, cfg.MaxConcurrentLookups)
	assert.Equal(t, 2*time.Minute, cfg.BreakerCooldown)
	assert.True(t, cfg.SigningEnabled)
	assert.Equal(t, 5.0, cfg.EtherscanRPS, "invalid values fall back to the default")
}

func TestLoadFile_OverlayAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"port": "7000",
		"max_tokens": 10,
		"market_cache_ttl": "5m",
		"lock_heuristic_usd": 250000
	}`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("MAX_TOKENS", "20")

	cfg := Load()

	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, 20, cfg.MaxTokens, "env wins over file")
	assert.Equal(t, 5*time.Minute, cfg.MarketCacheTTL)
	assert.Equal(t, 250_000.0, cfg.LockHeuristicUSD)
	assert.Equal(t, "https://api.dexscreener.com/latest/dex/tokens", cfg.DexScreenerURL, "untouched fields keep defaults")
}

func TestLoadFile_Errors(t *testing.T) {
	base := Default()

	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"), base)
	assert.ErrorContains(t, err, "failed to read config file")

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"breaker_cooldown": "soon"}`), 0o600))
	_, err = LoadFile(bad, base)
	assert.ErrorContains(t, err, "failed to parse config file")
}
