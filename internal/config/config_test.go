package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() *Config {
	return &Config{
		Symbols: []SymbolConfig{
			{Name: "BTCUSDT", Enabled: true, Class: "crypto", PointSize: 0.1},
		},
		RiskTiers: map[string]RiskTierConfig{
			"crypto": {RiskPerTradePct: 0.01, MaxDailyLossPct: 0.05},
		},
		Gateway: GatewayConfig{DryRun: true},
	}
}

func TestValidateAcceptsDefaultRiskTier(t *testing.T) {
	cfg := baseConfig()
	cfg.RiskTiers["default"] = RiskTierConfig{RiskPerTradePct: 0.005, MaxDailyLossPct: 0.03}
	assert.NoError(t, validate(cfg))
}

func TestValidateRejectsUnknownRiskTier(t *testing.T) {
	cfg := baseConfig()
	cfg.RiskTiers["bonds"] = RiskTierConfig{RiskPerTradePct: 0.01}
	assert.ErrorContains(t, validate(cfg), "risk_tiers")
}

func TestValidateRejectsDuplicateSymbols(t *testing.T) {
	cfg := baseConfig()
	cfg.Symbols = append(cfg.Symbols, cfg.Symbols[0])
	assert.ErrorContains(t, validate(cfg), "duplicate")
}

func TestValidateRejectsUnknownSymbolClass(t *testing.T) {
	cfg := baseConfig()
	cfg.Symbols[0].Class = "meme"
	assert.ErrorContains(t, validate(cfg), "unknown class")
}

func TestValidateRequiresCredentialsOutsideDryRun(t *testing.T) {
	cfg := baseConfig()
	cfg.Gateway.DryRun = false
	assert.ErrorContains(t, validate(cfg), "api_key")
}

const sampleYAML = `
engine:
  interval: 1m
  timeframes: [5m, 15m]
symbols:
  - name: BTCUSDT
    enabled: true
    class: crypto
    point_size: 0.1
  - name: EURUSD
    enabled: true
    class: currency
    point_size: 0.0001
    min_stop_distance: 0.0008
risk_tiers:
  crypto:
    risk_per_trade_pct: 0.01
    max_daily_loss_pct: 0.05
  default:
    risk_per_trade_pct: 0.005
    max_daily_loss_pct: 0.03
gateway:
  dry_run: true
`

func TestLoadConfigWithDefaultTier(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	// The fallback tier loads alongside the explicit class tiers and picks
	// up defaults for the fields the file leaves unset.
	def, ok := cfg.RiskTiers["default"]
	require.True(t, ok)
	assert.Equal(t, 0.005, def.RiskPerTradePct)
	assert.Equal(t, 1.5, def.RewardRiskRatio)
	assert.Equal(t, 0.01, cfg.RiskTiers["crypto"].RiskPerTradePct)
	assert.Equal(t, []string{"5m", "15m"}, cfg.Engine.Timeframes)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
