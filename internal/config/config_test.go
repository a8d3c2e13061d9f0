package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFillsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, "config.yaml", `
market:
  symbol: BTCUSDT
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.App.Env)
	assert.Equal(t, ":9985", cfg.App.HTTPAddr)
	assert.Equal(t, 1000, cfg.Market.HistorySize)
	assert.Equal(t, "binance", cfg.Market.PrimarySource)
	assert.Equal(t, "paper", cfg.Exchange.Mode)
	assert.Equal(t, int64(1_000_000), cfg.Exchange.InitialBalanceSats)
	assert.Equal(t, "fusion", cfg.Strategy.Active)
	assert.Equal(t, 9, cfg.Strategy.FastPeriod)
	assert.Equal(t, 21, cfg.Strategy.SlowPeriod)
	assert.Greater(t, cfg.Strategy.FusionThreshold, cfg.Strategy.BasicThreshold)
	assert.NotEmpty(t, cfg.Strategy.Weights)
	assert.Equal(t, 3, cfg.Risk.MaxOpenPositions)
	assert.Equal(t, int64(10_000), cfg.Risk.ReserveSats)
	assert.Equal(t, "1m", cfg.Agent.CycleInterval)
	assert.Equal(t, 300, cfg.Agent.PanicTTLSeconds)
}

func TestLoadExplicitValuesSurviveDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, "config.yaml", `
market:
  symbol: ETHUSDT
  history_size: 500
risk:
  reserve_sats: 25000
agent:
  cycle_interval: 30s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ETHUSDT", cfg.Market.Symbol)
	assert.Equal(t, 500, cfg.Market.HistorySize)
	assert.Equal(t, int64(25_000), cfg.Risk.ReserveSats)
	assert.Equal(t, "30s", cfg.Agent.CycleInterval)
}

func TestLoadMergesIncludes(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "risk.yaml", `
risk:
  max_open_positions: 1
  daily_loss_limit_sats: 20000
`)
	path := writeConfigFile(t, dir, "config.yaml", `
include:
  - risk.yaml
market:
  symbol: BTCUSDT
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	// 主文件在 include 之后合并，include 里的值对未覆盖字段生效
	assert.Equal(t, 1, cfg.Risk.MaxOpenPositions)
	assert.Equal(t, int64(20_000), cfg.Risk.DailyLossLimitSats)
	assert.Equal(t, "BTCUSDT", cfg.Market.Symbol)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "fusion threshold below basic",
			content: `
strategy:
  fusion_threshold: 0.2
  basic_threshold: 0.3
`,
			wantErr: "fusion_threshold",
		},
		{
			name: "fast period not below slow",
			content: `
strategy:
  fast_period: 30
  slow_period: 21
`,
			wantErr: "fast_period",
		},
		{
			name: "bad cycle interval",
			content: `
agent:
  cycle_interval: fortnight
`,
			wantErr: "cycle_interval",
		},
		{
			name: "panic ttl too short",
			content: `
agent:
  panic_ttl_seconds: 5
`,
			wantErr: "panic_ttl_seconds",
		},
		{
			name: "http source without url",
			content: `
market:
  primary_source: http
`,
			wantErr: "fallback_url",
		},
		{
			name: "events enabled without brokers",
			content: `
events:
  enabled: true
`,
			wantErr: "brokers",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeConfigFile(t, dir, "config.yaml", tc.content)
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadDetectsIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "a.yaml", "include: [b.yaml]\n")
	writeConfigFile(t, dir, "b.yaml", "include: [a.yaml]\n")

	_, err := Load(filepath.Join(dir, "a.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}
