package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"BoxSentinel/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_DefaultsWhenMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backtest.Params != model.DefaultStrategyParams() {
		t.Errorf("params = %+v, want defaults", cfg.Backtest.Params)
	}
	if cfg.DataSource.CacheTTL != 10*time.Minute || cfg.Screener.Ratio != 1.1 || cfg.Screener.WindowDays != 7 {
		t.Errorf("unexpected defaults %+v %+v", cfg.DataSource, cfg.Screener)
	}
	if cfg.Schedule.ScanCron != "0 30 22 * * 1-5" {
		t.Errorf("scan cron = %q", cfg.Schedule.ScanCron)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.TelegramEnabled() {
		t.Error("telegram should be disabled without credentials")
	}
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	path := writeConfig(t, `
watchlist: [aapl, " msft ", AAPL]
data_source:
  cache_ttl: 90s
backtest:
  interval: 1wk
  params:
    boxp: 30
    first_occurrence_only: true
  annualization:
    1wk: 50
`)
	t.Setenv("WATCHLIST", "")
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("TELEGRAM_CHAT_ID", "7")
	t.Setenv("CRON_SCAN", "0 0 21 * * 1-5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Watchlist) != 2 || cfg.Watchlist[0] != "AAPL" || cfg.Watchlist[1] != "MSFT" {
		t.Errorf("watchlist = %v", cfg.Watchlist)
	}
	if len(cfg.Screener.Symbols) != 2 {
		t.Errorf("screener symbols should default to the watchlist, got %v", cfg.Screener.Symbols)
	}
	if cfg.DataSource.CacheTTL != 90*time.Second {
		t.Errorf("cache ttl = %v", cfg.DataSource.CacheTTL)
	}
	p := cfg.Backtest.Params
	if p.BoxPeriod != 30 || !p.FirstOccurrenceOnly || p.FastMAL != 3 {
		t.Errorf("params should merge over defaults, got %+v", p)
	}
	if cfg.Backtest.Annualization["1wk"] != 50 {
		t.Errorf("annualization = %v", cfg.Backtest.Annualization)
	}
	if !cfg.TelegramEnabled() || cfg.Schedule.ScanCron != "0 0 21 * * 1-5" {
		t.Errorf("env overrides not applied: %+v %+v", cfg.Telegram, cfg.Schedule)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"half telegram", func(c *Config) { c.Telegram.BotToken = "tok" }},
		{"bad interval", func(c *Config) { c.Backtest.Interval = "3d" }},
		{"bad params", func(c *Config) { c.Backtest.Params.BoxPeriod = 0 }},
		{"bad annualization", func(c *Config) { c.Backtest.Annualization = map[string]float64{"1d": 0} }},
		{"bad ratio", func(c *Config) { c.Screener.Ratio = -1 }},
		{"bad cron", func(c *Config) { c.Schedule.VolumeCron = "every monday" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
			if err != nil {
				t.Fatal(err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg, _ := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	cfg.Backtest.Params.Sensitivity = 0
	if err := cfg.Validate(); !errors.Is(err, model.ErrParameterOutOfRange) {
		t.Errorf("params error should wrap ErrParameterOutOfRange, got %v", err)
	}
}

func TestSplitSymbols(t *testing.T) {
	got := normalizeSymbols(splitSymbols("aapl, msft;tsla  nvda,,aapl"))
	want := []string{"AAPL", "MSFT", "TSLA", "NVDA"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
