package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"BoxSentinel/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		BaseURL  string        `yaml:"base_url"`
		APIKey   string        `yaml:"api_key"`
		CSVDir   string        `yaml:"csv_dir"`
		CacheDir string        `yaml:"cache_dir"`
		CacheTTL time.Duration `yaml:"cache_ttl"`
	} `yaml:"data_source"`
	Watchlist []string `yaml:"watchlist"`
	Backtest  struct {
		Interval      string               `yaml:"interval"`
		LookbackDays  int                  `yaml:"lookback_days"`
		Params        model.StrategyParams `yaml:"params"`
		Annualization map[string]float64   `yaml:"annualization"`
		SendChart     bool                 `yaml:"send_chart"`
	} `yaml:"backtest"`
	Screener struct {
		Symbols    []string `yaml:"symbols"`
		Ratio      float64  `yaml:"ratio"`
		WindowDays int      `yaml:"window_days"`
	} `yaml:"screener"`
	Schedule struct {
		ScanCron    string `yaml:"scan_cron"`
		VolumeCron  string `yaml:"volume_cron"`
		SummaryCron string `yaml:"summary_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Portfolio struct {
		StateFile string `yaml:"state_file"`
	} `yaml:"portfolio"`
	API struct {
		Addr string `yaml:"addr"`
	} `yaml:"api"`
	Log struct {
		Development bool `yaml:"development"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads a .env file when present, then the YAML config, then applies
// environment variable overrides and defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.Backtest.Params = model.DefaultStrategyParams()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("DATA_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("CSV_DIR"); v != "" {
		cfg.DataSource.CSVDir = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("API_ADDR"); v != "" {
		cfg.API.Addr = v
	}
	if v := os.Getenv("WATCHLIST"); v != "" {
		cfg.Watchlist = splitSymbols(v)
	}
	if v := os.Getenv("CRON_SCAN"); v != "" {
		cfg.Schedule.ScanCron = v
	}

	// Defaults
	if cfg.DataSource.CacheDir == "" {
		cfg.DataSource.CacheDir = "data/cache"
	}
	if cfg.DataSource.CacheTTL == 0 {
		cfg.DataSource.CacheTTL = 10 * time.Minute
	}
	if cfg.Backtest.Interval == "" {
		cfg.Backtest.Interval = string(model.Interval1d)
	}
	if cfg.Backtest.LookbackDays == 0 {
		cfg.Backtest.LookbackDays = 730
	}
	if len(cfg.Screener.Symbols) == 0 {
		cfg.Screener.Symbols = cfg.Watchlist
	}
	if cfg.Screener.Ratio == 0 {
		cfg.Screener.Ratio = 1.1
	}
	if cfg.Screener.WindowDays == 0 {
		cfg.Screener.WindowDays = 7
	}
	if cfg.Schedule.ScanCron == "" {
		cfg.Schedule.ScanCron = "0 30 22 * * 1-5"
	}
	if cfg.Schedule.VolumeCron == "" {
		cfg.Schedule.VolumeCron = "0 0 8 * * 1"
	}
	if cfg.Schedule.SummaryCron == "" {
		cfg.Schedule.SummaryCron = "0 0 18 * * 5"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/box_sentinel.db"
	}
	if cfg.Portfolio.StateFile == "" {
		cfg.Portfolio.StateFile = "data/portfolio.json"
	}
	if cfg.API.Addr == "" {
		cfg.API.Addr = ":8080"
	}
	cfg.Watchlist = normalizeSymbols(cfg.Watchlist)
	cfg.Screener.Symbols = normalizeSymbols(cfg.Screener.Symbols)

	return cfg, nil
}

// Validate checks the fields the service cannot run without. Telegram is
// optional: without it notifications are only logged.
func (c *Config) Validate() error {
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	if _, err := model.ParseInterval(c.Backtest.Interval); err != nil {
		return fmt.Errorf("backtest.interval: %w", err)
	}
	if c.Backtest.LookbackDays < 0 {
		return fmt.Errorf("backtest.lookback_days must not be negative")
	}
	if err := c.Backtest.Params.Validate(); err != nil {
		return fmt.Errorf("backtest.params: %w", err)
	}
	for iv, v := range c.Backtest.Annualization {
		if v <= 0 {
			return fmt.Errorf("backtest.annualization[%s] must be positive", iv)
		}
	}
	if c.Screener.Ratio <= 0 {
		return fmt.Errorf("screener.ratio must be positive")
	}
	if c.Screener.WindowDays <= 0 {
		return fmt.Errorf("screener.window_days must be positive")
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	for name, expr := range map[string]string{
		"schedule.scan_cron":    c.Schedule.ScanCron,
		"schedule.volume_cron":  c.Schedule.VolumeCron,
		"schedule.summary_cron": c.Schedule.SummaryCron,
	} {
		if _, err := parser.Parse(expr); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// TelegramEnabled reports whether a bot is configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Lookback is the default backtest window.
func (c *Config) Lookback() time.Duration {
	return time.Duration(c.Backtest.LookbackDays) * 24 * time.Hour
}

func splitSymbols(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' || r == ' ' })
}

func normalizeSymbols(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
