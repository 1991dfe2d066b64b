package collector

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"BoxSentinel/internal/model"
)

// DefaultCacheTTL is how long a downloaded window is reused.
const DefaultCacheTTL = 10 * time.Minute

// CachedFetcher keeps each (symbol, interval, window) response in a JSON file
// under Dir and serves it again while it is younger than TTL.
type CachedFetcher struct {
	Inner  Fetcher
	Dir    string
	TTL    time.Duration
	Logger *zap.Logger
	now    func() time.Time
}

// NewCachedFetcher wraps inner with a file cache.
func NewCachedFetcher(inner Fetcher, dir string, ttl time.Duration, logger *zap.Logger) *CachedFetcher {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedFetcher{Inner: inner, Dir: dir, TTL: ttl, Logger: logger, now: time.Now}
}

func (f *CachedFetcher) Name() string { return f.Inner.Name() + "+cache" }

type cacheEntry struct {
	StoredAt time.Time     `json:"stored_at"`
	Bars     []model.OHLCV `json:"bars"`
}

func (f *CachedFetcher) path(symbol string, interval model.Interval, start, end time.Time) string {
	key := fmt.Sprintf("%s|%s|%s|%s|%s", f.Inner.Name(), symbol, interval,
		start.Format(time.RFC3339), end.Format(time.RFC3339))
	sum := sha1.Sum([]byte(key))
	return filepath.Join(f.Dir, fmt.Sprintf("%s_%s_%s.json", symbol, interval, hex.EncodeToString(sum[:6])))
}

func (f *CachedFetcher) FetchBars(ctx context.Context, symbol string, interval model.Interval, start, end time.Time) ([]model.OHLCV, error) {
	p := f.path(symbol, interval, start, end)
	if data, err := os.ReadFile(p); err == nil {
		var e cacheEntry
		if err := json.Unmarshal(data, &e); err == nil && f.now().Sub(e.StoredAt) < f.TTL {
			f.Logger.Debug("cache hit", zap.String("symbol", symbol), zap.String("interval", string(interval)))
			return e.Bars, nil
		}
	}

	bars, err := f.Inner.FetchBars(ctx, symbol, interval, start, end)
	if err != nil {
		return nil, err
	}
	if err := f.store(p, bars); err != nil {
		f.Logger.Warn("cache write failed", zap.String("path", p), zap.Error(err))
	}
	return bars, nil
}

// store writes through a temp file so readers never see a partial entry.
func (f *CachedFetcher) store(p string, bars []model.OHLCV) error {
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(cacheEntry{StoredAt: f.now(), Bars: bars})
	if err != nil {
		return err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}
