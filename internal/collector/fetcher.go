package collector

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"BoxSentinel/internal/model"
)

// ErrNoData is returned when a provider answers but has no bars for the request.
var ErrNoData = errors.New("no data returned")

// Fetcher defines the interface for fetching price history.
// A zero start or end leaves that side of the window open; end is inclusive.
type Fetcher interface {
	FetchBars(ctx context.Context, symbol string, interval model.Interval, start, end time.Time) ([]model.OHLCV, error)
	Name() string
}

// Source selects the price provider.
type Source struct {
	CSVDir   string
	BaseURL  string
	APIKey   string
	Proxy    string
	CacheDir string
	CacheTTL time.Duration
}

// NewFetcher picks local CSV files when a directory is given, then the REST
// provider, then Yahoo. Remote providers are wrapped in the file cache.
func NewFetcher(src Source, logger *zap.Logger) Fetcher {
	if src.CSVDir != "" {
		return &CSVFetcher{Dir: src.CSVDir}
	}
	var f Fetcher
	if src.BaseURL != "" {
		f = NewRESTFetcher(src.BaseURL, src.APIKey, src.Proxy)
	} else {
		f = NewYahooFetcher(src.Proxy)
	}
	if src.CacheDir == "" || src.CacheTTL <= 0 {
		return f
	}
	return NewCachedFetcher(f, src.CacheDir, src.CacheTTL, logger)
}

// newHTTPClient builds a client with an optional proxy.
func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}

// clip keeps the bars inside [start, end]; zero bounds are open.
func clip(bars []model.OHLCV, start, end time.Time) []model.OHLCV {
	out := bars[:0:0]
	for _, b := range bars {
		if !start.IsZero() && b.Time.Before(model.Naive(start)) {
			continue
		}
		if !end.IsZero() && b.Time.After(endOfDay(end)) {
			continue
		}
		out = append(out, b)
	}
	return out
}

func endOfDay(t time.Time) time.Time {
	n := model.Naive(t)
	if n.Hour() == 0 && n.Minute() == 0 && n.Second() == 0 && n.Nanosecond() == 0 {
		return n.Add(24*time.Hour - time.Nanosecond)
	}
	return n
}
