package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"BoxSentinel/internal/model"
)

// RESTFetcher implements Fetcher against a generic bars endpoint:
//
//	GET {base}/api/v1/bars?symbol=AAPL&interval=1d&start=2024-01-02&end=2024-06-28
//
// answering with a JSON array of {timestamp, open, high, low, close, volume}.
type RESTFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewRESTFetcher creates a new fetcher with optional proxy support.
func NewRESTFetcher(baseURL, apiKey, proxyURL string) *RESTFetcher {
	return &RESTFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL),
	}
}

func (f *RESTFetcher) Name() string { return "rest" }

// restBar is the expected JSON shape from the bars API.
type restBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// FetchBars requests the interval directly. Weekly requests the API cannot
// serve fall back to daily bars aggregated by ISO week.
func (f *RESTFetcher) FetchBars(ctx context.Context, symbol string, interval model.Interval, start, end time.Time) ([]model.OHLCV, error) {
	bars, err := f.fetchBars(ctx, f.endpoint(symbol, interval, start, end))
	if err == nil || interval != model.Interval1wk {
		return bars, err
	}
	daily, dailyErr := f.fetchBars(ctx, f.endpoint(symbol, model.Interval1d, start, end))
	if dailyErr != nil {
		return nil, fmt.Errorf("weekly fetch failed: %w; daily fallback also failed: %w", err, dailyErr)
	}
	return aggregateDailyToWeekly(daily), nil
}

func (f *RESTFetcher) endpoint(symbol string, interval model.Interval, start, end time.Time) string {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", string(interval))
	if !start.IsZero() {
		q.Set("start", start.Format("2006-01-02"))
	}
	if !end.IsZero() {
		q.Set("end", end.Format("2006-01-02"))
	}
	return fmt.Sprintf("%s/api/v1/bars?%s", f.BaseURL, q.Encode())
}

func (f *RESTFetcher) fetchBars(ctx context.Context, endpoint string) ([]model.OHLCV, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetch bars: status %d, body: %s", resp.StatusCode, string(body))
	}
	var raw []restBar
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrNoData
	}
	bars := make([]model.OHLCV, len(raw))
	for i, rb := range raw {
		bars[i] = model.OHLCV{
			Time:   time.Unix(rb.Timestamp, 0).UTC(),
			Open:   rb.Open,
			High:   rb.High,
			Low:    rb.Low,
			Close:  rb.Close,
			Volume: rb.Volume,
		}
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

// aggregateDailyToWeekly converts daily bars into ISO-week bars stamped with
// the first session of each week.
func aggregateDailyToWeekly(daily []model.OHLCV) []model.OHLCV {
	var weekly []model.OHLCV
	key := -1
	for _, d := range daily {
		y, w := d.Time.ISOWeek()
		if k := y*100 + w; k != key {
			weekly = append(weekly, d)
			key = k
			continue
		}
		cur := &weekly[len(weekly)-1]
		cur.High = max(cur.High, d.High)
		cur.Low = min(cur.Low, d.Low)
		cur.Close = d.Close
		cur.Volume += d.Volume
	}
	return weekly
}
