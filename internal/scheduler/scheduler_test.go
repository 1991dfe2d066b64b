package scheduler

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"BoxSentinel/internal/collector"
	"BoxSentinel/internal/model"
	"BoxSentinel/internal/portfolio"
	"BoxSentinel/internal/recorder"
	"BoxSentinel/internal/screener"
	"BoxSentinel/internal/strategy"
)

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
	docs     []string
}

func (f *fakeNotifier) Send(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
	return nil
}

func (f *fakeNotifier) SendWithRetry(_ context.Context, text string, _ int) error { return f.Send(text) }

func (f *fakeNotifier) SendDocument(_ context.Context, filename string, _ []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = append(f.docs, filename)
	return nil
}

func newTestScheduler(t *testing.T) (*Scheduler, *fakeNotifier) {
	t.Helper()
	dir := t.TempDir()
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(dir, "test.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { rec.Close() })
	book, err := portfolio.NewBook(filepath.Join(dir, "portfolio.json"), nil)
	if err != nil {
		t.Fatal(err)
	}
	col := collector.NewCollector(&collector.MockFetcher{Price: 100}, nil)
	fn := &fakeNotifier{}
	s := NewScheduler(context.Background(), strategy.NewRunner(col, nil), screener.NewVolumeScreener(col, nil),
		book, fn, rec, nil)
	return s, fn
}

func hitReport(symbol string, side model.Side) *strategy.ScanReport {
	t0 := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	res := &model.BacktestResult{
		Symbol:   symbol,
		Interval: model.Interval1d,
		Bars: []model.OHLCV{
			{Time: t0, Open: 10, High: 11, Low: 9, Close: 10},
			{Time: t0.AddDate(0, 0, 1), Open: 10, High: 12, Low: 10, Close: 11.5},
		},
	}
	return &strategy.ScanReport{
		RunID:    "run-1",
		Interval: model.Interval1d,
		Hits:     []model.ScanHit{{Symbol: symbol, Side: side, Result: res}},
	}
}

func TestAlertHits_SendsEachSignalOnce(t *testing.T) {
	s, fn := newTestScheduler(t)
	s.SendChart = true

	if n := s.alertHits(context.Background(), hitReport("AAPL", model.SideBuy)); n != 1 {
		t.Fatalf("first scan sent %d alerts, want 1", n)
	}
	if n := s.alertHits(context.Background(), hitReport("AAPL", model.SideBuy)); n != 0 {
		t.Fatalf("repeat scan sent %d alerts, want 0", n)
	}
	if n := s.alertHits(context.Background(), hitReport("AAPL", model.SideSell)); n != 1 {
		t.Fatalf("opposite side on the same bar sent %d alerts, want 1", n)
	}
	if len(fn.messages) != 2 || !strings.Contains(fn.messages[0], "BUY") {
		t.Fatalf("unexpected messages %q", fn.messages)
	}
	if len(fn.docs) != 2 || fn.docs[0] != "aapl_1d.svg" {
		t.Fatalf("unexpected documents %q", fn.docs)
	}
}

func TestHandleCommand(t *testing.T) {
	s, _ := newTestScheduler(t)
	ret := 0.31
	if err := s.Book.Upsert(model.Holding{Ticker: "NVDA", Quantity: 3, Return: &ret}); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	tests := []struct {
		command string
		want    string
	}{
		{"/portfolio", "Comprar PUT"},
		{"/register nvda", "Acción registrada"},
		{"/actions", "Total decisiones: 1"},
		{"/backtest", "Uso: /backtest"},
		{"/backtest AAPL 3d", "unknown interval"},
		{"/backtest@BoxSentinelBot aapl", "Darvas Box | AAPL"},
		{"/scan", "watchlist is empty"},
		{"/volume", "No se encontraron"},
		{"/register TSLA", "not in the portfolio"},
		{"hola", "/backtest SYMBOL"},
		{"", "/backtest SYMBOL"},
	}
	for _, tt := range tests {
		if got := s.HandleCommand(ctx, tt.command); !strings.Contains(got, tt.want) {
			t.Errorf("HandleCommand(%q) = %q, want it to contain %q", tt.command, got, tt.want)
		}
	}
}

func TestScan_RecordsRunAndReports(t *testing.T) {
	s, _ := newTestScheduler(t)
	s.Watchlist = []string{"AAPL", "MSFT"}
	got := s.HandleCommand(context.Background(), "/scan")
	if !strings.Contains(got, "Símbolos: 2") {
		t.Fatalf("unexpected scan report %q", got)
	}
}

func TestRegisterAll_RejectsBadCron(t *testing.T) {
	s, _ := newTestScheduler(t)
	if err := s.RegisterAll("0 30 22 * * 1-5", "not a cron", "0 0 18 * * 5"); err == nil {
		t.Fatal("expected error")
	}
	if err := s.RegisterAll("0 30 22 * * 1-5", "0 0 8 * * 1", "0 0 18 * * 5"); err != nil {
		t.Fatal(err)
	}
}
