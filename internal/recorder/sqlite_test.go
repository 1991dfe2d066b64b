package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"BoxSentinel/internal/model"
)

func openTemp(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "sentinel.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSQLiteRecorder_ActionRegister(t *testing.T) {
	r := openTemp(t)
	t0 := time.Date(2024, 6, 3, 15, 0, 0, 0, time.UTC)
	entries := []model.ActionRecord{
		{Time: t0, Ticker: "AAPL", Action: model.ActionBuyPut, Return: 0.25},
		{Time: t0.Add(time.Hour), Ticker: "MSFT", Action: model.ActionBuyPut, Return: 0.21},
		{Time: t0.Add(2 * time.Hour), Ticker: "NVDA", Action: model.ActionHold, Return: 0.1},
	}
	for _, e := range entries {
		if err := r.RecordAction(e); err != nil {
			t.Fatal(err)
		}
	}

	got, err := r.ListActions(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Ticker != "NVDA" || got[1].Ticker != "MSFT" {
		t.Fatalf("unexpected newest-first list %+v", got)
	}

	stats, err := r.SummarizeActions()
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 action groups, got %+v", stats)
	}
	if stats[0].Action != model.ActionBuyPut || stats[0].Count != 2 {
		t.Fatalf("first group = %+v", stats[0])
	}
	if d := stats[0].MeanReturn - 0.23; d > 1e-9 || d < -1e-9 {
		t.Errorf("mean return = %v, want 0.23", stats[0].MeanReturn)
	}
}

func TestSQLiteRecorder_AlertDedupe(t *testing.T) {
	r := openTemp(t)
	a := model.SignalAlert{
		RunID: "run-1", Symbol: "AAPL", Interval: model.Interval1d,
		BarTime: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), Side: model.SideBuy, Close: 190,
	}
	tests := []struct {
		name  string
		alert func() model.SignalAlert
		isNew bool
	}{
		{"first", func() model.SignalAlert { return a }, true},
		{"same bar again", func() model.SignalAlert { b := a; b.RunID = "run-2"; return b }, false},
		{"other side", func() model.SignalAlert { b := a; b.Side = model.SideSell; return b }, true},
		{"next bar", func() model.SignalAlert { b := a; b.BarTime = b.BarTime.AddDate(0, 0, 1); return b }, true},
	}
	for _, tt := range tests {
		got, err := r.RecordSignalAlert(tt.alert())
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.isNew {
			t.Errorf("%s: new = %v, want %v", tt.name, got, tt.isNew)
		}
	}
}

func TestSQLiteRecorder_ScanRun(t *testing.T) {
	r := openTemp(t)
	if err := r.RecordScan(ScanRun{RunID: "abc", Interval: model.Interval1d, Symbols: 5, Hits: 1}); err != nil {
		t.Fatal(err)
	}
	var hits int
	if err := r.db.QueryRow(`SELECT hits FROM scan_runs WHERE run_id = ?`, "abc").Scan(&hits); err != nil {
		t.Fatal(err)
	}
	if hits != 1 {
		t.Fatalf("hits = %d", hits)
	}
}
