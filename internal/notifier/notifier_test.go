package notifier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"BoxSentinel/internal/model"
)

func TestSend_PostsHTMLMessage(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tn := NewTelegramNotifier("TOKEN", "42", "", nil)
	tn.BaseURL = srv.URL
	if err := tn.Send("<b>hola</b>"); err != nil {
		t.Fatal(err)
	}
	if got["chat_id"] != "42" || got["parse_mode"] != "HTML" || got["text"] != "<b>hola</b>" {
		t.Fatalf("unexpected payload %v", got)
	}
}

func TestSend_ReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false,"description":"chat not found"}`, http.StatusBadRequest)
	}))
	defer srv.Close()
	tn := NewTelegramNotifier("TOKEN", "42", "", nil)
	tn.BaseURL = srv.URL
	err := tn.Send("x")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected API error, got %v", err)
	}
}

func TestSendWithRetry_StopsOnCancel(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	tn := NewTelegramNotifier("TOKEN", "42", "", nil)
	tn.BaseURL = srv.URL

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := tn.SendWithRetry(ctx, "x", 3); err != context.DeadlineExceeded {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt before cancel, got %d", calls.Load())
	}
}

func TestSendDocument_Multipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendDocument" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		if r.FormValue("chat_id") != "42" || r.FormValue("caption") != "AAPL" {
			t.Errorf("unexpected fields %v", r.MultipartForm.Value)
		}
		f, hdr, err := r.FormFile("document")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if hdr.Filename != "aapl.svg" || string(data) != "<svg/>" {
			t.Errorf("unexpected upload %s %q", hdr.Filename, data)
		}
	}))
	defer srv.Close()

	tn := NewTelegramNotifier("TOKEN", "42", "", nil)
	tn.BaseURL = srv.URL
	if err := tn.SendDocument(context.Background(), "aapl.svg", []byte("<svg/>"), "AAPL"); err != nil {
		t.Fatal(err)
	}
}

func TestPolling_DispatchesOwnChatOnly(t *testing.T) {
	var sent atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			if r.URL.Query().Get("offset") != "0" {
				cancel()
				w.Write([]byte(`{"ok":true,"result":[]}`))
				return
			}
			w.Write([]byte(`{"ok":true,"result":[
				{"update_id":7,"message":{"text":"/scan","chat":{"id":42}}},
				{"update_id":8,"message":{"text":"/scan","chat":{"id":99}}}]}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			sent.Add(1)
			w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer srv.Close()

	tn := NewTelegramNotifier("TOKEN", "42", "", nil)
	tn.BaseURL = srv.URL
	var handled []string
	tn.StartPolling(ctx, func(_ context.Context, cmd string) string {
		handled = append(handled, cmd)
		return "ok"
	})
	if len(handled) != 1 || handled[0] != "/scan" {
		t.Fatalf("handled = %v, want one /scan", handled)
	}
	if sent.Load() != 1 {
		t.Fatalf("expected one reply, got %d", sent.Load())
	}
}

func TestPct(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0.1234, "+12.34%"},
		{-0.05, "-5.00%"},
		{0, "0.00%"},
		{0.00005, "+0.01%"},
	}
	for _, tt := range tests {
		if got := pct(tt.in); got != tt.want {
			t.Errorf("pct(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNumberGrouping(t *testing.T) {
	if got := price(1234567.891); got != "1,234,567.89" {
		t.Errorf("price = %q", got)
	}
	if got := volume(25000000); got != "25,000,000" {
		t.Errorf("volume = %q", got)
	}
}

func TestFormatBacktestReport(t *testing.T) {
	t0 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	res := &model.BacktestResult{
		Symbol:   "AAPL",
		Interval: model.Interval1d,
		Bars:     []model.OHLCV{{Time: t0, Close: 100}, {Time: t0.AddDate(0, 0, 1), Close: 101}},
		Summary:  model.PerformanceSummary{FirstDefinedIndex: -1},
	}
	if got := FormatBacktestReport(res); !strings.Contains(got, "Historial insuficiente") {
		t.Fatalf("expected insufficient-history notice:\n%s", got)
	}

	res.Summary = model.PerformanceSummary{FirstDefinedIndex: 0, CumulativeReturn: 0.15, SharpeRatio: 1.234, BuySignals: 2}
	res.Signals = []model.SignalRow{{}, {Defined: true, Buy: true}}
	got := FormatBacktestReport(res)
	for _, want := range []string{"AAPL", "+15.00%", "Sharpe: 1.23", "2 compra", "BUY"} {
		if !strings.Contains(got, want) {
			t.Errorf("report missing %q:\n%s", want, got)
		}
	}
}

func TestFormatActionSummary(t *testing.T) {
	got := FormatActionSummary([]model.ActionStat{
		{Action: model.ActionBuyPut, Count: 3, MeanReturn: 0.25},
		{Action: model.ActionHold, Count: 1, MeanReturn: 0.1},
	})
	for _, want := range []string{"Total decisiones: 4", "Comprar PUT: 3 (75.00% del total)", "+25.00%"} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q:\n%s", want, got)
		}
	}
	if got := FormatActionSummary(nil); !strings.Contains(got, "No hay acciones") {
		t.Errorf("empty summary = %q", got)
	}
}
