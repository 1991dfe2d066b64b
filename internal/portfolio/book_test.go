package portfolio

import (
	"path/filepath"
	"strings"
	"testing"

	"BoxSentinel/internal/model"
)

func ptr(v float64) *float64 { return &v }

func TestRecommend(t *testing.T) {
	tests := []struct {
		name   string
		ret    *float64
		action model.ActionType
	}{
		{"missing return", nil, model.ActionReview},
		{"exactly twenty percent", ptr(0.20), model.ActionBuyPut},
		{"large gain", ptr(0.45), model.ActionBuyPut},
		{"moderate gain", ptr(0.12), model.ActionHold},
		{"boundary eight percent", ptr(0.08), model.ActionReview},
		{"loss", ptr(-0.05), model.ActionReview},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Recommend(model.Holding{Ticker: "AAPL", Quantity: 10, Return: tt.ret})
			if got.Action != tt.action {
				t.Fatalf("action = %q, want %q", got.Action, tt.action)
			}
			if got.Commentary == "" {
				t.Fatal("empty commentary")
			}
		})
	}
}

func TestBook_PersistsAcrossReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolio.json")
	b, err := NewBook(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Upsert(model.Holding{Ticker: " msft", Quantity: 5, Return: ptr(0.1)}); err != nil {
		t.Fatal(err)
	}
	if err := b.Upsert(model.Holding{Ticker: "AAPL", Quantity: 3}); err != nil {
		t.Fatal(err)
	}
	if err := b.Upsert(model.Holding{Ticker: "MSFT", Quantity: 7, Return: ptr(0.3)}); err != nil {
		t.Fatal(err)
	}

	reloaded, err := NewBook(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	hs := reloaded.Holdings()
	if len(hs) != 2 || hs[0].Ticker != "AAPL" || hs[1].Quantity != 7 {
		t.Fatalf("unexpected holdings %+v", hs)
	}
	recs := reloaded.Recommendations()
	if recs[1].Action != model.ActionBuyPut {
		t.Fatalf("MSFT action = %q", recs[1].Action)
	}

	found, err := reloaded.Remove("aapl")
	if err != nil || !found {
		t.Fatalf("remove = %v, %v", found, err)
	}
	if _, ok := reloaded.Get("AAPL"); ok {
		t.Fatal("AAPL still present")
	}
}

func TestBook_RejectsBadHolding(t *testing.T) {
	b, err := NewBook(filepath.Join(t.TempDir(), "p.json"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Upsert(model.Holding{Ticker: "  "}); err == nil {
		t.Fatal("expected error for empty ticker")
	}
	if err := b.Upsert(model.Holding{Ticker: "X", Quantity: -1}); err == nil {
		t.Fatal("expected error for negative quantity")
	}
}

func TestReadHoldingsCSV(t *testing.T) {
	sheet := "Ticker,Cantidad,Rentabilidad,DCA\n" +
		"aapl,10,0.25,150.5\n" +
		"MSFT,4,12.5%,\n" +
		",3,0.1,\n" +
		"NVDA,2,,\n"
	hs, err := ReadHoldingsCSV(strings.NewReader(sheet))
	if err != nil {
		t.Fatal(err)
	}
	if len(hs) != 3 {
		t.Fatalf("expected 3 holdings, got %d", len(hs))
	}
	if hs[0].Ticker != "AAPL" || *hs[0].Return != 0.25 || *hs[0].DCA != 150.5 {
		t.Errorf("row 1 = %+v", hs[0])
	}
	if *hs[1].Return != 0.125 || hs[1].DCA != nil {
		t.Errorf("row 2 = %+v", hs[1])
	}
	if hs[2].Return != nil {
		t.Errorf("row 3 return should be missing")
	}

	if _, err := ReadHoldingsCSV(strings.NewReader("Symbol,Qty\nAAPL,1\n")); err == nil {
		t.Fatal("expected error for missing columns")
	}
}

func TestBook_Decide(t *testing.T) {
	b, err := NewBook(filepath.Join(t.TempDir(), "portfolio.json"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Upsert(model.Holding{Ticker: "nvda", Quantity: 5, Return: ptr(0.31)}); err != nil {
		t.Fatal(err)
	}

	rec, err := b.Decide(" nvda", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Ticker != "NVDA" || rec.Action != model.ActionBuyPut || rec.Return != 0.31 {
		t.Fatalf("unexpected record %+v", rec)
	}

	rec, err = b.Decide("NVDA", model.ActionIgnore, ptr(0.1))
	if err != nil || rec.Action != model.ActionIgnore || rec.Return != 0.1 {
		t.Fatalf("override not applied: %+v %v", rec, err)
	}

	if _, err := b.Decide("TSLA", "", nil); err == nil {
		t.Error("unknown ticker without an action should fail")
	}
	if _, err := b.Decide("TSLA", model.ActionHold, nil); err != nil {
		t.Errorf("explicit action for an unheld ticker should be accepted: %v", err)
	}
	if _, err := b.Decide("NVDA", "Vender", nil); err == nil {
		t.Error("unknown action should fail")
	}
}
