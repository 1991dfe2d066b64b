package collector

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"BoxSentinel/internal/model"
)

// csvHeader is the only accepted column layout.
var csvHeader = []string{"date", "open", "high", "low", "close", "volume"}

var csvTimeLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
}

// CSVFetcher reads bars from <Dir>/<SYMBOL>_<interval>.csv, falling back to
// <Dir>/<SYMBOL>.csv.
type CSVFetcher struct {
	Dir string
}

func (f *CSVFetcher) Name() string { return "csv" }

func (f *CSVFetcher) FetchBars(_ context.Context, symbol string, interval model.Interval, start, end time.Time) ([]model.OHLCV, error) {
	for _, name := range []string{
		fmt.Sprintf("%s_%s.csv", symbol, interval),
		symbol + ".csv",
	} {
		file, err := os.Open(filepath.Join(f.Dir, name))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		bars, err := ReadCSV(file)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		bars = clip(bars, start, end)
		if len(bars) == 0 {
			return nil, fmt.Errorf("csv %s: %w", symbol, ErrNoData)
		}
		return bars, nil
	}
	return nil, fmt.Errorf("csv %s: no file in %s: %w", symbol, f.Dir, ErrNoData)
}

// ReadCSV parses a Date,Open,High,Low,Close,Volume file. The header must match
// exactly (case-insensitive) and every cell must be present. A byte-order
// mark is honoured, so UTF-16 spreadsheet exports read like plain UTF-8.
func ReadCSV(r io.Reader) ([]model.OHLCV, error) {
	cr := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	cr.FieldsPerRecord = len(csvHeader)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, col := range header {
		if !strings.EqualFold(strings.TrimSpace(col), csvHeader[i]) {
			return nil, fmt.Errorf("header column %d is %q, want %q", i+1, col, csvHeader[i])
		}
	}

	var bars []model.OHLCV
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		bar, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func parseRecord(rec []string) (model.OHLCV, error) {
	ts, err := parseTime(strings.TrimSpace(rec[0]))
	if err != nil {
		return model.OHLCV{}, err
	}
	var vals [5]float64
	for i := range vals {
		cell := strings.TrimSpace(rec[i+1])
		if cell == "" {
			return model.OHLCV{}, fmt.Errorf("empty %s", csvHeader[i+1])
		}
		d, err := decimal.NewFromString(cell)
		if err != nil {
			return model.OHLCV{}, fmt.Errorf("bad %s %q: %w", csvHeader[i+1], cell, err)
		}
		vals[i] = d.InexactFloat64()
	}
	return model.OHLCV{Time: ts, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4]}, nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range csvTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.Naive(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}
