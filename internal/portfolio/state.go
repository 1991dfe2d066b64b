package portfolio

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"BoxSentinel/internal/model"
)

// LoadState reads the book from a JSON file. Returns an empty book if the file doesn't exist.
func LoadState(filePath string) (*model.BookState, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.BookState{}, nil
		}
		return nil, err
	}
	var state model.BookState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filePath, err)
	}
	return &state, nil
}

// SaveState writes the book to a JSON file.
func SaveState(filePath string, state *model.BookState) error {
	state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}

// ReadHoldingsCSV parses a holdings sheet. Ticker and Quantity columns are
// required; Return and DCA are optional and may be blank. Spanish headers
// (Cantidad, Rentabilidad) are accepted as well. Rows without a ticker or
// quantity are skipped.
func ReadHoldingsCSV(r io.Reader) ([]model.Holding, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	col := map[string]int{}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "ticker":
			col["ticker"] = i
		case "quantity", "cantidad":
			col["quantity"] = i
		case "return", "rentabilidad":
			col["return"] = i
		case "dca":
			col["dca"] = i
		}
	}
	if _, ok := col["ticker"]; !ok {
		return nil, fmt.Errorf("holdings sheet needs a Ticker column")
	}
	if _, ok := col["quantity"]; !ok {
		return nil, fmt.Errorf("holdings sheet needs a Quantity column")
	}

	var out []model.Holding
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		ticker := strings.ToUpper(strings.TrimSpace(cell(rec, col, "ticker")))
		qty := strings.TrimSpace(cell(rec, col, "quantity"))
		if ticker == "" || qty == "" {
			continue
		}
		q, err := decimal.NewFromString(qty)
		if err != nil {
			return nil, fmt.Errorf("line %d: quantity %q: %w", line, qty, err)
		}
		h := model.Holding{Ticker: ticker, Quantity: q.InexactFloat64()}
		if h.Return, err = optionalNumber(cell(rec, col, "return")); err != nil {
			return nil, fmt.Errorf("line %d: return: %w", line, err)
		}
		if h.DCA, err = optionalNumber(cell(rec, col, "dca")); err != nil {
			return nil, fmt.Errorf("line %d: dca: %w", line, err)
		}
		out = append(out, h)
	}
	return out, nil
}

func cell(rec []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return rec[i]
}

// optionalNumber parses a blank-able cell; "12.5%" is read as 0.125.
func optionalNumber(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	pct := strings.HasSuffix(s, "%")
	d, err := decimal.NewFromString(strings.TrimSuffix(s, "%"))
	if err != nil {
		return nil, err
	}
	if pct {
		d = d.Shift(-2)
	}
	v := d.InexactFloat64()
	return &v, nil
}
