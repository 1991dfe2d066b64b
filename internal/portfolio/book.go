package portfolio

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"BoxSentinel/internal/model"
)

// Return thresholds for the hedge recommendation.
const (
	ProtectAbove = 0.20 // at or above: buy a put to lock in gains
	HoldAbove    = 0.08 // above: keep the position
)

// Recommend maps one holding to an action.
func Recommend(h model.Holding) model.Recommendation {
	rec := model.Recommendation{Ticker: h.Ticker, Return: h.Return}
	switch {
	case h.Return == nil:
		rec.Action = model.ActionReview
		rec.Commentary = "Revisión: datos incompletos o mal formateados."
	case *h.Return >= ProtectAbove:
		rec.Action = model.ActionBuyPut
		rec.Commentary = "Comprar PUT para proteger ganancias."
	case *h.Return > HoldAbove:
		rec.Action = model.ActionHold
		rec.Commentary = "Mantener posición."
	default:
		rec.Action = model.ActionReview
		rec.Commentary = "Revisar, baja rentabilidad."
	}
	return rec
}

// Book holds the portfolio with concurrency safety and persists every change.
type Book struct {
	mu       sync.Mutex
	state    *model.BookState
	filePath string
	logger   *zap.Logger
}

// NewBook creates a Book, loading state from disk when the file exists.
func NewBook(filePath string, logger *zap.Logger) (*Book, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	state, err := LoadState(filePath)
	if err != nil {
		return nil, err
	}
	return &Book{state: state, filePath: filePath, logger: logger}, nil
}

// Holdings returns a copy of the book sorted by ticker.
func (b *Book) Holdings() []model.Holding {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := append([]model.Holding(nil), b.state.Holdings...)
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out
}

// Get returns the holding for ticker.
func (b *Book) Get(ticker string) (model.Holding, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.index(normalize(ticker)); i >= 0 {
		return b.state.Holdings[i], true
	}
	return model.Holding{}, false
}

// Upsert inserts or replaces a holding.
func (b *Book) Upsert(h model.Holding) error {
	h.Ticker = normalize(h.Ticker)
	if h.Ticker == "" {
		return fmt.Errorf("holding without ticker")
	}
	if h.Quantity < 0 {
		return fmt.Errorf("%s: negative quantity %v", h.Ticker, h.Quantity)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	h.UpdatedAt = time.Now()
	if i := b.index(h.Ticker); i >= 0 {
		b.state.Holdings[i] = h
	} else {
		b.state.Holdings = append(b.state.Holdings, h)
	}
	return b.save()
}

// Replace swaps the whole book, e.g. after importing a sheet.
func (b *Book) Replace(holdings []model.Holding) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()
	b.state.Holdings = b.state.Holdings[:0]
	for _, h := range holdings {
		h.Ticker = normalize(h.Ticker)
		h.UpdatedAt = now
		b.state.Holdings = append(b.state.Holdings, h)
	}
	return b.save()
}

// Remove drops a holding; it reports whether one was found.
func (b *Book) Remove(ticker string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.index(normalize(ticker))
	if i < 0 {
		return false, nil
	}
	b.state.Holdings = append(b.state.Holdings[:i], b.state.Holdings[i+1:]...)
	return true, b.save()
}

// Recommendations evaluates every holding.
func (b *Book) Recommendations() []model.Recommendation {
	hs := b.Holdings()
	out := make([]model.Recommendation, len(hs))
	for i, h := range hs {
		out[i] = Recommend(h)
	}
	return out
}

// Decide builds an action register entry for ticker. An empty action takes
// the recommendation for the holding; the return is the holding's own unless
// ret overrides it.
func (b *Book) Decide(ticker string, action model.ActionType, ret *float64) (model.ActionRecord, error) {
	ticker = normalize(ticker)
	if ticker == "" {
		return model.ActionRecord{}, fmt.Errorf("action without ticker")
	}
	h, held := b.Get(ticker)
	if action == "" {
		if !held {
			return model.ActionRecord{}, fmt.Errorf("%s is not in the portfolio, an action is required", ticker)
		}
		action = Recommend(h).Action
	}
	if !ValidAction(action) {
		return model.ActionRecord{}, fmt.Errorf("unknown action %q", action)
	}
	rec := model.ActionRecord{Time: time.Now(), Ticker: ticker, Action: action}
	switch {
	case ret != nil:
		rec.Return = *ret
	case held && h.Return != nil:
		rec.Return = *h.Return
	}
	return rec, nil
}

// ValidAction reports whether a is one of the register's actions.
func ValidAction(a model.ActionType) bool {
	switch a {
	case model.ActionBuyPut, model.ActionHold, model.ActionReview, model.ActionIgnore:
		return true
	}
	return false
}

func (b *Book) index(ticker string) int {
	for i, h := range b.state.Holdings {
		if h.Ticker == ticker {
			return i
		}
	}
	return -1
}

func (b *Book) save() error {
	if err := SaveState(b.filePath, b.state); err != nil {
		b.logger.Error("failed to save portfolio state", zap.String("path", b.filePath), zap.Error(err))
		return err
	}
	return nil
}

func normalize(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
