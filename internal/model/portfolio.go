package model

import "time"

// Holding is one line of the portfolio book.
type Holding struct {
	Ticker    string    `json:"ticker"`
	Quantity  float64   `json:"quantity"`
	Return    *float64  `json:"return,omitempty"` // fractional, nil when unknown
	DCA       *float64  `json:"dca,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BookState is the persisted portfolio book.
type BookState struct {
	Holdings  []Holding `json:"holdings"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ActionType is a decision taken on a holding.
type ActionType string

const (
	ActionBuyPut ActionType = "Comprar PUT"
	ActionHold   ActionType = "Mantener"
	ActionReview ActionType = "Revisión Manual"
	ActionIgnore ActionType = "Ignorado"
)

// Recommendation is the suggested action for a holding.
type Recommendation struct {
	Ticker     string     `json:"ticker"`
	Return     *float64   `json:"return,omitempty"`
	Action     ActionType `json:"action"`
	Commentary string     `json:"commentary"`
}

// ActionRecord is one entry in the action register.
type ActionRecord struct {
	Time   time.Time  `json:"time"`
	Ticker string     `json:"ticker"`
	Action ActionType `json:"action"`
	Return float64    `json:"return"`
}

// ActionStat aggregates the register per action.
type ActionStat struct {
	Action     ActionType `json:"action"`
	Count      int        `json:"count"`
	MeanReturn float64    `json:"mean_return"`
}

// SignalAlert is a notified signal, kept so each bar alerts once.
type SignalAlert struct {
	RunID    string
	Symbol   string
	Interval Interval
	BarTime  time.Time
	Side     Side
	Close    float64
}

// ScanHit is a watchlist symbol whose last bar fired.
type ScanHit struct {
	Symbol string          `json:"symbol"`
	Side   Side            `json:"side"`
	Result *BacktestResult `json:"result"`
}

// VolumeSurge is a screener candidate.
type VolumeSurge struct {
	Symbol         string  `json:"symbol"`
	PreviousVolume float64 `json:"previous_volume"`
	CurrentVolume  float64 `json:"current_volume"`
	Ratio          float64 `json:"ratio"`
}
