package recorder

import (
	"time"

	"BoxSentinel/internal/model"
)

// ScanRun is one watchlist scan as stored in the log.
type ScanRun struct {
	RunID    string
	Time     time.Time
	Interval model.Interval
	Symbols  int
	Hits     int
	Failed   int
}

// Recorder persists the action register and the signal alert log.
// Backtest results themselves are never stored.
type Recorder interface {
	RecordAction(rec model.ActionRecord) error
	ListActions(limit int) ([]model.ActionRecord, error)
	SummarizeActions() ([]model.ActionStat, error)
	// RecordSignalAlert stores the alert and reports whether it is new.
	// The same (symbol, interval, bar time, side) is only ever new once.
	RecordSignalAlert(a model.SignalAlert) (bool, error)
	RecordScan(run ScanRun) error
	Close() error
}
