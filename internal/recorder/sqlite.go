package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"BoxSentinel/internal/model"
)

// SQLiteRecorder persists the register and alert log to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *zap.Logger) (*SQLiteRecorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the API read while the scheduler writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS actions (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			ticker    TEXT NOT NULL,
			action    TEXT NOT NULL,
			ret       REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_actions_ts ON actions(timestamp)`,

		`CREATE TABLE IF NOT EXISTS signal_alerts (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			run_id    TEXT,
			symbol    TEXT NOT NULL,
			interval  TEXT NOT NULL,
			bar_time  INTEGER NOT NULL,
			side      TEXT NOT NULL,
			close     REAL,
			UNIQUE(symbol, interval, bar_time, side)
		)`,

		`CREATE TABLE IF NOT EXISTS scan_runs (
			run_id    TEXT PRIMARY KEY,
			timestamp INTEGER NOT NULL,
			interval  TEXT,
			symbols   INTEGER,
			hits      INTEGER,
			failed    INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_ts ON scan_runs(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordAction(rec model.ActionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := rec.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := r.db.Exec(`INSERT INTO actions (timestamp, ticker, action, ret) VALUES (?,?,?,?)`,
		ts.Unix(), rec.Ticker, string(rec.Action), rec.Return)
	return err
}

// ListActions returns the newest entries first; limit <= 0 returns all.
func (r *SQLiteRecorder) ListActions(limit int) ([]model.ActionRecord, error) {
	q := `SELECT timestamp, ticker, action, ret FROM actions ORDER BY timestamp DESC, id DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	var out []model.ActionRecord
	for rows.Next() {
		var (
			ts     int64
			rec    model.ActionRecord
			action string
			ret    sql.NullFloat64
		)
		if err := rows.Scan(&ts, &rec.Ticker, &action, &ret); err != nil {
			return nil, err
		}
		rec.Time = time.Unix(ts, 0)
		rec.Action = model.ActionType(action)
		rec.Return = ret.Float64
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SummarizeActions counts entries and averages the return per action.
func (r *SQLiteRecorder) SummarizeActions() ([]model.ActionStat, error) {
	rows, err := r.db.Query(`SELECT action, COUNT(*), COALESCE(AVG(ret), 0)
		FROM actions GROUP BY action ORDER BY COUNT(*) DESC, action`)
	if err != nil {
		return nil, fmt.Errorf("summarize actions: %w", err)
	}
	defer rows.Close()

	var out []model.ActionStat
	for rows.Next() {
		var (
			st     model.ActionStat
			action string
		)
		if err := rows.Scan(&action, &st.Count, &st.MeanReturn); err != nil {
			return nil, err
		}
		st.Action = model.ActionType(action)
		out = append(out, st)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) RecordSignalAlert(a model.SignalAlert) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.Exec(`INSERT OR IGNORE INTO signal_alerts
		(timestamp, run_id, symbol, interval, bar_time, side, close)
		VALUES (?,?,?,?,?,?,?)`,
		time.Now().Unix(), a.RunID, a.Symbol, string(a.Interval), a.BarTime.Unix(), string(a.Side), a.Close,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *SQLiteRecorder) RecordScan(run ScanRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := run.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := r.db.Exec(`INSERT OR REPLACE INTO scan_runs
		(run_id, timestamp, interval, symbols, hits, failed)
		VALUES (?,?,?,?,?,?)`,
		run.RunID, ts.Unix(), string(run.Interval), run.Symbols, run.Hits, run.Failed,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info("closing sqlite recorder")
	return r.db.Close()
}
