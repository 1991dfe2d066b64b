package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"BoxSentinel/internal/chart"
	"BoxSentinel/internal/model"
	"BoxSentinel/internal/notifier"
	"BoxSentinel/internal/portfolio"
	"BoxSentinel/internal/recorder"
	"BoxSentinel/internal/screener"
	"BoxSentinel/internal/strategy"
)

// Scheduler manages all cron tasks and answers bot commands.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   *strategy.Runner
	Screener *screener.VolumeScreener
	Book     *portfolio.Book
	Notifier notifier.Notifier
	Recorder recorder.Recorder
	Logger   *zap.Logger
	Ctx      context.Context

	Watchlist     []string
	ScreenSymbols []string
	Interval      model.Interval
	// SendChart attaches an SVG chart to every signal alert.
	SendChart bool
}

// NewScheduler creates a new Scheduler scanning the daily interval.
func NewScheduler(ctx context.Context, runner *strategy.Runner, vs *screener.VolumeScreener, book *portfolio.Book,
	n notifier.Notifier, rec recorder.Recorder, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Runner:   runner,
		Screener: vs,
		Book:     book,
		Notifier: n,
		Recorder: rec,
		Logger:   logger,
		Ctx:      ctx,
		Interval: model.Interval1d,
	}
}

// RegisterAll registers the watchlist scan, the volume screen and the action summary.
func (s *Scheduler) RegisterAll(scanCron, volumeCron, summaryCron string) error {
	if _, err := s.Cron.AddFunc(scanCron, s.scanTask); err != nil {
		return fmt.Errorf("register scan task: %w", err)
	}
	if _, err := s.Cron.AddFunc(volumeCron, s.volumeTask); err != nil {
		return fmt.Errorf("register volume task: %w", err)
	}
	if _, err := s.Cron.AddFunc(summaryCron, s.summaryTask); err != nil {
		return fmt.Errorf("register summary task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.Info("scheduler started", zap.Int("jobs", len(s.Cron.Entries())))
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Logger.Info("scheduler stopped")
}

// RunScanNow executes the watchlist scan immediately (RUN_ON_START).
func (s *Scheduler) RunScanNow() {
	s.scanTask()
}

func (s *Scheduler) scanTask() {
	s.Logger.Info("running watchlist scan", zap.Int("symbols", len(s.Watchlist)))
	if _, err := s.Scan(s.Ctx); err != nil {
		s.Logger.Error("watchlist scan", zap.Error(err))
		s.trySend(fmt.Sprintf("❌ Escaneo fallido: %v", err))
	}
}

// Scan runs the watchlist, logs the run and alerts every signal not seen before.
func (s *Scheduler) Scan(ctx context.Context) (*strategy.ScanReport, error) {
	if len(s.Watchlist) == 0 {
		return nil, errors.New("watchlist is empty")
	}
	report, err := s.Runner.Scan(ctx, s.Watchlist, s.Interval)
	if err != nil {
		return nil, err
	}
	if err := s.Recorder.RecordScan(recorder.ScanRun{
		RunID:    report.RunID,
		Interval: report.Interval,
		Symbols:  len(s.Watchlist),
		Hits:     len(report.Hits),
		Failed:   len(report.Failed),
	}); err != nil {
		s.Logger.Error("record scan", zap.Error(err))
	}
	for sym, reason := range report.Failed {
		s.Logger.Warn("scan symbol failed", zap.String("symbol", sym), zap.String("reason", reason))
	}
	s.alertHits(ctx, report)
	return report, nil
}

// alertHits notifies each hit once per bar and side.
func (s *Scheduler) alertHits(ctx context.Context, report *strategy.ScanReport) int {
	sent := 0
	for _, hit := range report.Hits {
		bars := hit.Result.Bars
		if len(bars) == 0 {
			continue
		}
		last := bars[len(bars)-1]
		isNew, err := s.Recorder.RecordSignalAlert(model.SignalAlert{
			RunID:    report.RunID,
			Symbol:   hit.Symbol,
			Interval: report.Interval,
			BarTime:  last.Time,
			Side:     hit.Side,
			Close:    last.Close,
		})
		if err != nil {
			s.Logger.Error("record signal alert", zap.String("symbol", hit.Symbol), zap.Error(err))
		}
		if !isNew && err == nil {
			s.Logger.Debug("signal already alerted", zap.String("symbol", hit.Symbol), zap.Time("bar", last.Time))
			continue
		}
		s.trySend(notifier.FormatSignalAlert(hit))
		sent++
		if s.SendChart {
			s.sendChart(ctx, hit.Result)
		}
	}
	return sent
}

func (s *Scheduler) sendChart(ctx context.Context, res *model.BacktestResult) {
	svg, err := chart.RenderBacktest(res, chart.Options{})
	if err != nil {
		s.Logger.Warn("render chart", zap.String("symbol", res.Symbol), zap.Error(err))
		return
	}
	name := fmt.Sprintf("%s_%s.svg", strings.ToLower(res.Symbol), res.Interval)
	caption := fmt.Sprintf("%s %s", res.Symbol, res.Interval)
	if err := s.Notifier.SendDocument(ctx, name, svg, caption); err != nil {
		s.Logger.Error("send chart", zap.String("symbol", res.Symbol), zap.Error(err))
	}
}

func (s *Scheduler) volumeTask() {
	s.Logger.Info("running volume screen")
	msg, err := s.volumeReport(s.Ctx)
	if err != nil {
		s.Logger.Error("volume screen", zap.Error(err))
		s.trySend(fmt.Sprintf("❌ Filtro de volumen fallido: %v", err))
		return
	}
	s.trySend(msg)
}

func (s *Scheduler) volumeReport(ctx context.Context) (string, error) {
	symbols := s.ScreenSymbols
	if len(symbols) == 0 {
		symbols = s.Watchlist
	}
	surges, err := s.Screener.Screen(ctx, symbols)
	if err != nil {
		return "", err
	}
	return notifier.FormatVolumeScreen(surges, s.Screener.WindowDays, s.Screener.Ratio), nil
}

func (s *Scheduler) summaryTask() {
	s.Logger.Info("running action summary")
	msg, err := s.actionSummary()
	if err != nil {
		s.Logger.Error("action summary", zap.Error(err))
		return
	}
	s.trySend(msg)
}

func (s *Scheduler) actionSummary() (string, error) {
	stats, err := s.Recorder.SummarizeActions()
	if err != nil {
		return "", err
	}
	return notifier.FormatActionSummary(stats), nil
}

// HandleCommand processes a bot command and returns the reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.HelpText()
	}
	name := strings.ToLower(fields[0])
	if i := strings.IndexByte(name, '@'); i > 0 {
		name = name[:i]
	}
	args := fields[1:]

	switch name {
	case "/backtest":
		return s.backtestCommand(ctx, args)
	case "/scan":
		report, err := s.Scan(ctx)
		if err != nil {
			return fmt.Sprintf("❌ Escaneo fallido: %v", err)
		}
		return notifier.FormatScanReport(report.Interval, len(s.Watchlist), report.Hits, report.Failed)
	case "/volume", "/volumen":
		msg, err := s.volumeReport(ctx)
		if err != nil {
			return fmt.Sprintf("❌ Filtro de volumen fallido: %v", err)
		}
		return msg
	case "/portfolio", "/portafolio":
		return notifier.FormatPortfolio(s.Book.Recommendations())
	case "/register", "/registrar":
		return s.registerCommand(args)
	case "/actions", "/acciones":
		msg, err := s.actionSummary()
		if err != nil {
			return fmt.Sprintf("❌ No se pudo leer el registro: %v", err)
		}
		return msg
	default:
		return notifier.HelpText()
	}
}

func (s *Scheduler) backtestCommand(ctx context.Context, args []string) string {
	if len(args) == 0 {
		return "Uso: /backtest SYMBOL [INTERVAL]"
	}
	interval := s.Interval
	if len(args) > 1 {
		iv, err := model.ParseInterval(args[1])
		if err != nil {
			return fmt.Sprintf("❌ %v", err)
		}
		interval = iv
	}
	res, err := s.Runner.Run(ctx, strategy.Request{Symbol: args[0], Interval: interval})
	if err != nil {
		return fmt.Sprintf("❌ Backtest %s fallido: %v", strings.ToUpper(args[0]), err)
	}
	if s.SendChart {
		s.sendChart(ctx, res)
	}
	return notifier.FormatBacktestReport(res)
}

// registerCommand records the recommended action for a held ticker.
func (s *Scheduler) registerCommand(args []string) string {
	if len(args) == 0 {
		return "Uso: /register TICKER"
	}
	rec, err := s.Book.Decide(args[0], "", nil)
	if err != nil {
		return fmt.Sprintf("❌ %v", err)
	}
	if err := s.Recorder.RecordAction(rec); err != nil {
		s.Logger.Error("record action", zap.String("ticker", rec.Ticker), zap.Error(err))
		return fmt.Sprintf("❌ No se pudo registrar la acción: %v", err)
	}
	return notifier.FormatActionEntry(rec)
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.Logger.Error("send notification", zap.Error(err))
	}
}
