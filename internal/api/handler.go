package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"BoxSentinel/internal/chart"
	"BoxSentinel/internal/collector"
	"BoxSentinel/internal/model"
	"BoxSentinel/internal/notifier"
	"BoxSentinel/internal/portfolio"
	"BoxSentinel/internal/recorder"
	"BoxSentinel/internal/screener"
	"BoxSentinel/internal/strategy"
)

// Handler serves the API routes.
type Handler struct {
	Runner        *strategy.Runner
	Screener      *screener.VolumeScreener
	Book          *portfolio.Book
	Recorder      recorder.Recorder
	Notifier      notifier.Notifier
	Watchlist     []string
	ScreenSymbols []string
	Interval      model.Interval
	Logger        *zap.Logger
}

// NewHandler creates a handler scanning the daily interval.
func NewHandler(runner *strategy.Runner, vs *screener.VolumeScreener, book *portfolio.Book,
	rec recorder.Recorder, n notifier.Notifier, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Runner:   runner,
		Screener: vs,
		Book:     book,
		Recorder: rec,
		Notifier: n,
		Interval: model.Interval1d,
		Logger:   logger,
	}
}

// GetBacktest runs one backtest and returns the summary with the signal table.
func (h *Handler) GetBacktest(c *gin.Context) {
	res, ok := h.backtest(c)
	if !ok {
		return
	}
	data := gin.H{
		"run_id":       res.RunID,
		"symbol":       res.Symbol,
		"interval":     res.Interval,
		"params":       res.Params,
		"summary":      res.Summary,
		"generated_at": res.GeneratedAt,
	}
	if c.DefaultQuery("table", "true") != "false" {
		data["table"] = res.Table()
	}
	if side, fired := res.LastSignal(); fired {
		data["last_signal"] = side
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": data})
}

// GetChart renders the backtest as an SVG chart.
func (h *Handler) GetChart(c *gin.Context) {
	res, ok := h.backtest(c)
	if !ok {
		return
	}
	opt := chart.Options{}
	if v := c.Query("bars"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bars must be a positive integer"})
			return
		}
		opt.LastBars = n
	}
	svg, err := chart.RenderBacktest(res, opt)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/svg+xml", svg)
}

func (h *Handler) backtest(c *gin.Context) (*model.BacktestResult, bool) {
	req, err := h.parseRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	res, err := h.Runner.Run(c.Request.Context(), req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "symbol": req.Symbol})
		return nil, false
	}
	return res, true
}

// parseRequest reads the symbol, window and strategy overrides.
func (h *Handler) parseRequest(c *gin.Context) (strategy.Request, error) {
	req := strategy.Request{Symbol: strings.ToUpper(strings.TrimSpace(c.Param("symbol"))), Interval: h.Interval}
	if req.Symbol == "" {
		return req, errors.New("symbol is required")
	}
	if v := c.Query("interval"); v != "" {
		iv, err := model.ParseInterval(v)
		if err != nil {
			return req, err
		}
		req.Interval = iv
	}
	var err error
	if req.Start, err = parseDate(c.Query("start")); err != nil {
		return req, fmt.Errorf("start: %w", err)
	}
	if req.End, err = parseDate(c.Query("end")); err != nil {
		return req, fmt.Errorf("end: %w", err)
	}

	p := h.Runner.Params
	ints := map[string]*int{
		"fmal": &p.FastMAL, "smal": &p.SlowMAL,
		"fast_length": &p.FastLength, "slow_length": &p.SlowLength,
		"channel_length": &p.ChannelLength, "dead_zone_length": &p.DeadZoneLength,
		"boxp": &p.BoxPeriod,
	}
	for name, dst := range ints {
		if v := c.Query(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return req, fmt.Errorf("%s: %q is not an integer", name, v)
			}
			*dst = n
		}
	}
	floats := map[string]*float64{
		"sensitivity": &p.Sensitivity, "band_multiplier": &p.BandMultiplier,
		"dead_zone_multiplier": &p.DeadZoneMultiplier,
	}
	for name, dst := range floats {
		if v := c.Query(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return req, fmt.Errorf("%s: %q is not a number", name, v)
			}
			*dst = f
		}
	}
	if v := c.Query("first_only"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return req, fmt.Errorf("first_only: %q is not a boolean", v)
		}
		p.FirstOccurrenceOnly = b
	}
	req.Params = &p
	return req, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}

// statusFor maps pipeline errors to HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrParameterOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrMalformedBar):
		return http.StatusUnprocessableEntity
	case errors.Is(err, collector.ErrNoData):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

// GetScan backtests the watchlist and lists the symbols that fired on their last bar.
func (h *Handler) GetScan(c *gin.Context) {
	interval := h.Interval
	if v := c.Query("interval"); v != "" {
		iv, err := model.ParseInterval(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		interval = iv
	}
	symbols := h.Watchlist
	if v := c.Query("symbols"); v != "" {
		symbols = strings.Split(v, ",")
	}
	if len(symbols) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no symbols to scan"})
		return
	}
	report, err := h.Runner.Scan(c.Request.Context(), symbols, interval)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	hits := make([]gin.H, 0, len(report.Hits))
	for _, hit := range report.Hits {
		hits = append(hits, gin.H{
			"symbol":  hit.Symbol,
			"side":    hit.Side,
			"close":   hit.Result.Bars[len(hit.Result.Bars)-1].Close,
			"summary": hit.Result.Summary,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"code": 0,
		"data": gin.H{
			"run_id":   report.RunID,
			"interval": report.Interval,
			"hits":     hits,
			"failed":   report.Failed,
		},
	})
}

// GetVolume runs the volume screen.
func (h *Handler) GetVolume(c *gin.Context) {
	symbols := h.ScreenSymbols
	if len(symbols) == 0 {
		symbols = h.Watchlist
	}
	if v := c.Query("symbols"); v != "" {
		symbols = strings.Split(v, ",")
	}
	surges, err := h.Screener.Screen(c.Request.Context(), symbols)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "count": len(surges), "data": surges})
}

// GetPortfolio returns every holding with its recommendation.
func (h *Handler) GetPortfolio(c *gin.Context) {
	holdings := h.Book.Holdings()
	c.JSON(http.StatusOK, gin.H{
		"code":  0,
		"count": len(holdings),
		"data": gin.H{
			"holdings":        holdings,
			"recommendations": h.Book.Recommendations(),
		},
	})
}

type holdingBody struct {
	Quantity *float64 `json:"quantity"`
	Return   *float64 `json:"return"`
	DCA      *float64 `json:"dca"`
}

// PutHolding inserts or replaces one holding.
func (h *Handler) PutHolding(c *gin.Context) {
	var body holdingBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if body.Quantity == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity is required"})
		return
	}
	holding := model.Holding{Ticker: c.Param("ticker"), Quantity: *body.Quantity, Return: body.Return, DCA: body.DCA}
	if err := h.Book.Upsert(holding); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	saved, _ := h.Book.Get(holding.Ticker)
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{
		"holding":        saved,
		"recommendation": portfolio.Recommend(saved),
	}})
}

// DeleteHolding removes one holding.
func (h *Handler) DeleteHolding(c *gin.Context) {
	found, err := h.Book.Remove(c.Param("ticker"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "holding not found", "ticker": c.Param("ticker")})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0})
}

// ImportPortfolio replaces the book with a CSV sheet sent as the body.
func (h *Handler) ImportPortfolio(c *gin.Context) {
	holdings, err := portfolio.ReadHoldingsCSV(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	if err := h.Book.Replace(holdings); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "count": len(holdings)})
}

// GetActions lists the latest register entries with the per-action summary.
func (h *Handler) GetActions(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	actions, err := h.Recorder.ListActions(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	stats, err := h.Recorder.SummarizeActions()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{"actions": actions, "summary": stats}})
}

type actionBody struct {
	Ticker string           `json:"ticker" binding:"required"`
	Action model.ActionType `json:"action"`
	Return *float64         `json:"return"`
}

// PostAction records a decision and notifies it.
func (h *Handler) PostAction(c *gin.Context) {
	var body actionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rec, err := h.Book.Decide(body.Ticker, body.Action, body.Return)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Recorder.RecordAction(rec); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.Notifier.SendWithRetry(c.Request.Context(), notifier.FormatActionEntry(rec), 3); err != nil {
		h.Logger.Warn("notify action", zap.String("ticker", rec.Ticker), zap.Error(err))
	}
	c.JSON(http.StatusCreated, gin.H{"code": 0, "data": rec})
}
