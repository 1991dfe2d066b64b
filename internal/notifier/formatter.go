package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"BoxSentinel/internal/model"
)

// numbers prints with thousands separators ("1,234.50").
var numbers = message.NewPrinter(language.English)

const dateLayout = "02-01-2006"

func price(v float64) string { return numbers.Sprintf("%.2f", v) }

func volume(v float64) string { return numbers.Sprintf("%.0f", v) }

// pct renders a fraction as a signed percentage rounded to two places.
func pct(v float64) string {
	d := decimal.NewFromFloat(v).Shift(2).Round(2)
	sign := ""
	if d.IsPositive() {
		sign = "+"
	}
	return sign + d.StringFixed(2) + "%"
}

func sideIcon(s model.Side) string {
	if s == model.SideBuy {
		return "🟢"
	}
	return "🔴"
}

// FormatBacktestReport summarises one run.
func FormatBacktestReport(res *model.BacktestResult) string {
	var b strings.Builder
	s := res.Summary

	b.WriteString(fmt.Sprintf("📦 <b>Darvas Box | %s</b> (%s)\n", html.EscapeString(res.Symbol), res.Interval))
	if n := len(res.Bars); n > 0 {
		b.WriteString(fmt.Sprintf("Periodo: %s → %s (%d velas)\n",
			res.Bars[0].Time.Format(dateLayout), res.Bars[n-1].Time.Format(dateLayout), n))
		b.WriteString(fmt.Sprintf("Último cierre: %s\n", price(res.Bars[n-1].Close)))
	}
	b.WriteString("\n")

	if s.FirstDefinedIndex < 0 {
		b.WriteString("⏳ Historial insuficiente: ninguna vela con todos los indicadores definidos.\n")
		return b.String()
	}

	b.WriteString("📈 <b>Resultado:</b>\n")
	b.WriteString(fmt.Sprintf("  Rentabilidad: %s (buy &amp; hold %s)\n", pct(s.CumulativeReturn), pct(s.BuyAndHoldReturn)))
	b.WriteString(fmt.Sprintf("  Máx. drawdown: %s\n", pct(s.MaxDrawdown)))
	b.WriteString(fmt.Sprintf("  Sharpe: %.2f\n", s.SharpeRatio))
	b.WriteString(fmt.Sprintf("  Señales: %d compra / %d venta\n", s.BuySignals, s.SellSignals))
	b.WriteString(fmt.Sprintf("  Operaciones cerradas: %d (acierto %s)\n", s.ClosedTrades, pct(s.WinRate)))
	b.WriteString(fmt.Sprintf("  Exposición: %s\n", pct(s.Exposure)))

	if len(s.Trades) > 0 {
		last := s.Trades[len(s.Trades)-1]
		state := "cerrada"
		if last.Open {
			state = "abierta"
		}
		b.WriteString(fmt.Sprintf("\nÚltima operación (%s): %s @ %s → %s @ %s = %s\n", state,
			last.EntryTime.Format(dateLayout), price(last.EntryPrice),
			last.ExitTime.Format(dateLayout), price(last.ExitPrice), pct(last.Return)))
	}
	if side, ok := res.LastSignal(); ok {
		b.WriteString(fmt.Sprintf("\n%s <b>Señal en la última vela: %s</b>\n", sideIcon(side), side))
	}
	return b.String()
}

// FormatSignalAlert is the message sent when a watchlist symbol fires.
func FormatSignalAlert(hit model.ScanHit) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s <b>%s %s</b> (%s)\n", sideIcon(hit.Side), hit.Side,
		html.EscapeString(hit.Symbol), hit.Result.Interval))
	if n := len(hit.Result.Bars); n > 0 {
		last := hit.Result.Bars[n-1]
		b.WriteString(fmt.Sprintf("Vela: %s | Cierre: %s\n", last.Time.Format(dateLayout), price(last.Close)))
		if f := hit.Result.Frame; f != nil && f.Len() == n {
			b.WriteString(fmt.Sprintf("Darvas: %s / %s\n", price(f.ChannelLow[n-1]), price(f.ChannelHigh[n-1])))
		}
	}
	b.WriteString(fmt.Sprintf("Backtest: %s | Sharpe %.2f\n", pct(hit.Result.Summary.CumulativeReturn), hit.Result.Summary.SharpeRatio))
	return b.String()
}

// FormatScanReport lists the hits and failures of a watchlist scan.
func FormatScanReport(interval model.Interval, symbols int, hits []model.ScanHit, failed map[string]string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔎 <b>Escaneo %s</b> | %s\n", interval, time.Now().Format(dateLayout)))
	b.WriteString(fmt.Sprintf("Símbolos: %d | Señales: %d\n\n", symbols, len(hits)))
	if len(hits) == 0 {
		b.WriteString("Sin señales en la última vela.\n")
	}
	for _, h := range hits {
		b.WriteString(fmt.Sprintf("%s %s %s @ %s\n", sideIcon(h.Side), h.Side, html.EscapeString(h.Symbol),
			price(h.Result.Bars[len(h.Result.Bars)-1].Close)))
	}
	if len(failed) > 0 {
		names := lo.Keys(failed)
		sort.Strings(names)
		b.WriteString(fmt.Sprintf("\n⚠️ Sin datos: %s\n", html.EscapeString(strings.Join(names, ", "))))
	}
	return b.String()
}

// FormatVolumeScreen lists the symbols whose recent volume surged.
func FormatVolumeScreen(surges []model.VolumeSurge, windowDays int, ratio float64) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>Volumen %dd</b> (≥ %.0f%% vs %dd previos)\n\n", windowDays, (ratio-1)*100, windowDays))
	if len(surges) == 0 {
		b.WriteString("No se encontraron tickers con ese criterio.\n")
		return b.String()
	}
	for _, s := range surges {
		b.WriteString(fmt.Sprintf("• %s: %s → %s (x%.2f)\n", html.EscapeString(s.Symbol),
			volume(s.PreviousVolume), volume(s.CurrentVolume), s.Ratio))
	}
	return b.String()
}

// FormatPortfolio renders the recommendation for every holding.
func FormatPortfolio(recs []model.Recommendation) string {
	var b strings.Builder
	b.WriteString("📊 <b>Análisis de posiciones</b>\n\n")
	if len(recs) == 0 {
		b.WriteString("Portafolio vacío.\n")
		return b.String()
	}
	for _, r := range recs {
		ret := "—"
		if r.Return != nil {
			ret = pct(*r.Return)
		}
		b.WriteString(fmt.Sprintf("▶ <b>%s</b>: %s\n   %s\n", html.EscapeString(r.Ticker), ret, html.EscapeString(r.Commentary)))
	}
	return b.String()
}

// FormatActionEntry confirms one register entry.
func FormatActionEntry(rec model.ActionRecord) string {
	return fmt.Sprintf("✔ Acción registrada: <b>%s</b> %s (%s) | %s",
		html.EscapeString(rec.Ticker), html.EscapeString(string(rec.Action)), pct(rec.Return),
		rec.Time.Format("02-01-2006 15:04"))
}

// FormatActionSummary renders the per-action breakdown of the register.
func FormatActionSummary(stats []model.ActionStat) string {
	var b strings.Builder
	b.WriteString("📋 <b>Resumen de decisiones</b>\n\n")
	total := lo.SumBy(stats, func(s model.ActionStat) int { return s.Count })
	if total == 0 {
		b.WriteString("No hay acciones registradas aún.\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Total decisiones: %d\n", total))
	for _, s := range stats {
		share := float64(s.Count) / float64(total)
		b.WriteString(fmt.Sprintf("• %s: %d (%s del total) | rentabilidad media %s\n",
			html.EscapeString(string(s.Action)), s.Count, strings.TrimPrefix(pct(share), "+"), pct(s.MeanReturn)))
	}
	return b.String()
}

// HelpText lists the bot commands.
func HelpText() string {
	return "🤖 <b>BoxSentinel</b>\n\n" +
		"/backtest SYMBOL [INTERVAL] - backtest Darvas Box\n" +
		"/scan - escanear la watchlist\n" +
		"/volume - tickers con aumento de volumen\n" +
		"/portfolio - recomendaciones del portafolio\n" +
		"/register TICKER - registrar la acción recomendada\n" +
		"/actions - resumen del registro de acciones\n" +
		"/help - esta ayuda"
}
