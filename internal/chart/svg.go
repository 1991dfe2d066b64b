package chart

import (
	"bytes"
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"

	"BoxSentinel/internal/model"
)

// Options controls the rendered size and how many trailing bars are drawn.
type Options struct {
	Width    int
	Height   int
	LastBars int
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = 980
	}
	if o.Height <= 0 {
		o.Height = 520
	}
	if o.LastBars <= 0 {
		o.LastBars = 250
	}
	return o
}

const (
	bg        = "#0b1220"
	grid      = "rgba(255,255,255,0.08)"
	txt       = "rgba(255,255,255,0.85)"
	upColor   = "#22c55e"
	downColor = "#ef4444"
	trendCol  = "#facc15"
	boxCol    = "#38bdf8"
	font      = "ui-monospace, Menlo, Monaco, Consolas, monospace"
)

// series is one overlay polyline; NaN entries break the line.
type series struct {
	values []float64
	color  string
	label  string
	dash   bool
}

// RenderBacktest draws candles with the MavilimW line, the Darvas channel and
// buy/sell markers.
func RenderBacktest(res *model.BacktestResult, opt Options) ([]byte, error) {
	opt = opt.withDefaults()
	bars := res.Bars
	if len(bars) < 2 {
		return nil, fmt.Errorf("not enough bars: %d", len(bars))
	}
	from := 0
	if len(bars) > opt.LastBars {
		from = len(bars) - opt.LastBars
	}
	bars = bars[from:]

	var overlays []series
	if f := res.Frame; f != nil && f.Len() == len(res.Bars) {
		overlays = []series{
			{values: f.Trend[from:], color: trendCol, label: "MavilimW"},
			{values: f.ChannelHigh[from:], color: boxCol, label: "Darvas High", dash: true},
			{values: f.ChannelLow[from:], color: boxCol, label: "Darvas Low", dash: true},
		}
	}

	minP, maxP := math.Inf(1), math.Inf(-1)
	for _, b := range bars {
		minP = math.Min(minP, b.Low)
		maxP = math.Max(maxP, b.High)
	}
	for _, s := range overlays {
		for _, v := range s.values {
			if !math.IsNaN(v) {
				minP = math.Min(minP, v)
				maxP = math.Max(maxP, v)
			}
		}
	}
	if math.IsInf(minP, 0) || math.IsInf(maxP, 0) || maxP < minP {
		return nil, fmt.Errorf("invalid price range")
	}
	pad := (maxP - minP) * 0.05
	if pad <= 0 {
		pad = minP * 0.02
	}
	minP -= pad
	maxP += pad

	w := float64(opt.Width)
	h := float64(opt.Height)
	mLeft, mRight, mTop, mBottom := 70.0, 20.0, 24.0, 40.0
	plotW := w - mLeft - mRight
	plotH := h - mTop - mBottom
	if plotW <= 10 || plotH <= 10 {
		return nil, fmt.Errorf("invalid chart size")
	}

	priceToY := func(p float64) float64 {
		r := (p - minP) / (maxP - minP)
		r = math.Max(0, math.Min(1, r))
		return mTop + (1.0-r)*plotH
	}
	step := plotW / float64(len(bars))
	cw := math.Max(1.0, step*0.65)
	xAt := func(i int) float64 { return mLeft + (float64(i)+0.5)*step }

	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		opt.Width, opt.Height, opt.Width, opt.Height)
	buf.WriteString(`<rect x="0" y="0" width="100%" height="100%" fill="` + bg + `"/>` + "\n")

	title := fmt.Sprintf("%s %s  %s ~ %s", strings.TrimSpace(res.Symbol), res.Interval,
		bars[0].Time.Format("2006-01-02"), bars[len(bars)-1].Time.Format("2006-01-02"))
	text(&buf, mLeft, 16, txt, 14, title)

	for k := 0; k <= 5; k++ {
		y := mTop + (float64(k)/5.0)*plotH
		line(&buf, mLeft, y, mLeft+plotW, y, grid, 1, false)
		text(&buf, 6, y+4, txt, 12, fmtPrice(maxP-(float64(k)/5.0)*(maxP-minP)))
	}

	for i, b := range bars {
		x := xAt(i)
		col := upColor
		if b.Close < b.Open {
			col = downColor
		}
		yTop := math.Min(priceToY(b.Open), priceToY(b.Close))
		yBot := math.Max(priceToY(b.Open), priceToY(b.Close))
		if yBot-yTop < 1 {
			yBot = yTop + 1
		}
		line(&buf, x, priceToY(b.High), x, priceToY(b.Low), col, 1, false)
		buf.WriteString(`<rect x="` + fmtFloat(x-cw/2) + `" y="` + fmtFloat(yTop) + `" width="` + fmtFloat(cw) +
			`" height="` + fmtFloat(yBot-yTop) + `" fill="` + col + `" opacity="0.9"/>` + "\n")
	}

	for k, s := range overlays {
		for _, seg := range segments(s.values) {
			var pts strings.Builder
			for _, i := range seg {
				pts.WriteString(fmtFloat(xAt(i)) + "," + fmtFloat(priceToY(s.values[i])) + " ")
			}
			style := ""
			if s.dash {
				style = ` stroke-dasharray="6 4"`
			}
			buf.WriteString(`<polyline fill="none" stroke="` + s.color + `" stroke-width="1.4"` + style +
				` points="` + strings.TrimSpace(pts.String()) + `"/>` + "\n")
		}
		text(&buf, mLeft+6+float64(k)*120, h-12, s.color, 12, s.label)
	}

	if len(res.Signals) == len(res.Bars) {
		for i, sig := range res.Signals[from:] {
			x := xAt(i)
			b := bars[i]
			switch {
			case sig.Buy:
				y := priceToY(b.Low) + 6
				triangle(&buf, x, y, 6, false, upColor)
			case sig.Sell:
				y := priceToY(b.High) - 6
				triangle(&buf, x, y, 6, true, downColor)
			}
		}
	}

	buf.WriteString(`</svg>` + "\n")
	return buf.Bytes(), nil
}

// segments splits the indices of values into runs of defined entries.
func segments(values []float64) [][]int {
	var out [][]int
	var cur []int
	for i, v := range values {
		if math.IsNaN(v) {
			if len(cur) > 1 {
				out = append(out, cur)
			}
			cur = nil
			continue
		}
		cur = append(cur, i)
	}
	if len(cur) > 1 {
		out = append(out, cur)
	}
	return out
}

func line(buf *bytes.Buffer, x1, y1, x2, y2 float64, color string, width float64, dash bool) {
	style := ""
	if dash {
		style = ` stroke-dasharray="6 6"`
	}
	buf.WriteString(`<line x1="` + fmtFloat(x1) + `" y1="` + fmtFloat(y1) + `" x2="` + fmtFloat(x2) + `" y2="` + fmtFloat(y2) +
		`" stroke="` + color + `" stroke-width="` + fmtFloat(width) + `"` + style + `/>` + "\n")
}

func text(buf *bytes.Buffer, x, y float64, color string, size int, s string) {
	buf.WriteString(`<text x="` + fmtFloat(x) + `" y="` + fmtFloat(y) + `" fill="` + color + `" font-size="` + strconv.Itoa(size) +
		`" font-family="` + font + `">` + html.EscapeString(s) + `</text>` + "\n")
}

// triangle draws an arrow head at (x, y) pointing up, or down when down is set.
func triangle(buf *bytes.Buffer, x, y, r float64, down bool, color string) {
	tip, base := y-r, y+r
	if down {
		tip, base = y+r, y-r
	}
	pts := fmtFloat(x) + "," + fmtFloat(tip) + " " + fmtFloat(x-r) + "," + fmtFloat(base) + " " + fmtFloat(x+r) + "," + fmtFloat(base)
	buf.WriteString(`<polygon class="signal" points="` + pts + `" fill="` + color + `"/>` + "\n")
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func fmtPrice(p float64) string {
	switch {
	case p >= 1000:
		return strconv.FormatFloat(p, 'f', 0, 64)
	case p >= 10:
		return strconv.FormatFloat(p, 'f', 2, 64)
	default:
		return strconv.FormatFloat(p, 'f', 4, 64)
	}
}
