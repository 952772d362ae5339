package stoploss

import (
	"main/internal/schema"
)

// CandleHistory is the slice of the aggregator the ATR computation
// needs.
type CandleHistory interface {
	History(symbol string, tf schema.Timeframe) []schema.Candle
}

// HistoryATR computes the average true range from completed candles of
// one timeframe.
type HistoryATR struct {
	source CandleHistory
	tf     schema.Timeframe
}

// NewHistoryATR creates an ATR source over a candle history.
func NewHistoryATR(source CandleHistory, tf schema.Timeframe) HistoryATR {
	return HistoryATR{source: source, tf: tf}
}

// ATR returns the simple average of true ranges over the last period
// candles, or zero when fewer than two candles exist.
func (h HistoryATR) ATR(symbol string, period int) float64 {
	if h.source == nil || period <= 0 {
		return 0
	}
	candles := h.source.History(symbol, h.tf)
	if len(candles) < 2 {
		return 0
	}
	start := len(candles) - period
	if start < 1 {
		start = 1
	}
	sum := 0.0
	n := 0
	for i := start; i < len(candles); i++ {
		sum += trueRange(candles[i], candles[i-1].Close)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func trueRange(c schema.Candle, prevClose float64) float64 {
	tr := c.High - c.Low
	if hc := abs(c.High - prevClose); hc > tr {
		tr = hc
	}
	if lc := abs(c.Low - prevClose); lc > tr {
		tr = lc
	}
	return tr
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
