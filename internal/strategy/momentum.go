package strategy

import (
	"math"
	"time"

	"main/internal/schema"
)

// Momentum emits signals when the percent change over a rolling tick
// window exceeds a threshold: a strong move opens a position in its
// direction, and a reversal past half the threshold exits it.
type Momentum struct {
	id        string
	symbols   []string
	threshold float64
	window    time.Duration
	qty       float64
	view      PositionView

	series  map[string][]schema.Tick
	pending []schema.Signal
}

// NewMomentum builds a tick-momentum strategy.
func NewMomentum(id string, symbols []string, threshold float64, window time.Duration, qty float64, view PositionView) *Momentum {
	if threshold <= 0 {
		threshold = 0.01
	}
	if window <= 0 {
		window = 3 * time.Minute
	}
	if view == nil {
		view = NopPositionView
	}
	return &Momentum{
		id:        id,
		symbols:   symbols,
		threshold: threshold,
		window:    window,
		qty:       qty,
		view:      view,
		series:    make(map[string][]schema.Tick),
	}
}

func (m *Momentum) ID() string { return m.id }

func (m *Momentum) Symbols() []string { return m.symbols }

// Timeframes is empty; the strategy is tick-driven.
func (m *Momentum) Timeframes() []schema.Timeframe { return nil }

func (m *Momentum) RequiredLookback() int { return 0 }

func (m *Momentum) OnCandle(schema.Candle) {}

func (m *Momentum) OnTick(tick schema.Tick) {
	if tick.Symbol == "" || tick.Price <= 0 {
		return
	}
	series := m.appendTick(tick)
	if len(series) < 2 {
		return
	}
	oldest := series[0]
	if oldest.Price <= 0 {
		return
	}
	change := (tick.Price - oldest.Price) / oldest.Price

	pos, held := m.view.Get(schema.PositionKey{StrategyID: m.id, Symbol: tick.Symbol})
	indicators := map[string]float64{"momentum": change}

	if held {
		against := (pos.IsLong() && change < -m.threshold/2) ||
			(!pos.IsLong() && change > m.threshold/2)
		if against {
			m.emit(tick, schema.SignalExit, indicators)
		}
		return
	}

	if math.Abs(change) < m.threshold {
		return
	}
	action := schema.SignalEnterLong
	if change < 0 {
		action = schema.SignalEnterShort
	}
	m.emit(tick, action, indicators)
}

func (m *Momentum) appendTick(tick schema.Tick) []schema.Tick {
	series := append(m.series[tick.Symbol], tick)
	cutoff := tick.Timestamp.Add(-m.window)
	idx := 0
	for idx < len(series) && !series[idx].Timestamp.After(cutoff) {
		idx++
	}
	series = series[idx:]
	m.series[tick.Symbol] = series
	return series
}

func (m *Momentum) emit(tick schema.Tick, action schema.SignalAction, indicators map[string]float64) {
	m.pending = append(m.pending, schema.Signal{
		StrategyID: m.id,
		Symbol:     tick.Symbol,
		Action:     action,
		Qty:        m.qty,
		Price:      tick.Price,
		Timestamp:  tick.Timestamp,
		Indicators: indicators,
	})
}

func (m *Momentum) DrainSignals() []schema.Signal {
	out := m.pending
	m.pending = nil
	return out
}
