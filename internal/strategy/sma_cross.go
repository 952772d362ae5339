package strategy

import (
	"main/internal/schema"
)

// SMACross trades simple-moving-average crossovers on completed
// candles of one timeframe: fast crossing above slow opens a long,
// crossing below opens a short, and a cross against an open position
// exits it.
type SMACross struct {
	id      string
	symbols []string
	tf      schema.Timeframe
	fast    int
	slow    int
	qty     float64
	view    PositionView

	closes  map[string][]float64
	pending []schema.Signal
}

// NewSMACross builds an SMA crossover strategy.
func NewSMACross(id string, symbols []string, tf schema.Timeframe, fast, slow int, qty float64, view PositionView) *SMACross {
	if fast <= 0 {
		fast = 9
	}
	if slow <= fast {
		slow = fast * 3
	}
	if view == nil {
		view = NopPositionView
	}
	return &SMACross{
		id:      id,
		symbols: symbols,
		tf:      tf,
		fast:    fast,
		slow:    slow,
		qty:     qty,
		view:    view,
		closes:  make(map[string][]float64),
	}
}

func (s *SMACross) ID() string { return s.id }

func (s *SMACross) Symbols() []string { return s.symbols }

func (s *SMACross) Timeframes() []schema.Timeframe {
	return []schema.Timeframe{s.tf}
}

// RequiredLookback needs one candle beyond the slow window to detect a
// cross.
func (s *SMACross) RequiredLookback() int { return s.slow + 1 }

// OnTick is a no-op; the strategy is candle-driven.
func (s *SMACross) OnTick(schema.Tick) {}

func (s *SMACross) OnCandle(c schema.Candle) {
	if c.Timeframe != s.tf {
		return
	}
	closes := append(s.closes[c.Symbol], c.Close)
	if keep := s.slow + 1; len(closes) > keep {
		closes = closes[len(closes)-keep:]
	}
	s.closes[c.Symbol] = closes
	if len(closes) < s.slow+1 {
		return
	}

	fastNow := sma(closes[len(closes)-s.fast:])
	slowNow := sma(closes[len(closes)-s.slow:])
	fastPrev := sma(closes[len(closes)-s.fast-1 : len(closes)-1])
	slowPrev := sma(closes[len(closes)-s.slow-1 : len(closes)-1])

	crossedUp := fastPrev <= slowPrev && fastNow > slowNow
	crossedDown := fastPrev >= slowPrev && fastNow < slowNow
	if !crossedUp && !crossedDown {
		return
	}

	indicators := map[string]float64{
		"sma_fast": fastNow,
		"sma_slow": slowNow,
	}
	pos, held := s.view.Get(schema.PositionKey{StrategyID: s.id, Symbol: c.Symbol})

	switch {
	case held && crossedUp && !pos.IsLong(),
		held && crossedDown && pos.IsLong():
		s.emit(c, schema.SignalExit, indicators)
	case !held && crossedUp:
		s.emit(c, schema.SignalEnterLong, indicators)
	case !held && crossedDown:
		s.emit(c, schema.SignalEnterShort, indicators)
	}
}

func (s *SMACross) emit(c schema.Candle, action schema.SignalAction, indicators map[string]float64) {
	s.pending = append(s.pending, schema.Signal{
		StrategyID: s.id,
		Symbol:     c.Symbol,
		Action:     action,
		Qty:        s.qty,
		Price:      c.Close,
		Timestamp:  c.Start.Add(c.Timeframe.Duration()),
		Indicators: indicators,
	})
}

func (s *SMACross) DrainSignals() []schema.Signal {
	out := s.pending
	s.pending = nil
	return out
}

func sma(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
