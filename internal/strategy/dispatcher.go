package strategy

import (
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/schema"
)

var ErrDuplicateStrategy = errors.New("strategy id already registered")

// Dispatcher owns the strategy instances, routes ticks and candles to
// them and collects their signals. Dispatch and collection order is
// registration order, which keeps same-tick risk sequencing stable.
type Dispatcher struct {
	ordered []Strategy
	byID    map[string]Strategy
	warm    map[string]bool
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		byID: make(map[string]Strategy),
		warm: make(map[string]bool),
	}
}

// Register adds a strategy. Strategies start cold: their signals are
// discarded until MarkWarm.
func (d *Dispatcher) Register(s Strategy) error {
	if _, ok := d.byID[s.ID()]; ok {
		return errors.Wrap(ErrDuplicateStrategy, s.ID())
	}
	d.ordered = append(d.ordered, s)
	d.byID[s.ID()] = s
	return nil
}

// Strategies returns the registered strategies in registration order.
func (d *Dispatcher) Strategies() []Strategy {
	out := make([]Strategy, len(d.ordered))
	copy(out, d.ordered)
	return out
}

// MaxLookback returns the largest lookback requirement across all
// registered strategies.
func (d *Dispatcher) MaxLookback() int {
	max := 0
	for _, s := range d.ordered {
		if lb := s.RequiredLookback(); lb > max {
			max = lb
		}
	}
	return max
}

// MarkWarm flags one strategy as warmed up.
func (d *Dispatcher) MarkWarm(id string) {
	if _, ok := d.byID[id]; ok {
		d.warm[id] = true
	}
}

// MarkAllWarm flags every strategy as warmed up.
func (d *Dispatcher) MarkAllWarm() {
	for id := range d.byID {
		d.warm[id] = true
	}
}

// IsWarm reports whether a strategy finished warmup.
func (d *Dispatcher) IsWarm(id string) bool {
	return d.warm[id]
}

// DispatchTick routes a tick to every strategy subscribed to its
// symbol.
func (d *Dispatcher) DispatchTick(tick schema.Tick) {
	for _, s := range d.ordered {
		if subscribes(s.Symbols(), tick.Symbol) {
			s.OnTick(tick)
		}
	}
}

// DispatchCandle routes a completed candle to every strategy
// subscribed to its symbol and timeframe.
func (d *Dispatcher) DispatchCandle(c schema.Candle) {
	for _, s := range d.ordered {
		if !subscribes(s.Symbols(), c.Symbol) {
			continue
		}
		for _, tf := range s.Timeframes() {
			if tf == c.Timeframe {
				s.OnCandle(c)
				break
			}
		}
	}
}

// Collect drains every strategy's emitted signals, in registration
// order. Signals from cold strategies are dropped so warmup replay can
// never trade.
func (d *Dispatcher) Collect() []schema.Signal {
	var out []schema.Signal
	for _, s := range d.ordered {
		signals := s.DrainSignals()
		if len(signals) == 0 {
			continue
		}
		if !d.warm[s.ID()] {
			logs.Warnf("dropping %d signal(s) from cold strategy %s", len(signals), s.ID())
			continue
		}
		out = append(out, signals...)
	}
	return out
}

// Discard drains and drops every pending signal. Used after warmup
// replay.
func (d *Dispatcher) Discard() {
	for _, s := range d.ordered {
		s.DrainSignals()
	}
}

// SquareOffAll synthesizes one EXIT signal per open position. Both the
// session close-out and stop-loss breaches go through this path so
// every closure rides the normal risk/execution pipeline.
func SquareOffAll(positions []schema.Position, ts time.Time) []schema.Signal {
	signals := make([]schema.Signal, 0, len(positions))
	for _, p := range positions {
		signals = append(signals, schema.Signal{
			StrategyID: p.StrategyID,
			Symbol:     p.Symbol,
			Action:     schema.SignalExit,
			Price:      p.CurrentPrice,
			Timestamp:  ts,
		})
	}
	return signals
}

func subscribes(symbols []string, symbol string) bool {
	for _, s := range symbols {
		if s == symbol {
			return true
		}
	}
	return false
}
