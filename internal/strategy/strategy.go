// Package strategy defines the capability surface trading strategies
// expose to the simulation pipeline and the dispatcher that drives
// them.
package strategy

import (
	"main/internal/schema"
)

// Strategy is the fixed capability set the pipeline depends on. The
// dispatcher never looks past this interface.
type Strategy interface {
	// ID uniquely identifies the strategy instance.
	ID() string
	// Symbols lists the symbols the strategy subscribes to.
	Symbols() []string
	// Timeframes lists the candle timeframes the strategy consumes.
	Timeframes() []schema.Timeframe
	// RequiredLookback is the number of historical candles the
	// strategy needs before its indicators are trustworthy.
	RequiredLookback() int
	// OnTick feeds one live tick.
	OnTick(tick schema.Tick)
	// OnCandle feeds one completed candle.
	OnCandle(c schema.Candle)
	// DrainSignals returns and clears the signals emitted since the
	// last drain.
	DrainSignals() []schema.Signal
}

// PositionView lets a strategy see its own open position without
// holding a copy that can drift from the canonical book.
type PositionView interface {
	Get(k schema.PositionKey) (schema.Position, bool)
}

type nopPositionView struct{}

func (nopPositionView) Get(schema.PositionKey) (schema.Position, bool) {
	return schema.Position{}, false
}

// NopPositionView is an empty view for tests.
var NopPositionView PositionView = nopPositionView{}
