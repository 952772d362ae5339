// Package risk validates trade signals against aggregate exposure.
// The gate is evaluated once per signal, in signal order, against a
// working snapshot that advances with every approval, so two signals
// in the same tick can never jointly overcommit shared capital.
package risk

import (
	"main/internal/schema"
)

// Config defines static risk limits.
type Config struct {
	// MaxPositionsPerStrategy caps concurrently open positions per
	// strategy. Zero disables the check.
	MaxPositionsPerStrategy int `json:"maxPositionsPerStrategy"`
	// MaxTotalExposure caps the summed absolute notional across every
	// open position. Zero disables the check.
	MaxTotalExposure float64 `json:"maxTotalExposure"`
	// MaxSymbolExposure caps the summed absolute notional per symbol
	// across strategies. Zero disables the check.
	MaxSymbolExposure float64 `json:"maxSymbolExposure"`
	// MinQty is the smallest entry quantity worth filling after a
	// capital shrink.
	MinQty float64 `json:"minQty"`
}

// Snapshot is the exposure view one tick's decisions run against.
type Snapshot struct {
	Capital        float64
	TotalExposure  float64
	SymbolExposure map[string]float64
	StrategyCounts map[string]int
	Open           map[schema.PositionKey]bool
	// EntriesAllowed mirrors the session state: false once the session
	// has closed.
	EntriesAllowed bool
}

// NewSnapshot builds a snapshot from the canonical position list.
func NewSnapshot(capital float64, positions []schema.Position, entriesAllowed bool) Snapshot {
	snap := Snapshot{
		Capital:        capital,
		SymbolExposure: make(map[string]float64),
		StrategyCounts: make(map[string]int),
		Open:           make(map[schema.PositionKey]bool),
		EntriesAllowed: entriesAllowed,
	}
	for _, p := range positions {
		notional := p.Notional()
		snap.TotalExposure += notional
		snap.SymbolExposure[p.Symbol] += notional
		snap.StrategyCounts[p.StrategyID]++
		snap.Open[p.Key()] = true
	}
	return snap
}

// Gate evaluates risk decisions.
type Gate struct {
	cfg  Config
	snap Snapshot
}

// NewGate creates a gate with static limits.
func NewGate(cfg Config) *Gate {
	return &Gate{cfg: cfg}
}

// BeginTick installs the snapshot all of this tick's signals are
// judged against.
func (g *Gate) BeginTick(snap Snapshot) {
	g.snap = snap
}

// Evaluate decides one signal. Approving an entry reserves its capital
// and exposure in the working snapshot before the next signal is seen.
func (g *Gate) Evaluate(sig schema.Signal) schema.RiskDecision {
	if !sig.Action.IsAvailable() || sig.Symbol == "" || sig.StrategyID == "" {
		return deny(schema.RiskReasonInvalidSignal)
	}
	if sig.Action == schema.SignalExit {
		return g.evaluateExit(sig)
	}
	return g.evaluateEntry(sig)
}

// Exits are always allowed while a position exists, including after
// session close.
func (g *Gate) evaluateExit(sig schema.Signal) schema.RiskDecision {
	k := schema.PositionKey{StrategyID: sig.StrategyID, Symbol: sig.Symbol}
	if !g.snap.Open[k] {
		return deny(schema.RiskReasonNoPosition)
	}
	delete(g.snap.Open, k)
	if g.snap.StrategyCounts[sig.StrategyID] > 0 {
		g.snap.StrategyCounts[sig.StrategyID]--
	}
	return schema.RiskDecision{Approved: true, AdjustedQty: sig.Qty}
}

func (g *Gate) evaluateEntry(sig schema.Signal) schema.RiskDecision {
	if !g.snap.EntriesAllowed {
		return deny(schema.RiskReasonSessionClosed)
	}
	if sig.Qty <= 0 || sig.Price <= 0 {
		return deny(schema.RiskReasonInvalidSignal)
	}
	k := schema.PositionKey{StrategyID: sig.StrategyID, Symbol: sig.Symbol}
	if g.snap.Open[k] {
		return deny(schema.RiskReasonDuplicatePosition)
	}
	if g.cfg.MaxPositionsPerStrategy > 0 && g.snap.StrategyCounts[sig.StrategyID] >= g.cfg.MaxPositionsPerStrategy {
		return deny(schema.RiskReasonStrategyPositionCap)
	}

	qty := sig.Qty
	notional := qty * sig.Price
	if notional > g.snap.Capital {
		// Shrink to the remaining capital rather than rejecting
		// outright; reject when the remainder is not worth filling.
		qty = g.snap.Capital / sig.Price
		notional = qty * sig.Price
		if qty < g.cfg.MinQty || qty <= 0 {
			return deny(schema.RiskReasonCapitalExhausted)
		}
	}
	if g.cfg.MaxSymbolExposure > 0 && g.snap.SymbolExposure[sig.Symbol]+notional > g.cfg.MaxSymbolExposure {
		return deny(schema.RiskReasonSymbolExposure)
	}
	if g.cfg.MaxTotalExposure > 0 && g.snap.TotalExposure+notional > g.cfg.MaxTotalExposure {
		return deny(schema.RiskReasonTotalExposure)
	}

	g.snap.Capital -= notional
	g.snap.TotalExposure += notional
	g.snap.SymbolExposure[sig.Symbol] += notional
	g.snap.StrategyCounts[sig.StrategyID]++
	g.snap.Open[k] = true

	return schema.RiskDecision{Approved: true, AdjustedQty: qty}
}

func deny(reason schema.RiskReason) schema.RiskDecision {
	return schema.RiskDecision{Approved: false, Reason: reason}
}
