package stoploss

import (
	"time"

	"github.com/yanun0323/logs"

	"main/internal/schema"
)

// Type fixed percent, trailing percent, ATR multiple
type Type uint8

const (
	_type_beg Type = iota
	TypeFixedPct
	TypeTrailingPct
	TypeATRMultiple
	_type_end
)

func (t Type) IsAvailable() bool {
	return t > _type_beg && t < _type_end
}

func (t Type) String() string {
	switch t {
	case TypeFixedPct:
		return "FIXED_PCT"
	case TypeTrailingPct:
		return "TRAILING_PCT"
	case TypeATRMultiple:
		return "ATR_MULTIPLE"
	default:
		return "UNKNOWN"
	}
}

// Config selects the stop type and its parameters.
type Config struct {
	Type Type
	// Pct is the offset fraction for FIXED_PCT and TRAILING_PCT
	// (0.01 = 1%).
	Pct float64
	// ATRMultiple scales the ATR offset for ATR_MULTIPLE stops.
	ATRMultiple float64
	// ATRPeriod is the lookback for ATR computation.
	ATRPeriod int
}

// ATRSource supplies the current average true range for a symbol.
// Returns zero when not enough history exists.
type ATRSource interface {
	ATR(symbol string, period int) float64
}

// State is the per-position stop price state machine.
//
// Invariant: for a long position StopPrice never decreases across
// updates; for a short it never increases. A recomputed stop that
// would move against the position's favor is discarded.
type State struct {
	StrategyID string
	Symbol     string
	Long       bool
	Config     Config
	StopPrice  float64
	LastUpdate time.Time
}

// NewState creates a stop for a freshly opened position, anchored at
// the entry price. atr is only consulted by ATR_MULTIPLE stops.
func NewState(pos schema.Position, cfg Config, atr float64) *State {
	s := &State{
		StrategyID: pos.StrategyID,
		Symbol:     pos.Symbol,
		Long:       pos.IsLong(),
		Config:     cfg,
	}
	s.StopPrice = s.offsetFrom(pos.EntryPrice, atr)
	s.LastUpdate = pos.EntryTime
	return s
}

// Update recomputes the stop from the position's extreme price. The
// FIXED_PCT stop is set once at entry and never recomputed. Trailing
// variants ratchet: the new stop is accepted only if it moves in the
// position's favor.
func (s *State) Update(currentPrice, extremePrice, atr float64, ts time.Time) {
	if s.Config.Type == TypeFixedPct {
		return
	}
	candidate := s.offsetFrom(extremePrice, atr)
	if s.Long {
		if candidate > s.StopPrice {
			s.StopPrice = candidate
			s.LastUpdate = ts
		}
		return
	}
	if candidate < s.StopPrice {
		s.StopPrice = candidate
		s.LastUpdate = ts
	}
}

// Check reports whether the price has crossed the stop against the
// position: price at or below the stop for a long, at or above for a
// short.
func (s *State) Check(currentPrice float64) bool {
	if s.Long {
		return currentPrice <= s.StopPrice
	}
	return currentPrice >= s.StopPrice
}

func (s *State) offsetFrom(anchor, atr float64) float64 {
	var offset float64
	switch s.Config.Type {
	case TypeATRMultiple:
		offset = s.Config.ATRMultiple * atr
		if offset <= 0 {
			// No ATR history yet; fall back to the percent offset so a
			// fresh stop never sits on the entry price itself.
			offset = anchor * s.Config.Pct
		}
	default:
		offset = anchor * s.Config.Pct
	}
	if s.Long {
		return anchor - offset
	}
	return anchor + offset
}

// Manager owns one stop state per open position, keyed by
// (strategyID, symbol). It implements the execution simulator's stop
// lifecycle hook.
type Manager struct {
	cfg    Config
	atr    ATRSource
	states map[schema.PositionKey]*State
}

// NewManager creates a manager applying one stop config to every
// position. atr may be nil when no ATR_MULTIPLE stop is configured.
func NewManager(cfg Config, atr ATRSource) *Manager {
	return &Manager{
		cfg:    cfg,
		atr:    atr,
		states: make(map[schema.PositionKey]*State),
	}
}

// Attach creates the stop state for a freshly opened position.
func (m *Manager) Attach(pos schema.Position) {
	var atr float64
	if m.cfg.Type == TypeATRMultiple && m.atr != nil {
		atr = m.atr.ATR(pos.Symbol, m.cfg.ATRPeriod)
	}
	st := NewState(pos, m.cfg, atr)
	m.states[pos.Key()] = st
	logs.Infof("stop attached %s %s type=%s stop=%.4f", pos.StrategyID, pos.Symbol, m.cfg.Type, st.StopPrice)
}

// Detach removes the stop state when a position closes.
func (m *Manager) Detach(k schema.PositionKey) {
	delete(m.states, k)
}

// Get returns the stop state for a key.
func (m *Manager) Get(k schema.PositionKey) (*State, bool) {
	st, ok := m.states[k]
	return st, ok
}

// Evaluate updates every stop touched by the tick and returns the keys
// whose stop has been breached. A breach does not close the position;
// the caller routes an EXIT signal through the normal execution path.
func (m *Manager) Evaluate(tick schema.Tick, positions []schema.Position) []schema.PositionKey {
	var breached []schema.PositionKey
	for _, pos := range positions {
		if pos.Symbol != tick.Symbol {
			continue
		}
		st, ok := m.states[pos.Key()]
		if !ok {
			continue
		}
		var atr float64
		if m.cfg.Type == TypeATRMultiple && m.atr != nil {
			atr = m.atr.ATR(pos.Symbol, m.cfg.ATRPeriod)
		}
		st.Update(tick.Price, pos.ExtremePrice, atr, tick.Timestamp)
		if st.Check(tick.Price) {
			breached = append(breached, pos.Key())
		}
	}
	return breached
}
