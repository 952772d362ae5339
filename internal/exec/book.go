package exec

import (
	"sort"

	"github.com/yanun0323/errors"

	"main/internal/schema"
)

var (
	ErrDuplicatePosition = errors.New("position already open for strategy/symbol")
	ErrUnknownPosition   = errors.New("position not found")
)

// Book is the canonical store of open positions, keyed by
// (strategyID, symbol). Every component that needs a position looks it
// up here; nothing holds a private copy that can drift.
type Book struct {
	positions map[schema.PositionKey]*schema.Position
}

// NewBook creates an empty position book.
func NewBook() *Book {
	return &Book{positions: make(map[schema.PositionKey]*schema.Position)}
}

// Open inserts a new position. At most one open position may exist per
// (strategyID, symbol).
func (b *Book) Open(pos schema.Position) error {
	k := pos.Key()
	if _, ok := b.positions[k]; ok {
		return ErrDuplicatePosition
	}
	p := pos
	b.positions[k] = &p
	return nil
}

// Close removes a position and returns its final record.
func (b *Book) Close(k schema.PositionKey) (schema.Position, error) {
	p, ok := b.positions[k]
	if !ok {
		return schema.Position{}, ErrUnknownPosition
	}
	delete(b.positions, k)
	return *p, nil
}

// Get returns a copy of the position for a key.
func (b *Book) Get(k schema.PositionKey) (schema.Position, bool) {
	p, ok := b.positions[k]
	if !ok {
		return schema.Position{}, false
	}
	return *p, true
}

// Count returns the number of open positions.
func (b *Book) Count() int {
	return len(b.positions)
}

// CountByStrategy returns the number of open positions for a strategy.
func (b *Book) CountByStrategy(strategyID string) int {
	n := 0
	for k := range b.positions {
		if k.StrategyID == strategyID {
			n++
		}
	}
	return n
}

// All returns copies of every open position, ordered by strategy then
// symbol for deterministic iteration.
func (b *Book) All() []schema.Position {
	out := make([]schema.Position, 0, len(b.positions))
	for _, p := range b.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StrategyID != out[j].StrategyID {
			return out[i].StrategyID < out[j].StrategyID
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// RefreshPrice updates current and extreme prices on every open
// position for the tick's symbol. Extremes ratchet: highest seen for
// long, lowest seen for short.
func (b *Book) RefreshPrice(tick schema.Tick) {
	for k, p := range b.positions {
		if k.Symbol != tick.Symbol {
			continue
		}
		p.CurrentPrice = tick.Price
		if p.IsLong() {
			if tick.Price > p.ExtremePrice {
				p.ExtremePrice = tick.Price
			}
		} else {
			if tick.Price < p.ExtremePrice {
				p.ExtremePrice = tick.Price
			}
		}
		p.UnrealizedPnL = p.UnrealizedAt(tick.Price)
	}
}

// SymbolExposure sums absolute notional across strategies for one
// symbol.
func (b *Book) SymbolExposure(symbol string) float64 {
	total := 0.0
	for k, p := range b.positions {
		if k.Symbol == symbol {
			total += p.Notional()
		}
	}
	return total
}

// TotalExposure sums absolute notional across all open positions.
func (b *Book) TotalExposure() float64 {
	total := 0.0
	for _, p := range b.positions {
		total += p.Notional()
	}
	return total
}

// UnrealizedPnL sums open PnL across all positions.
func (b *Book) UnrealizedPnL() float64 {
	total := 0.0
	for _, p := range b.positions {
		total += p.UnrealizedPnL
	}
	return total
}
