// Package feed is the historical-data collaborator boundary: candle
// retrieval for tick synthesis and warmup replay.
package feed

import (
	"context"
	"time"

	"main/internal/schema"
)

// Store serves historical candles sorted by start time ascending. A
// period with no data yields an empty slice, not an error.
type Store interface {
	Candles(ctx context.Context, symbol string, from, to time.Time) ([]schema.Candle, error)
}

// MemoryStore is an in-memory Store for tests and tools.
type MemoryStore struct {
	candles map[string][]schema.Candle
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{candles: make(map[string][]schema.Candle)}
}

// Add appends candles for a symbol. Candles must be added in
// chronological order.
func (s *MemoryStore) Add(symbol string, candles ...schema.Candle) {
	s.candles[symbol] = append(s.candles[symbol], candles...)
}

// Candles returns the candles within [from, to).
func (s *MemoryStore) Candles(_ context.Context, symbol string, from, to time.Time) ([]schema.Candle, error) {
	var out []schema.Candle
	for _, c := range s.candles[symbol] {
		if c.Start.Before(from) || !c.Start.Before(to) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
