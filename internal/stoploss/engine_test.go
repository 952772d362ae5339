package stoploss

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/schema"
)

var entryTime = time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)

func longPosition(entry float64) schema.Position {
	return schema.Position{
		StrategyID:   "s1",
		Symbol:       "NIFTY",
		Qty:          10,
		EntryPrice:   entry,
		EntryTime:    entryTime,
		CurrentPrice: entry,
		ExtremePrice: entry,
	}
}

func shortPosition(entry float64) schema.Position {
	p := longPosition(entry)
	p.Qty = -10
	return p
}

func TestFixedPctStopNeverMoves(t *testing.T) {
	cfg := Config{Type: TypeFixedPct, Pct: 0.01}
	st := NewState(longPosition(100), cfg, 0)
	assert.InDelta(t, 99.0, st.StopPrice, 1e-9)

	st.Update(110, 110, 0, entryTime.Add(time.Minute))
	assert.InDelta(t, 99.0, st.StopPrice, 1e-9, "fixed stop must ignore favorable moves")

	assert.False(t, st.Check(99.01))
	assert.True(t, st.Check(99.0))
	assert.True(t, st.Check(98.5))
}

func TestTrailingPctStopRatchetsLong(t *testing.T) {
	cfg := Config{Type: TypeTrailingPct, Pct: 0.01}
	st := NewState(longPosition(100), cfg, 0)
	assert.InDelta(t, 99.0, st.StopPrice, 1e-9)

	st.Update(110, 110, 0, entryTime.Add(time.Minute))
	assert.InDelta(t, 108.9, st.StopPrice, 1e-9)

	// Price retreats but the extreme (and the stop) holds.
	st.Update(105, 110, 0, entryTime.Add(2*time.Minute))
	assert.InDelta(t, 108.9, st.StopPrice, 1e-9)
	assert.True(t, st.Check(105))
	assert.False(t, st.Check(109))
}

func TestTrailingPctStopRatchetsShort(t *testing.T) {
	cfg := Config{Type: TypeTrailingPct, Pct: 0.01}
	st := NewState(shortPosition(100), cfg, 0)
	assert.InDelta(t, 101.0, st.StopPrice, 1e-9)

	st.Update(90, 90, 0, entryTime.Add(time.Minute))
	assert.InDelta(t, 90.9, st.StopPrice, 1e-9)

	// A candidate above the current stop is discarded for a short.
	st.Update(95, 90, 0, entryTime.Add(2*time.Minute))
	assert.InDelta(t, 90.9, st.StopPrice, 1e-9)
	assert.True(t, st.Check(91))
	assert.False(t, st.Check(90))
}

func TestATRMultipleStop(t *testing.T) {
	cfg := Config{Type: TypeATRMultiple, Pct: 0.01, ATRMultiple: 2, ATRPeriod: 14}

	st := NewState(longPosition(100), cfg, 1.5)
	assert.InDelta(t, 97.0, st.StopPrice, 1e-9)

	// Without ATR history the percent offset keeps the stop off the
	// entry price.
	cold := NewState(longPosition(100), cfg, 0)
	assert.InDelta(t, 99.0, cold.StopPrice, 1e-9)
	assert.False(t, cold.Check(100))
}

type fixedATR float64

func (f fixedATR) ATR(string, int) float64 { return float64(f) }

func TestManagerLifecycleAndBreach(t *testing.T) {
	cfg := Config{Type: TypeTrailingPct, Pct: 0.01}
	m := NewManager(cfg, fixedATR(0))

	pos := longPosition(100)
	m.Attach(pos)
	st, ok := m.Get(pos.Key())
	require.True(t, ok)
	assert.InDelta(t, 99.0, st.StopPrice, 1e-9)

	// Favorable move ratchets, no breach.
	pos.ExtremePrice = 110
	breached := m.Evaluate(schema.Tick{Symbol: "NIFTY", Timestamp: entryTime.Add(time.Minute), Price: 110}, []schema.Position{pos})
	assert.Empty(t, breached)

	// Retreat below the trailed stop breaches.
	breached = m.Evaluate(schema.Tick{Symbol: "NIFTY", Timestamp: entryTime.Add(2 * time.Minute), Price: 105}, []schema.Position{pos})
	require.Len(t, breached, 1)
	assert.Equal(t, pos.Key(), breached[0])

	m.Detach(pos.Key())
	_, ok = m.Get(pos.Key())
	assert.False(t, ok)
}

func TestManagerIgnoresOtherSymbols(t *testing.T) {
	m := NewManager(Config{Type: TypeTrailingPct, Pct: 0.01}, nil)
	pos := longPosition(100)
	m.Attach(pos)

	breached := m.Evaluate(schema.Tick{Symbol: "BANKNIFTY", Price: 1}, []schema.Position{pos})
	assert.Empty(t, breached)
}

func TestHistoryATR(t *testing.T) {
	h := NewHistoryATR(candleStub{}, schema.Timeframe1m)
	// candleStub serves three candles; ATR averages the last two true
	// ranges: max(H-L, |H-prevC|, |L-prevC|).
	atr := h.ATR("NIFTY", 2)
	assert.InDelta(t, 2.5, atr, 1e-9)

	assert.Zero(t, h.ATR("NIFTY", 0))
	assert.Zero(t, NewHistoryATR(nil, schema.Timeframe1m).ATR("NIFTY", 14))
}

type candleStub struct{}

func (candleStub) History(symbol string, tf schema.Timeframe) []schema.Candle {
	// TR(c2)=max(2, |103-100|, |101-100|)=3; TR(c3)=max(1, |104-102|, |103-102|)=2.
	return []schema.Candle{
		{High: 101, Low: 99, Close: 100},
		{High: 103, Low: 101, Close: 102},
		{High: 104, Low: 103, Close: 103.5},
	}
}
