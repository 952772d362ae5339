package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/candle"
	"main/internal/feed"
	"main/internal/schema"
)

var testBase = time.Date(2026, 1, 2, 9, 15, 0, 0, time.UTC)

func testCandle(symbol string, start time.Time) schema.Candle {
	return schema.Candle{
		Symbol:    symbol,
		Timeframe: schema.Timeframe1m,
		Start:     start,
		Open:      100,
		High:      105,
		Low:       98,
		Close:     102,
		Volume:    1000,
		Complete:  true,
	}
}

func TestSynthesizeTicksPath(t *testing.T) {
	c := testCandle("NIFTY", testBase)
	ticks := SynthesizeTicks(c, 10)
	require.Len(t, ticks, 10)

	assert.Equal(t, 100.0, ticks[0].Price)
	assert.Equal(t, 102.0, ticks[9].Price)

	// The fixed path visits the high before the low.
	highIdx, lowIdx := -1, -1
	for i, tk := range ticks {
		if tk.Price == 105 {
			highIdx = i
		}
		if tk.Price == 98 {
			lowIdx = i
		}
	}
	require.NotEqual(t, -1, highIdx, "path must touch the high")
	require.NotEqual(t, -1, lowIdx, "path must touch the low")
	assert.Less(t, highIdx, lowIdx)

	// Evenly spaced inside the candle interval.
	step := schema.Timeframe1m.Duration() / 10
	for i, tk := range ticks {
		assert.Equal(t, testBase.Add(time.Duration(i)*step), tk.Timestamp)
		assert.Equal(t, i, tk.Seq)
		assert.InDelta(t, 100.0, tk.Volume, 1e-9)
	}
}

func TestSynthesizeTicksMinimumCount(t *testing.T) {
	ticks := SynthesizeTicks(testCandle("NIFTY", testBase), 2)
	require.Len(t, ticks, 4)
	assert.Equal(t, 100.0, ticks[0].Price)
	assert.Equal(t, 105.0, ticks[1].Price)
	assert.Equal(t, 98.0, ticks[2].Price)
	assert.Equal(t, 102.0, ticks[3].Price)
}

// Re-aggregating the synthetic ticks must rebuild the source candle
// exactly.
func TestSynthesizeTicksRoundTrip(t *testing.T) {
	src := testCandle("NIFTY", testBase)
	a := candle.NewAggregator([]schema.Timeframe{schema.Timeframe1m}, 0)
	for _, tk := range SynthesizeTicks(src, 10) {
		a.Apply(tk)
	}
	a.Flush()

	h := a.History("NIFTY", schema.Timeframe1m)
	require.Len(t, h, 1)
	assert.Equal(t, src.Open, h[0].Open)
	assert.Equal(t, src.High, h[0].High)
	assert.Equal(t, src.Low, h[0].Low)
	assert.Equal(t, src.Close, h[0].Close)
	assert.InDelta(t, src.Volume, h[0].Volume, 1e-6)
}

func TestGeneratorMergesSymbolsDeterministically(t *testing.T) {
	store := feed.NewMemoryStore()
	store.Add("NIFTY", testCandle("NIFTY", testBase))
	store.Add("BANKNIFTY", testCandle("BANKNIFTY", testBase))

	g := NewGenerator(10)
	ticks, err := g.Load(context.Background(), store, []string{"NIFTY", "BANKNIFTY"}, testBase, testBase.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, ticks, 20)

	for i := 1; i < len(ticks); i++ {
		assert.False(t, ticks[i].Before(ticks[i-1]),
			"ticks must be ordered by (timestamp, symbol) at index %d", i)
	}
	// Equal timestamps resolve by symbol.
	assert.Equal(t, "BANKNIFTY", ticks[0].Symbol)
	assert.Equal(t, "NIFTY", ticks[1].Symbol)
}

func TestGeneratorFailsOnMissingSymbolData(t *testing.T) {
	store := feed.NewMemoryStore()
	store.Add("NIFTY", testCandle("NIFTY", testBase))

	g := NewGenerator(10)
	_, err := g.Load(context.Background(), store, []string{"NIFTY", "GHOST"}, testBase, testBase.Add(time.Hour))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GHOST")
}
