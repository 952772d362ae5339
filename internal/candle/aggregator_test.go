package candle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/schema"
)

var base = time.Date(2026, 1, 2, 9, 15, 0, 0, time.UTC)

func tick(symbol string, ts time.Time, price float64) schema.Tick {
	return schema.Tick{Symbol: symbol, Timestamp: ts, Price: price, Volume: 10}
}

func TestAggregatorIndependentTimeframes(t *testing.T) {
	a := NewAggregator([]schema.Timeframe{schema.Timeframe1m, schema.Timeframe3m}, 0)

	// Three ticks per minute for three minutes.
	for minute := 0; minute < 3; minute++ {
		for sec := 0; sec < 60; sec += 20 {
			ts := base.Add(time.Duration(minute)*time.Minute + time.Duration(sec)*time.Second)
			a.Apply(tick("NIFTY", ts, 100+float64(minute)))
		}
	}
	a.Flush()

	oneMin := a.History("NIFTY", schema.Timeframe1m)
	require.Len(t, oneMin, 3)
	threeMin := a.History("NIFTY", schema.Timeframe3m)
	require.Len(t, threeMin, 1)

	assert.Equal(t, 100.0, threeMin[0].Open)
	assert.Equal(t, 102.0, threeMin[0].Close)
	assert.InDelta(t, 90.0, threeMin[0].Volume, 1e-9)
	assert.True(t, threeMin[0].Complete)
}

func TestAggregatorOHLCBounds(t *testing.T) {
	a := NewAggregator([]schema.Timeframe{schema.Timeframe1m}, 0)

	prices := []float64{100, 104, 97, 101}
	for i, p := range prices {
		a.Apply(tick("NIFTY", base.Add(time.Duration(i)*10*time.Second), p))
	}
	a.Flush()

	h := a.History("NIFTY", schema.Timeframe1m)
	require.Len(t, h, 1)
	c := h[0]
	assert.Equal(t, 100.0, c.Open)
	assert.Equal(t, 104.0, c.High)
	assert.Equal(t, 97.0, c.Low)
	assert.Equal(t, 101.0, c.Close)
	assert.Equal(t, base, c.Start)
}

func TestAggregatorCompletionHandlerRunsOnBucketRoll(t *testing.T) {
	a := NewAggregator([]schema.Timeframe{schema.Timeframe1m}, 0)

	var completed []schema.Candle
	a.OnComplete(schema.Timeframe1m, func(c schema.Candle) {
		completed = append(completed, c)
	})

	a.Apply(tick("NIFTY", base, 100))
	a.Apply(tick("NIFTY", base.Add(30*time.Second), 101))
	assert.Empty(t, completed, "no candle completes while its bucket is open")

	// First tick of the next minute closes the previous candle
	// synchronously inside Apply.
	a.Apply(tick("NIFTY", base.Add(time.Minute), 102))
	require.Len(t, completed, 1)
	assert.True(t, completed[0].Complete)
	assert.Equal(t, 101.0, completed[0].Close)

	inProgress, ok := a.InProgress("NIFTY", schema.Timeframe1m)
	require.True(t, ok)
	assert.Equal(t, 102.0, inProgress.Open)
}

func TestAggregatorHistoryEviction(t *testing.T) {
	a := NewAggregator([]schema.Timeframe{schema.Timeframe1m}, 2)

	for minute := 0; minute < 4; minute++ {
		a.Apply(tick("NIFTY", base.Add(time.Duration(minute)*time.Minute), 100+float64(minute)))
	}
	a.Flush()

	h := a.History("NIFTY", schema.Timeframe1m)
	require.Len(t, h, 2)
	assert.Equal(t, 102.0, h[0].Open)
	assert.Equal(t, 103.0, h[1].Open)
}

func TestAggregatorSymbolsDoNotInterfere(t *testing.T) {
	a := NewAggregator([]schema.Timeframe{schema.Timeframe1m}, 0)

	a.Apply(tick("NIFTY", base, 100))
	a.Apply(tick("BANKNIFTY", base, 500))
	a.Apply(tick("NIFTY", base.Add(time.Minute), 101))

	h := a.History("NIFTY", schema.Timeframe1m)
	require.Len(t, h, 1)
	assert.Equal(t, 100.0, h[0].Close)
	assert.Empty(t, a.History("BANKNIFTY", schema.Timeframe1m))
}

func TestSeedHistoryLeavesOpenCandlesAlone(t *testing.T) {
	a := NewAggregator([]schema.Timeframe{schema.Timeframe1m}, 0)

	a.Apply(tick("NIFTY", base, 100))
	a.SeedHistory(schema.Candle{
		Symbol:    "NIFTY",
		Timeframe: schema.Timeframe1m,
		Start:     base.Add(-time.Minute),
		Open:      99, High: 99.5, Low: 98.5, Close: 99.2,
	})

	h := a.History("NIFTY", schema.Timeframe1m)
	require.Len(t, h, 1)
	assert.True(t, h[0].Complete)

	inProgress, ok := a.InProgress("NIFTY", schema.Timeframe1m)
	require.True(t, ok)
	assert.Equal(t, 100.0, inProgress.Open)
}
