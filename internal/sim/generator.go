/*
Sim implements the replay simulation core.

# Module
  - generator: converts historical candles into an ordered synthetic tick stream
  - runner: single thread driver invoking aggregation, session checks, strategy
    dispatch, risk validation, execution and stop-loss evaluation per tick

# Source
 1. historical candles from the feed store

# Produce
  - filled/rejected orders, closed trades, run summary
*/
package sim

import (
	"context"
	"sort"
	"time"

	"github.com/yanun0323/errors"

	"main/internal/feed"
	"main/internal/schema"
)

const defaultTicksPerCandle = 10

// SynthesizeTicks expands one candle into n evenly spaced ticks. The
// intra-candle price path is fixed as open→high→low→close so both
// extremes are exercised deterministically; it is never randomized.
func SynthesizeTicks(c schema.Candle, n int) []schema.Tick {
	if n <= 0 {
		n = defaultTicksPerCandle
	}
	if n < 4 {
		n = 4
	}
	prices := pricePath(c, n)
	step := c.Timeframe.Duration() / time.Duration(n)
	volume := c.Volume / float64(n)

	ticks := make([]schema.Tick, n)
	for i := 0; i < n; i++ {
		ticks[i] = schema.Tick{
			Symbol:    c.Symbol,
			Timestamp: c.Start.Add(time.Duration(i) * step),
			Price:     prices[i],
			Volume:    volume,
			Seq:       i,
		}
	}
	return ticks
}

// pricePath interpolates n points along open→high→low→close. The n-1
// steps are split across the three legs, longer legs first.
func pricePath(c schema.Candle, n int) []float64 {
	waypoints := []float64{c.Open, c.High, c.Low, c.Close}
	steps := n - 1
	segs := [3]int{steps / 3, steps / 3, steps / 3}
	for i := 0; i < steps%3; i++ {
		segs[i]++
	}

	prices := make([]float64, 0, n)
	prices = append(prices, waypoints[0])
	for seg := 0; seg < 3; seg++ {
		from, to := waypoints[seg], waypoints[seg+1]
		for i := 1; i <= segs[seg]; i++ {
			frac := float64(i) / float64(segs[seg])
			prices = append(prices, from+(to-from)*frac)
		}
	}
	return prices
}

// Generator converts the simulation date's candles into one globally
// ordered synthetic tick stream.
type Generator struct {
	ticksPerCandle int
}

// NewGenerator creates a generator. ticksPerCandle <= 0 selects the
// default of 10.
func NewGenerator(ticksPerCandle int) *Generator {
	if ticksPerCandle <= 0 {
		ticksPerCandle = defaultTicksPerCandle
	}
	return &Generator{ticksPerCandle: ticksPerCandle}
}

// Load fetches every symbol's candles for [from, to) and merges their
// synthetic ticks into one stream ordered by (timestamp, symbol). A
// symbol with no candles is a fatal precondition failure: the caller
// gets an error, not a silent half-empty run.
func (g *Generator) Load(ctx context.Context, store feed.Store, symbols []string, from, to time.Time) ([]schema.Tick, error) {
	if len(symbols) == 0 {
		return nil, errors.New("no symbols configured")
	}

	var merged []schema.Tick
	for _, symbol := range symbols {
		candles, err := store.Candles(ctx, symbol, from, to)
		if err != nil {
			return nil, errors.Wrap(err, "load candles for "+symbol)
		}
		if len(candles) == 0 {
			return nil, errors.Errorf("no candle data for %s in [%s, %s)",
				symbol, from.Format(time.RFC3339), to.Format(time.RFC3339))
		}
		for _, c := range candles {
			merged = append(merged, SynthesizeTicks(c, g.ticksPerCandle)...)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Before(merged[j]) })
	return merged, nil
}
