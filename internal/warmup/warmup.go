// Package warmup replays historical candles into the aggregator and
// strategies before live ticks arrive, priming indicator state without
// trading.
package warmup

import (
	"context"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/candle"
	"main/internal/feed"
	"main/internal/schema"
	"main/internal/strategy"
)

const defaultMinCandles = 200

// Config controls warmup depth.
type Config struct {
	// MinCandles floors the lookback even when every strategy declares
	// less. Zero selects the default of 200.
	MinCandles int
	// Timeframe is the base timeframe warmup candles are fetched in.
	Timeframe schema.Timeframe
}

// Controller replays history through the aggregator and strategy
// candle hooks. Replay is pure: any signal produced during it is
// drained and discarded.
type Controller struct {
	cfg        Config
	store      feed.Store
	aggregator *candle.Aggregator
	dispatcher *strategy.Dispatcher
}

// NewController creates a warmup controller.
func NewController(cfg Config, store feed.Store, aggregator *candle.Aggregator, dispatcher *strategy.Dispatcher) *Controller {
	if cfg.MinCandles <= 0 {
		cfg.MinCandles = defaultMinCandles
	}
	return &Controller{
		cfg:        cfg,
		store:      store,
		aggregator: aggregator,
		dispatcher: dispatcher,
	}
}

// Lookback is the number of historical candles warmup will request:
// the largest strategy requirement, floored at the configured minimum.
func (c *Controller) Lookback() int {
	lb := c.dispatcher.MaxLookback()
	if lb < c.cfg.MinCandles {
		lb = c.cfg.MinCandles
	}
	return lb
}

// Run fetches and replays history for every symbol, then marks all
// strategies warm. Missing data or a replay error degrades: strategies
// are force-marked warm with a prominent warning and the run proceeds.
func (c *Controller) Run(ctx context.Context, symbols []string, before time.Time) {
	lookback := c.Lookback()
	from := before.Add(-time.Duration(lookback) * c.cfg.Timeframe.Duration())

	warmed := 0
	for _, symbol := range symbols {
		candles, err := c.store.Candles(ctx, symbol, from, before)
		if err != nil {
			logs.Warnf("warmup: fetching %s history failed, trading with cold indicators: %+v", symbol, err)
			continue
		}
		if len(candles) == 0 {
			logs.Warnf("warmup: no %s history before %s, trading with cold indicators", symbol, before.Format(time.RFC3339))
			continue
		}
		for _, hc := range candles {
			c.aggregator.SeedHistory(hc)
			c.dispatcher.DispatchCandle(hc)
		}
		warmed++
		logs.Infof("warmup: replayed %d candles for %s", len(candles), symbol)
	}

	// Replay must never trade.
	c.dispatcher.Discard()
	c.dispatcher.MarkAllWarm()

	if warmed < len(symbols) {
		logs.Warnf("warmup degraded: %d/%d symbols had history; strategies force-marked warm", warmed, len(symbols))
	}
}
