package candle

import (
	"main/internal/schema"
)

const defaultMaxHistory = 500

// CompletionHandler observes a fully closed candle. Handlers run
// synchronously inside the tick that closes the bucket and must never
// see a partially built candle.
type CompletionHandler func(c schema.Candle)

type key struct {
	symbol string
	tf     schema.Timeframe
}

// Aggregator builds OHLCV candles per (symbol, timeframe) from a tick
// stream. Timeframes are independent: every registered timeframe folds
// the same ticks into its own bucket.
type Aggregator struct {
	timeframes []schema.Timeframe
	open       map[key]*schema.Candle
	history    map[key][]schema.Candle
	handlers   map[schema.Timeframe][]CompletionHandler
	maxHistory int
}

// NewAggregator creates an aggregator over a fixed set of timeframes.
// maxHistory caps completed candles retained per (symbol, timeframe);
// zero or negative selects the default.
func NewAggregator(timeframes []schema.Timeframe, maxHistory int) *Aggregator {
	if maxHistory <= 0 {
		maxHistory = defaultMaxHistory
	}
	tfs := make([]schema.Timeframe, len(timeframes))
	copy(tfs, timeframes)
	return &Aggregator{
		timeframes: tfs,
		open:       make(map[key]*schema.Candle),
		history:    make(map[key][]schema.Candle),
		handlers:   make(map[schema.Timeframe][]CompletionHandler),
		maxHistory: maxHistory,
	}
}

// Timeframes returns the registered timeframes.
func (a *Aggregator) Timeframes() []schema.Timeframe {
	tfs := make([]schema.Timeframe, len(a.timeframes))
	copy(tfs, a.timeframes)
	return tfs
}

// OnComplete registers a handler for completed candles of one
// timeframe. The timeframe is bound at registration time.
func (a *Aggregator) OnComplete(tf schema.Timeframe, handler CompletionHandler) {
	if handler == nil {
		return
	}
	a.handlers[tf] = append(a.handlers[tf], handler)
}

// Apply folds one tick into every timeframe. A tick that starts a new
// bucket first closes and emits the previous candle, then opens the
// new one seeded with open=close=price.
func (a *Aggregator) Apply(tick schema.Tick) {
	for _, tf := range a.timeframes {
		a.applyTimeframe(tf, tick)
	}
}

func (a *Aggregator) applyTimeframe(tf schema.Timeframe, tick schema.Tick) {
	k := key{symbol: tick.Symbol, tf: tf}
	bucket := tf.Bucket(tick.Timestamp)

	current, ok := a.open[k]
	if !ok {
		c := schema.NewCandle(tick.Symbol, tf, bucket, tick)
		a.open[k] = &c
		return
	}

	if bucket.Equal(current.Start) {
		current.Apply(tick)
		return
	}

	a.complete(k, current)
	c := schema.NewCandle(tick.Symbol, tf, bucket, tick)
	a.open[k] = &c
}

// Flush closes every in-progress candle and emits it. Called once at
// end of stream so the tail bucket is not lost.
func (a *Aggregator) Flush() {
	for k, c := range a.open {
		a.complete(k, c)
		delete(a.open, k)
	}
}

func (a *Aggregator) complete(k key, c *schema.Candle) {
	closed := *c
	closed.Complete = true
	a.appendHistory(k, closed)
	for _, handler := range a.handlers[k.tf] {
		handler(closed)
	}
}

func (a *Aggregator) appendHistory(k key, c schema.Candle) {
	h := append(a.history[k], c)
	if len(h) > a.maxHistory {
		h = h[len(h)-a.maxHistory:]
	}
	a.history[k] = h
}

// SeedHistory appends an already completed candle without touching the
// in-progress state. Used by warmup replay.
func (a *Aggregator) SeedHistory(c schema.Candle) {
	c.Complete = true
	a.appendHistory(key{symbol: c.Symbol, tf: c.Timeframe}, c)
}

// History returns the retained completed candles, oldest first.
func (a *Aggregator) History(symbol string, tf schema.Timeframe) []schema.Candle {
	h := a.history[key{symbol: symbol, tf: tf}]
	out := make([]schema.Candle, len(h))
	copy(out, h)
	return out
}

// InProgress returns the current open candle, if any.
func (a *Aggregator) InProgress(symbol string, tf schema.Timeframe) (schema.Candle, bool) {
	c, ok := a.open[key{symbol: symbol, tf: tf}]
	if !ok {
		return schema.Candle{}, false
	}
	return *c, true
}
