package sim

import (
	"context"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/candle"
	"main/internal/exec"
	"main/internal/fanout"
	"main/internal/ledger"
	"main/internal/obs"
	"main/internal/risk"
	"main/internal/schema"
	"main/internal/session"
	"main/internal/stoploss"
	"main/internal/strategy"
)

// Config controls the run loop.
type Config struct {
	// Speed scales pacing: the real-time gap between ticks is divided
	// by it. Zero or negative disables pacing entirely. Speed never
	// changes tick order or any decision, only wall-clock pacing.
	Speed   float64
	Session session.Config
}

// Deps are the injected collaborators. Publisher and Ledger may be nil
// and default to no-ops, so the core carries no hidden globals.
type Deps struct {
	Aggregator *candle.Aggregator
	Dispatcher *strategy.Dispatcher
	Gate       *risk.Gate
	Book       *exec.Book
	Simulator  *exec.Simulator
	Stops      *stoploss.Manager
	Metrics    *obs.Metrics
	Publisher  fanout.Publisher
	Ledger     ledger.Ledger
}

// Summary is the end-of-run report.
type Summary struct {
	TicksProcessed   uint64
	SignalsGenerated uint64
	SignalsApproved  uint64
	SignalsRejected  uint64
	OrdersFilled     uint64
	OrdersRejected   uint64
	PositionsOpened  uint64
	PositionsClosed  uint64
	StopBreaches     uint64
	FinalCapital     float64
	FinalEquity      float64
	RealizedPnL      float64
	PnLPct           float64
	OpenPositions    int
	SessionState     session.State
}

// Runner drives one simulated session: a single-threaded cooperative
// loop in which every downstream call completes before the next tick
// is produced. Cancellation stops the loop between ticks, never
// mid-tick.
type Runner struct {
	cfg   Config
	deps  Deps
	sess  *session.Controller
	clock Clock

	// lastPrice tracks the latest tick price per symbol so fills and
	// square-offs always price at current market.
	lastPrice map[string]float64
}

// NewRunner wires the pipeline. Candle completion handlers are bound
// here, one per timeframe, so strategies observe fully closed candles
// before the closing tick's dispatch.
func NewRunner(cfg Config, deps Deps) *Runner {
	if deps.Publisher == nil {
		deps.Publisher = fanout.Nop{}
	}
	if deps.Ledger == nil {
		deps.Ledger = ledger.Nop{}
	}
	r := &Runner{
		cfg:       cfg,
		deps:      deps,
		clock:     realClock{},
		lastPrice: make(map[string]float64),
	}
	r.sess = session.NewController(cfg.Session, r.onWarning, r.onSquareOff)

	for _, tf := range deps.Aggregator.Timeframes() {
		deps.Aggregator.OnComplete(tf, func(c schema.Candle) {
			deps.Dispatcher.DispatchCandle(c)
		})
	}
	return r
}

// WithClock swaps the pacing clock implementation.
func (r *Runner) WithClock(clock Clock) *Runner {
	if clock != nil {
		r.clock = clock
	}
	return r
}

// Session returns the session controller.
func (r *Runner) Session() *session.Controller {
	return r.sess
}

// Run replays the tick stream to completion or cancellation. On
// cancellation the summary still reflects everything processed so far.
func (r *Runner) Run(ctx context.Context, ticks []schema.Tick) (Summary, error) {
	if len(ticks) == 0 {
		return Summary{}, errors.New("no ticks to replay")
	}

	var prev time.Time
	for _, tick := range ticks {
		select {
		case <-ctx.Done():
			logs.Warn("run interrupted, stopping at tick boundary")
			return r.summary(), ctx.Err()
		default:
		}
		if err := r.pace(ctx, prev, tick.Timestamp); err != nil {
			return r.summary(), err
		}
		prev = tick.Timestamp
		r.step(tick)
	}

	// Close the tail buckets so history is complete. Any signal the tail
	// candles produce has no following tick to price against.
	r.deps.Aggregator.Flush()
	r.deps.Dispatcher.Discard()
	return r.summary(), nil
}

// pace sleeps the scaled gap between consecutive tick timestamps.
func (r *Runner) pace(ctx context.Context, prev, current time.Time) error {
	if r.cfg.Speed <= 0 || prev.IsZero() {
		return nil
	}
	delta := current.Sub(prev)
	if delta <= 0 {
		return nil
	}
	return r.clock.Sleep(ctx, time.Duration(float64(delta)/r.cfg.Speed))
}

// step runs one full pipeline cycle for a tick.
func (r *Runner) step(tick schema.Tick) {
	r.deps.Metrics.IncTick()
	obs.TicksTotal.WithLabelValues(tick.Symbol).Inc()
	r.lastPrice[tick.Symbol] = tick.Price

	// Candle completion handlers fire inside Apply, before this tick's
	// strategy dispatch.
	r.deps.Aggregator.Apply(tick)

	r.sess.Advance(tick.Timestamp)

	r.deps.Book.RefreshPrice(tick)
	r.checkStops(tick)

	r.deps.Dispatcher.DispatchTick(tick)

	signals := r.deps.Dispatcher.Collect()
	if len(signals) > 0 {
		r.deps.Metrics.IncSignals(len(signals))
		for _, sig := range signals {
			obs.SignalsTotal.WithLabelValues(sig.StrategyID, sig.Action.String()).Inc()
		}
		r.processBatch(signals, tick.Timestamp)
	}

	r.deps.Publisher.Tick(tick)
}

// checkStops updates every stop touched by the tick and routes
// breaches through the normal exit path.
func (r *Runner) checkStops(tick schema.Tick) {
	breached := r.deps.Stops.Evaluate(tick, r.deps.Book.All())
	if len(breached) == 0 {
		return
	}
	positions := make([]schema.Position, 0, len(breached))
	for _, k := range breached {
		r.deps.Metrics.IncStopBreach()
		obs.StopBreachesTotal.WithLabelValues(k.Symbol).Inc()
		if st, ok := r.deps.Stops.Get(k); ok {
			logs.Warnf("stop breached %s %s at %.4f (stop %.4f)", k.StrategyID, k.Symbol, tick.Price, st.StopPrice)
			r.deps.Publisher.StopUpdate(k.StrategyID, k.Symbol, st.StopPrice)
		}
		if pos, ok := r.deps.Book.Get(k); ok {
			positions = append(positions, pos)
		}
	}
	r.processBatch(strategy.SquareOffAll(positions, tick.Timestamp), tick.Timestamp)
}

// processBatch validates and executes a batch of signals in order. The
// risk snapshot is installed once and advances with each approval, so
// signals later in the batch see earlier commitments.
func (r *Runner) processBatch(signals []schema.Signal, ts time.Time) {
	if len(signals) == 0 {
		return
	}
	r.deps.Gate.BeginTick(risk.NewSnapshot(
		r.deps.Simulator.Capital(),
		r.deps.Book.All(),
		r.sess.AllowsEntry(),
	))

	for _, sig := range signals {
		decision := r.deps.Gate.Evaluate(sig)
		if !decision.Approved {
			r.deps.Metrics.IncRejected(decision.Reason)
			logs.Infof("signal rejected %s %s %s: %s", sig.StrategyID, sig.Symbol, sig.Action, decision.Reason)
			continue
		}
		r.deps.Metrics.IncApproved()
		r.execute(sig, decision.AdjustedQty, ts)
	}
	obs.OpenPositions.Set(float64(r.deps.Book.Count()))
}

func (r *Runner) execute(sig schema.Signal, qty float64, ts time.Time) {
	price, ok := r.lastPrice[sig.Symbol]
	if !ok {
		price = sig.Price
	}

	order, trade := r.deps.Simulator.Execute(sig, qty, price, ts)
	r.deps.Metrics.IncOrder(order.Status)
	obs.OrdersTotal.WithLabelValues(order.Symbol, order.Status.String()).Inc()
	r.deps.Ledger.RecordOrder(order)

	if order.Status != schema.OrderStatusFilled {
		return
	}
	k := schema.PositionKey{StrategyID: sig.StrategyID, Symbol: sig.Symbol}
	if sig.Action.IsEntry() {
		r.deps.Metrics.IncPositionOpened()
		if pos, ok := r.deps.Book.Get(k); ok {
			r.deps.Publisher.PositionUpdate(pos)
		}
		if st, ok := r.deps.Stops.Get(k); ok {
			r.deps.Publisher.StopUpdate(k.StrategyID, k.Symbol, st.StopPrice)
		}
	}
	if trade != nil {
		r.deps.Metrics.IncPositionClosed()
		r.deps.Publisher.TradeClosed(*trade)
		r.deps.Ledger.RecordTrade(*trade)
	}
}

func (r *Runner) onWarning(ts time.Time) {
	r.deps.Publisher.Alert("session warning: square-off approaching")
}

// onSquareOff closes every open position through the normal risk and
// execution path. Exits stay valid after the session closes.
func (r *Runner) onSquareOff(ts time.Time) {
	r.deps.Publisher.Alert("session square-off")
	r.processBatch(strategy.SquareOffAll(r.deps.Book.All(), ts), ts)
	r.deps.Ledger.RecordSnapshot(r.deps.Simulator.Snapshot())
}

func (r *Runner) summary() Summary {
	snap := r.deps.Metrics.Snapshot()
	initial := r.deps.Simulator.InitialCapital()
	equity := r.deps.Simulator.Equity()
	pnlPct := 0.0
	if initial > 0 {
		pnlPct = (equity - initial) / initial * 100
	}
	return Summary{
		TicksProcessed:   snap.Ticks,
		SignalsGenerated: snap.SignalsGenerated,
		SignalsApproved:  snap.SignalsApproved,
		SignalsRejected:  snap.SignalsRejected,
		OrdersFilled:     snap.OrdersFilled,
		OrdersRejected:   snap.OrdersRejected,
		PositionsOpened:  snap.PositionsOpened,
		PositionsClosed:  snap.PositionsClosed,
		StopBreaches:     snap.StopBreaches,
		FinalCapital:     r.deps.Simulator.Capital(),
		FinalEquity:      equity,
		RealizedPnL:      r.deps.Simulator.RealizedPnL(),
		PnLPct:           pnlPct,
		OpenPositions:    r.deps.Book.Count(),
		SessionState:     r.sess.State(),
	}
}
