package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/candle"
	"main/internal/exec"
	"main/internal/obs"
	"main/internal/risk"
	"main/internal/schema"
	"main/internal/session"
	"main/internal/stoploss"
	"main/internal/strategy"
)

type fixture struct {
	runner     *Runner
	book       *exec.Book
	simulator  *exec.Simulator
	dispatcher *strategy.Dispatcher
}

func newFixture(t *testing.T, cutoff time.Time) *fixture {
	t.Helper()

	aggregator := candle.NewAggregator([]schema.Timeframe{schema.Timeframe1m}, 0)
	book := exec.NewBook()
	stops := stoploss.NewManager(stoploss.Config{Type: stoploss.TypeTrailingPct, Pct: 0.01},
		stoploss.NewHistoryATR(aggregator, schema.Timeframe1m))
	simulator := exec.NewSimulator(exec.Config{InitialCapital: 10000}, book, stops)

	dispatcher := strategy.NewDispatcher()
	mom := strategy.NewMomentum("mom", []string{"NIFTY"}, 0.01, 10*time.Minute, 1, book)
	require.NoError(t, dispatcher.Register(mom))
	dispatcher.MarkAllWarm()

	runner := NewRunner(Config{
		Speed:   0,
		Session: session.Config{CutoffTime: cutoff, WarningLead: 10 * time.Minute},
	}, Deps{
		Aggregator: aggregator,
		Dispatcher: dispatcher,
		Gate:       risk.NewGate(risk.Config{MinQty: 0.01}),
		Book:       book,
		Simulator:  simulator,
		Stops:      stops,
		Metrics:    obs.NewMetrics(),
	})
	return &fixture{runner: runner, book: book, simulator: simulator, dispatcher: dispatcher}
}

func sessionTicks(prices []float64, start time.Time) []schema.Tick {
	ticks := make([]schema.Tick, 0, len(prices))
	for i, p := range prices {
		ticks = append(ticks, schema.Tick{
			Symbol:    "NIFTY",
			Timestamp: start.Add(time.Duration(i) * time.Second),
			Price:     p,
			Volume:    10,
			Seq:       i,
		})
	}
	return ticks
}

func TestRunnerEntryAndStopBreach(t *testing.T) {
	start := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	f := newFixture(t, start.Add(5*time.Hour))

	// A 1.2% rise triggers the momentum entry at 101.2; the trailing
	// stop anchors 1% below and the retreat to 100.0 breaches it.
	ticks := sessionTicks([]float64{100, 100.2, 101.2, 100.0}, start)

	summary, err := f.runner.Run(context.Background(), ticks)
	require.NoError(t, err)

	assert.Equal(t, uint64(4), summary.TicksProcessed)
	assert.Equal(t, uint64(1), summary.SignalsGenerated)
	assert.Equal(t, uint64(2), summary.SignalsApproved, "the entry plus the stop-driven exit")
	assert.Equal(t, uint64(2), summary.OrdersFilled)
	assert.Equal(t, uint64(1), summary.PositionsOpened)
	assert.Equal(t, uint64(1), summary.PositionsClosed)
	assert.Equal(t, uint64(1), summary.StopBreaches)
	assert.Zero(t, summary.OpenPositions)
	assert.InDelta(t, -1.2, summary.RealizedPnL, 1e-9)
	assert.InDelta(t, 10000-1.2, summary.FinalCapital, 1e-9)
	assert.InDelta(t, summary.FinalCapital, summary.FinalEquity, 1e-9)
	assert.Equal(t, session.StateNormal, summary.SessionState)
}

func TestRunnerSquareOffAtCutoff(t *testing.T) {
	cutoff := time.Date(2026, 1, 2, 15, 15, 0, 0, time.UTC)
	f := newFixture(t, cutoff)

	// The rise opens a long inside the warning window; the cutoff tick
	// squares it off even though no stop has been breached.
	ticks := []schema.Tick{
		{Symbol: "NIFTY", Timestamp: cutoff.Add(-2 * time.Minute), Price: 100},
		{Symbol: "NIFTY", Timestamp: cutoff.Add(-119 * time.Second), Price: 101.5},
		{Symbol: "NIFTY", Timestamp: cutoff, Price: 101.4},
	}

	summary, err := f.runner.Run(context.Background(), ticks)
	require.NoError(t, err)

	assert.Equal(t, session.StateClosed, summary.SessionState)
	assert.Zero(t, summary.OpenPositions)
	assert.Equal(t, uint64(1), summary.PositionsOpened)
	assert.Equal(t, uint64(1), summary.PositionsClosed)
	assert.Zero(t, summary.StopBreaches)
}

func TestRunnerRejectsEntriesAfterClose(t *testing.T) {
	start := time.Date(2026, 1, 2, 15, 20, 0, 0, time.UTC)
	f := newFixture(t, time.Date(2026, 1, 2, 15, 15, 0, 0, time.UTC))

	// The session is already past cutoff at the first tick; the
	// momentum entry on the second tick must be rejected.
	ticks := sessionTicks([]float64{100, 101.5}, start)

	summary, err := f.runner.Run(context.Background(), ticks)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), summary.SignalsGenerated)
	assert.Zero(t, summary.SignalsApproved)
	assert.Equal(t, uint64(1), summary.SignalsRejected)
	assert.Zero(t, summary.PositionsOpened)
}

func TestRunnerStopsAtTickBoundaryOnCancel(t *testing.T) {
	start := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	f := newFixture(t, start.Add(5*time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := f.runner.Run(ctx, sessionTicks([]float64{100, 101, 102}, start))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, summary.TicksProcessed)
}

func TestRunnerRejectsEmptyStream(t *testing.T) {
	start := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	f := newFixture(t, start.Add(5*time.Hour))

	_, err := f.runner.Run(context.Background(), nil)
	assert.Error(t, err)
}
