package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/joho/godotenv"
	"github.com/yanun0323/logs"

	"main/internal/bus"
	"main/internal/candle"
	"main/internal/exec"
	"main/internal/fanout"
	"main/internal/feed"
	"main/internal/ledger"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/risk"
	"main/internal/sim"
	"main/internal/stoploss"
	"main/internal/strategy"
	"main/internal/warmup"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to JSON config")
	date := flag.String("date", "", "Simulation date override (2006-01-02)")
	speed := flag.Float64("speed", -1, "Pacing speed override (0=no pacing)")
	ticksPerCandle := flag.Int("ticks-per-candle", 0, "Ticks per candle override")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus /metrics listen address (empty=disabled)")
	wsAddr := flag.String("ws-addr", "", "Dashboard websocket listen address (empty=disabled)")
	pgLedger := flag.Bool("pg-ledger", false, "Persist orders/trades to PostgreSQL (PG_* env)")
	profile := flag.Bool("profile", false, "Enable pyroscope profiling")
	flag.Parse()

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *profile {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "sim",
			ServerAddress:   envOr("PYROSCOPE_ADDR", "http://localhost:4040"),
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	loaded, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	loaded = applyOverrides(loaded, *date, *speed, *ticksPerCandle)

	if *metricsAddr != "" {
		srv := obs.Serve(*metricsAddr)
		defer srv.Close()
	}

	summary, err := run(ctx, loaded, *wsAddr, *pgLedger)
	interrupted := errors.Is(err, context.Canceled)
	if err != nil && !interrupted {
		log.Fatalf("run failed: %v", err)
	}
	printSummary(summary, interrupted)
}

func run(ctx context.Context, loaded ops.Loaded, wsAddr string, pgLedger bool) (sim.Summary, error) {
	store, err := feed.NewFileStore(loaded.FeedDir)
	if err != nil {
		return sim.Summary{}, err
	}

	metrics := obs.NewMetrics()
	aggregator := candle.NewAggregator(loaded.Timeframes, loaded.MaxHistory)
	book := exec.NewBook()
	stops := stoploss.NewManager(loaded.StopLoss, stoploss.NewHistoryATR(aggregator, loaded.BaseTimeframe))
	simulator := exec.NewSimulator(exec.Config{
		SlippagePct:    loaded.Execution.SlippagePct,
		InitialCapital: loaded.Execution.InitialCapital,
	}, book, stops)
	gate := risk.NewGate(loaded.Risk)

	dispatcher := strategy.NewDispatcher()
	for _, spec := range loaded.Strategies {
		s, err := strategy.Build(spec, book)
		if err != nil {
			return sim.Summary{}, err
		}
		if err := dispatcher.Register(s); err != nil {
			return sim.Summary{}, err
		}
	}

	publisher, closeFanout := buildFanout(ctx, wsAddr, metrics)
	defer closeFanout()

	ldg, closeLedger, err := buildLedger(pgLedger)
	if err != nil {
		return sim.Summary{}, err
	}
	defer closeLedger()

	warmer := warmup.NewController(warmup.Config{
		MinCandles: loaded.WarmupMin,
		Timeframe:  loaded.BaseTimeframe,
	}, store, aggregator, dispatcher)
	warmer.Run(ctx, loaded.Symbols, loaded.SessionOpen)

	generator := sim.NewGenerator(loaded.TicksPerCandle)
	ticks, err := generator.Load(ctx, store, loaded.Symbols, loaded.Date, loaded.Date.Add(24*time.Hour))
	if err != nil {
		return sim.Summary{}, err
	}
	logs.Infof("replaying %d ticks across %d symbols on %s",
		len(ticks), len(loaded.Symbols), loaded.Date.Format("2006-01-02"))

	runner := sim.NewRunner(sim.Config{
		Speed:   loaded.Speed,
		Session: loaded.Session,
	}, sim.Deps{
		Aggregator: aggregator,
		Dispatcher: dispatcher,
		Gate:       gate,
		Book:       book,
		Simulator:  simulator,
		Stops:      stops,
		Metrics:    metrics,
		Publisher:  publisher,
		Ledger:     ldg,
	})
	return runner.Run(ctx, ticks)
}

func buildFanout(ctx context.Context, wsAddr string, metrics *obs.Metrics) (fanout.Publisher, func()) {
	if wsAddr == "" {
		return fanout.Nop{}, func() {}
	}
	queue := bus.NewQueue(4096)
	hub := fanout.NewHub()
	srv := hub.Serve(wsAddr)
	go hub.Run(ctx, queue)
	publisher := fanout.NewBusPublisher(queue, metrics.IncFanoutDrop)
	return publisher, func() {
		queue.Close()
		_ = srv.Close()
	}
}

func buildLedger(enabled bool) (ledger.Ledger, func(), error) {
	if !enabled {
		return ledger.Nop{}, func() {}, nil
	}
	pg, err := ledger.NewPostgres(ledger.Option{
		Host:     os.Getenv("PG_HOST"),
		Port:     envInt("PG_PORT"),
		User:     os.Getenv("PG_USER"),
		Password: os.Getenv("PG_PASSWORD"),
		Database: os.Getenv("PG_DATABASE"),
	})
	if err != nil {
		return nil, nil, err
	}
	return pg, func() { _ = pg.Close() }, nil
}

func applyOverrides(loaded ops.Loaded, date string, speed float64, ticksPerCandle int) ops.Loaded {
	if date != "" {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			log.Fatalf("invalid -date: %v", err)
		}
		shift := parsed.Sub(loaded.Date)
		loaded.Date = parsed
		loaded.SessionOpen = loaded.SessionOpen.Add(shift)
		loaded.Session.CutoffTime = loaded.Session.CutoffTime.Add(shift)
	}
	if speed >= 0 {
		loaded.Speed = speed
	}
	if ticksPerCandle > 0 {
		loaded.TicksPerCandle = ticksPerCandle
	}
	return loaded
}

func printSummary(s sim.Summary, interrupted bool) {
	status := "completed"
	if interrupted {
		status = "interrupted"
	}
	fmt.Printf("\n=== simulation %s ===\n", status)
	fmt.Printf("session state       %s\n", s.SessionState)
	fmt.Printf("ticks processed     %d\n", s.TicksProcessed)
	fmt.Printf("signals generated   %d\n", s.SignalsGenerated)
	fmt.Printf("signals approved    %d\n", s.SignalsApproved)
	fmt.Printf("signals rejected    %d\n", s.SignalsRejected)
	fmt.Printf("orders filled       %d\n", s.OrdersFilled)
	fmt.Printf("orders rejected     %d\n", s.OrdersRejected)
	fmt.Printf("positions opened    %d\n", s.PositionsOpened)
	fmt.Printf("positions closed    %d\n", s.PositionsClosed)
	fmt.Printf("stop breaches       %d\n", s.StopBreaches)
	fmt.Printf("open positions      %d\n", s.OpenPositions)
	fmt.Printf("final capital       %.2f\n", s.FinalCapital)
	fmt.Printf("final equity        %.2f\n", s.FinalEquity)
	fmt.Printf("realized pnl        %.2f\n", s.RealizedPnL)
	fmt.Printf("pnl pct             %.4f%%\n", s.PnLPct)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return 0
	}
	return n
}
