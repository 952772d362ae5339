// Package ops loads and resolves the run configuration: simulation
// date, pacing, symbols, strategies, risk limits and session
// boundaries.
package ops

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/yanun0323/errors"

	"main/internal/risk"
	"main/internal/schema"
	"main/internal/session"
	"main/internal/stoploss"
	"main/internal/strategy"
)

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	Simulation SimulationConfig `json:"simulation"`
	Symbols    []string         `json:"symbols"`
	Timeframes []string         `json:"timeframes"`
	Session    SessionConfig    `json:"session"`
	Warmup     WarmupConfig     `json:"warmup"`
	Risk       risk.Config      `json:"risk"`
	Execution  ExecutionConfig  `json:"execution"`
	StopLoss   StopLossConfig   `json:"stopLoss"`
	Strategies []StrategyConfig `json:"strategies"`
	Feed       FeedConfig       `json:"feed"`
}

// SimulationConfig drives the tick generator and pacing.
type SimulationConfig struct {
	// Date is the simulated session day, formatted 2006-01-02.
	Date           string  `json:"date"`
	Speed          float64 `json:"speed"`
	TicksPerCandle int     `json:"ticksPerCandle"`
	BaseTimeframe  string  `json:"baseTimeframe"`
	MaxHistory     int     `json:"maxHistory"`
}

// SessionConfig defines intraday boundaries as clock times.
type SessionConfig struct {
	Open        string `json:"open"`
	Cutoff      string `json:"cutoff"`
	WarningLead string `json:"warningLead"`
}

// WarmupConfig floors the indicator warmup depth.
type WarmupConfig struct {
	MinCandles int `json:"minCandles"`
}

// ExecutionConfig defines fill simulation parameters.
type ExecutionConfig struct {
	SlippagePct    float64 `json:"slippagePct"`
	InitialCapital float64 `json:"initialCapital"`
}

// StopLossConfig selects the stop type applied to every position.
type StopLossConfig struct {
	Type        string  `json:"type"`
	Pct         float64 `json:"pct"`
	ATRMultiple float64 `json:"atrMultiple"`
	ATRPeriod   int     `json:"atrPeriod"`
}

// StrategyConfig describes one strategy instance.
type StrategyConfig struct {
	ID         string   `json:"id"`
	Kind       string   `json:"kind"`
	Symbols    []string `json:"symbols"`
	Timeframe  string   `json:"timeframe"`
	Qty        float64  `json:"qty"`
	FastPeriod int      `json:"fastPeriod"`
	SlowPeriod int      `json:"slowPeriod"`
	Threshold  float64  `json:"threshold"`
	WindowSecs int      `json:"windowSecs"`
}

// FeedConfig locates the historical candle files.
type FeedConfig struct {
	Dir string `json:"dir"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Date           time.Time
	Speed          float64
	TicksPerCandle int
	BaseTimeframe  schema.Timeframe
	MaxHistory     int
	Symbols        []string
	Timeframes     []schema.Timeframe
	Session        session.Config
	SessionOpen    time.Time
	WarmupMin      int
	Risk           risk.Config
	Execution      ExecutionConfig
	StopLoss       stoploss.Config
	Strategies     []strategy.Spec
	FeedDir        string
}

// Load reads a JSON config file and resolves it.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, errors.Wrap(err, "read config")
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, errors.Wrap(err, "decode config")
	}
	return cfg.Resolve()
}

// Resolve validates the file config and builds the resolved form.
func (cfg FileConfig) Resolve() (Loaded, error) {
	cfg = cfg.withDefaults()

	date, err := time.Parse("2006-01-02", cfg.Simulation.Date)
	if err != nil {
		return Loaded{}, errors.Wrap(err, "invalid simulation date")
	}
	if len(cfg.Symbols) == 0 {
		return Loaded{}, errors.New("no symbols configured")
	}
	if len(cfg.Strategies) == 0 {
		return Loaded{}, errors.New("no strategies configured")
	}
	if cfg.Execution.InitialCapital <= 0 {
		return Loaded{}, errors.New("execution.initialCapital must be > 0")
	}
	if cfg.Execution.SlippagePct < 0 {
		return Loaded{}, errors.New("execution.slippagePct must be >= 0")
	}

	baseTF, err := schema.ParseTimeframe(cfg.Simulation.BaseTimeframe)
	if err != nil {
		return Loaded{}, errors.Wrap(err, "simulation.baseTimeframe")
	}

	specs, err := resolveStrategies(cfg.Strategies, baseTF)
	if err != nil {
		return Loaded{}, err
	}

	// The aggregator must cover every timeframe a strategy consumes.
	timeframes, err := resolveTimeframes(cfg.Timeframes, baseTF, specs)
	if err != nil {
		return Loaded{}, err
	}

	sessionCfg, sessionOpen, err := resolveSession(cfg.Session, date)
	if err != nil {
		return Loaded{}, err
	}

	stopCfg, err := resolveStopLoss(cfg.StopLoss)
	if err != nil {
		return Loaded{}, err
	}

	return Loaded{
		Date:           date,
		Speed:          cfg.Simulation.Speed,
		TicksPerCandle: cfg.Simulation.TicksPerCandle,
		BaseTimeframe:  baseTF,
		MaxHistory:     cfg.Simulation.MaxHistory,
		Symbols:        cfg.Symbols,
		Timeframes:     timeframes,
		Session:        sessionCfg,
		SessionOpen:    sessionOpen,
		WarmupMin:      cfg.Warmup.MinCandles,
		Risk:           cfg.Risk,
		Execution:      cfg.Execution,
		StopLoss:       stopCfg,
		Strategies:     specs,
		FeedDir:        cfg.Feed.Dir,
	}, nil
}

func (cfg FileConfig) withDefaults() FileConfig {
	if cfg.Simulation.BaseTimeframe == "" {
		cfg.Simulation.BaseTimeframe = "1m"
	}
	if cfg.Simulation.TicksPerCandle == 0 {
		cfg.Simulation.TicksPerCandle = 10
	}
	if cfg.Session.Open == "" {
		cfg.Session.Open = "09:15"
	}
	if cfg.Session.Cutoff == "" {
		cfg.Session.Cutoff = "15:15"
	}
	if cfg.Session.WarningLead == "" {
		cfg.Session.WarningLead = "10m"
	}
	if cfg.StopLoss.Type == "" {
		cfg.StopLoss.Type = "trailing_pct"
	}
	if cfg.StopLoss.Pct == 0 {
		cfg.StopLoss.Pct = 0.01
	}
	if cfg.StopLoss.ATRPeriod == 0 {
		cfg.StopLoss.ATRPeriod = 14
	}
	if cfg.Feed.Dir == "" {
		cfg.Feed.Dir = "testdata/candles"
	}
	return cfg
}

func resolveTimeframes(raw []string, base schema.Timeframe, specs []strategy.Spec) ([]schema.Timeframe, error) {
	seen := map[schema.Timeframe]bool{base: true}
	out := []schema.Timeframe{base}
	add := func(tf schema.Timeframe) {
		if !seen[tf] {
			seen[tf] = true
			out = append(out, tf)
		}
	}
	for _, s := range raw {
		tf, err := schema.ParseTimeframe(s)
		if err != nil {
			return nil, err
		}
		add(tf)
	}
	for _, spec := range specs {
		add(spec.Timeframe)
	}
	return out, nil
}

func resolveSession(cfg SessionConfig, date time.Time) (session.Config, time.Time, error) {
	cutoff, err := clockOn(date, cfg.Cutoff)
	if err != nil {
		return session.Config{}, time.Time{}, errors.Wrap(err, "session.cutoff")
	}
	open, err := clockOn(date, cfg.Open)
	if err != nil {
		return session.Config{}, time.Time{}, errors.Wrap(err, "session.open")
	}
	if !cutoff.After(open) {
		return session.Config{}, time.Time{}, errors.New("session.cutoff must be after session.open")
	}
	lead, err := time.ParseDuration(cfg.WarningLead)
	if err != nil {
		return session.Config{}, time.Time{}, errors.Wrap(err, "session.warningLead")
	}
	return session.Config{CutoffTime: cutoff, WarningLead: lead}, open, nil
}

func clockOn(date time.Time, clock string) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}

func resolveStopLoss(cfg StopLossConfig) (stoploss.Config, error) {
	var typ stoploss.Type
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "fixed_pct":
		typ = stoploss.TypeFixedPct
	case "trailing_pct":
		typ = stoploss.TypeTrailingPct
	case "atr_multiple":
		typ = stoploss.TypeATRMultiple
	default:
		return stoploss.Config{}, errors.Errorf("unknown stop loss type: %s", cfg.Type)
	}
	if cfg.Pct <= 0 {
		return stoploss.Config{}, errors.New("stopLoss.pct must be > 0")
	}
	if typ == stoploss.TypeATRMultiple && cfg.ATRMultiple <= 0 {
		return stoploss.Config{}, errors.New("stopLoss.atrMultiple must be > 0")
	}
	return stoploss.Config{
		Type:        typ,
		Pct:         cfg.Pct,
		ATRMultiple: cfg.ATRMultiple,
		ATRPeriod:   cfg.ATRPeriod,
	}, nil
}

func resolveStrategies(raw []StrategyConfig, base schema.Timeframe) ([]strategy.Spec, error) {
	specs := make([]strategy.Spec, 0, len(raw))
	seen := make(map[string]bool)
	for _, sc := range raw {
		if sc.ID == "" {
			return nil, errors.New("strategy id is empty")
		}
		if seen[sc.ID] {
			return nil, errors.Errorf("duplicate strategy id: %s", sc.ID)
		}
		seen[sc.ID] = true

		tf := base
		if sc.Timeframe != "" {
			parsed, err := schema.ParseTimeframe(sc.Timeframe)
			if err != nil {
				return nil, errors.Wrap(err, "strategy "+sc.ID)
			}
			tf = parsed
		}
		specs = append(specs, strategy.Spec{
			ID:         sc.ID,
			Kind:       sc.Kind,
			Symbols:    sc.Symbols,
			Timeframe:  tf,
			Qty:        sc.Qty,
			FastPeriod: sc.FastPeriod,
			SlowPeriod: sc.SlowPeriod,
			Threshold:  sc.Threshold,
			WindowSecs: sc.WindowSecs,
		})
	}
	return specs, nil
}
