package exec

import (
	"time"

	"github.com/google/uuid"
	"github.com/yanun0323/logs"

	"main/internal/schema"
)

// Stops is the stop-loss lifecycle hook the simulator drives: a stop
// state is attached when a position opens and detached when it closes.
type Stops interface {
	Attach(pos schema.Position)
	Detach(k schema.PositionKey)
}

// NopStops is a no-op stop lifecycle for tests.
type NopStops struct{}

func (NopStops) Attach(schema.Position)    {}
func (NopStops) Detach(schema.PositionKey) {}

// Config defines fill simulation parameters.
type Config struct {
	// SlippagePct degrades fills: buys fill at price*(1+pct), sells at
	// price*(1-pct).
	SlippagePct    float64
	InitialCapital float64
}

// Trade is the closed-trade record produced when an exit fills.
type Trade struct {
	StrategyID  string
	Symbol      string
	Qty         float64
	EntryPrice  float64
	ExitPrice   float64
	EntryTime   time.Time
	ExitTime    time.Time
	RealizedPnL float64
}

// Simulator turns approved signals into filled orders and maintains
// the position book. Orders are created and finalized atomically.
type Simulator struct {
	cfg     Config
	book    *Book
	stops   Stops
	capital float64
	// realized accumulates closed-trade PnL for the run summary.
	realized float64
}

// NewSimulator creates a simulator over a position book.
func NewSimulator(cfg Config, book *Book, stops Stops) *Simulator {
	if stops == nil {
		stops = NopStops{}
	}
	return &Simulator{
		cfg:     cfg,
		book:    book,
		stops:   stops,
		capital: cfg.InitialCapital,
	}
}

// Capital returns the free capital available for new entries.
func (s *Simulator) Capital() float64 {
	return s.capital
}

// InitialCapital returns the configured starting capital.
func (s *Simulator) InitialCapital() float64 {
	return s.cfg.InitialCapital
}

// RealizedPnL returns the cumulative closed-trade PnL.
func (s *Simulator) RealizedPnL() float64 {
	return s.realized
}

// Equity returns free capital plus the entry notional and open PnL of
// every open position.
func (s *Simulator) Equity() float64 {
	committed := 0.0
	for _, p := range s.book.All() {
		qty := p.Qty
		if qty < 0 {
			qty = -qty
		}
		committed += qty * p.EntryPrice
		committed += p.UnrealizedPnL
	}
	return s.capital + committed
}

// Execute fills one approved signal at the given market price and
// returns the sealed order plus, for exits, the closed trade.
func (s *Simulator) Execute(sig schema.Signal, qty float64, price float64, ts time.Time) (schema.Order, *Trade) {
	switch sig.Action {
	case schema.SignalEnterLong, schema.SignalEnterShort:
		return s.enter(sig, qty, price, ts), nil
	case schema.SignalExit:
		return s.exit(sig, price, ts)
	default:
		return s.reject(sig, qty, ts, "unknown signal action"), nil
	}
}

func (s *Simulator) enter(sig schema.Signal, qty, price float64, ts time.Time) schema.Order {
	side := schema.OrderSideBuy
	slip := s.cfg.SlippagePct
	if sig.Action == schema.SignalEnterShort {
		side = schema.OrderSideSell
		slip = -slip
	}
	fillPrice := price * (1 + slip)

	cost := qty * fillPrice
	if qty <= 0 || cost > s.capital {
		return s.reject(sig, qty, ts, "insufficient capital")
	}
	if _, ok := s.book.Get(schema.PositionKey{StrategyID: sig.StrategyID, Symbol: sig.Symbol}); ok {
		return s.reject(sig, qty, ts, "position already open")
	}

	signedQty := qty
	if sig.Action == schema.SignalEnterShort {
		signedQty = -qty
	}
	pos := schema.Position{
		StrategyID:   sig.StrategyID,
		Symbol:       sig.Symbol,
		Qty:          signedQty,
		EntryPrice:   fillPrice,
		EntryTime:    ts,
		CurrentPrice: fillPrice,
		ExtremePrice: fillPrice,
	}
	if err := s.book.Open(pos); err != nil {
		return s.reject(sig, qty, ts, err.Error())
	}
	s.capital -= cost
	s.stops.Attach(pos)

	logs.Infof("fill %s %s %s qty=%.4f price=%.4f", sig.StrategyID, side, sig.Symbol, qty, fillPrice)
	return s.fill(sig, side, qty, qty, fillPrice, ts)
}

func (s *Simulator) exit(sig schema.Signal, price float64, ts time.Time) (schema.Order, *Trade) {
	k := schema.PositionKey{StrategyID: sig.StrategyID, Symbol: sig.Symbol}
	pos, ok := s.book.Get(k)
	if !ok {
		return s.reject(sig, 0, ts, "no open position"), nil
	}

	side := schema.OrderSideSell
	slip := -s.cfg.SlippagePct
	if !pos.IsLong() {
		side = schema.OrderSideBuy
		slip = s.cfg.SlippagePct
	}
	fillPrice := price * (1 + slip)

	closed, err := s.book.Close(k)
	if err != nil {
		return s.reject(sig, 0, ts, err.Error()), nil
	}
	s.stops.Detach(k)

	realized := (fillPrice - closed.EntryPrice) * closed.Qty
	absQty := closed.Qty
	if absQty < 0 {
		absQty = -absQty
	}
	s.capital += absQty*closed.EntryPrice + realized
	s.realized += realized

	trade := &Trade{
		StrategyID:  closed.StrategyID,
		Symbol:      closed.Symbol,
		Qty:         closed.Qty,
		EntryPrice:  closed.EntryPrice,
		ExitPrice:   fillPrice,
		EntryTime:   closed.EntryTime,
		ExitTime:    ts,
		RealizedPnL: realized,
	}
	logs.Infof("close %s %s qty=%.4f entry=%.4f exit=%.4f pnl=%.4f",
		closed.StrategyID, closed.Symbol, closed.Qty, closed.EntryPrice, fillPrice, realized)
	return s.fill(sig, side, absQty, absQty, fillPrice, ts), trade
}

func (s *Simulator) fill(sig schema.Signal, side schema.OrderSide, requested, filled, price float64, ts time.Time) schema.Order {
	return schema.Order{
		ID:              uuid.NewString(),
		StrategyID:      sig.StrategyID,
		Symbol:          sig.Symbol,
		Side:            side,
		RequestedQty:    requested,
		FilledQty:       filled,
		FilledPrice:     price,
		Status:          schema.OrderStatusFilled,
		FillTime:        ts,
		SlippageApplied: s.cfg.SlippagePct,
	}
}

func (s *Simulator) reject(sig schema.Signal, qty float64, ts time.Time, reason string) schema.Order {
	logs.Warnf("order rejected %s %s %s: %s", sig.StrategyID, sig.Symbol, sig.Action, reason)
	return schema.Order{
		ID:           uuid.NewString(),
		StrategyID:   sig.StrategyID,
		Symbol:       sig.Symbol,
		RequestedQty: qty,
		Status:       schema.OrderStatusRejected,
		Reason:       reason,
		FillTime:     ts,
	}
}
