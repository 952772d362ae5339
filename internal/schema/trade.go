package schema

import "time"

// SignalAction enter long, enter short, exit
type SignalAction uint8

const (
	_signal_action_beg SignalAction = iota
	SignalEnterLong
	SignalEnterShort
	SignalExit
	_signal_action_end
)

func (a SignalAction) IsAvailable() bool {
	return a > _signal_action_beg && a < _signal_action_end
}

// IsEntry reports whether the action opens a new position.
func (a SignalAction) IsEntry() bool {
	return a == SignalEnterLong || a == SignalEnterShort
}

func (a SignalAction) String() string {
	switch a {
	case SignalEnterLong:
		return "ENTER_LONG"
	case SignalEnterShort:
		return "ENTER_SHORT"
	case SignalExit:
		return "EXIT"
	default:
		return "UNKNOWN"
	}
}

// Signal is a strategy's request to enter or exit a position. It is
// consumed exactly once by the risk gate and discarded afterwards.
type Signal struct {
	StrategyID string
	Symbol     string
	Action     SignalAction
	Qty        float64
	Price      float64
	Timestamp  time.Time
	// Indicators is an audit snapshot of whatever the strategy looked
	// at when it fired. Opaque to the pipeline.
	Indicators map[string]float64
}

// OrderSide buy, sell
type OrderSide uint8

const (
	_order_side_beg OrderSide = iota
	OrderSideBuy
	OrderSideSell
	_order_side_end
)

func (s OrderSide) IsAvailable() bool {
	return s > _order_side_beg && s < _order_side_end
}

func (s OrderSide) String() string {
	switch s {
	case OrderSideBuy:
		return "BUY"
	case OrderSideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// OrderStatus filled, rejected
type OrderStatus uint8

const (
	_order_status_beg OrderStatus = iota
	OrderStatusFilled
	OrderStatusRejected
	_order_status_end
)

func (s OrderStatus) IsAvailable() bool {
	return s > _order_status_beg && s < _order_status_end
}

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusFilled:
		return "FILLED"
	case OrderStatusRejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// Order is the finalized result of executing one approved signal.
// Created and sealed atomically; never mutated afterwards.
type Order struct {
	ID              string
	StrategyID      string
	Symbol          string
	Side            OrderSide
	RequestedQty    float64
	FilledQty       float64
	FilledPrice     float64
	Status          OrderStatus
	Reason          string
	FillTime        time.Time
	SlippageApplied float64
}

// PositionKey identifies the single open position a strategy may hold
// per symbol.
type PositionKey struct {
	StrategyID string
	Symbol     string
}

// Position is a long-lived open position record. Quantity is signed:
// positive for long, negative for short.
type Position struct {
	StrategyID    string
	Symbol        string
	Qty           float64
	EntryPrice    float64
	EntryTime     time.Time
	CurrentPrice  float64
	ExtremePrice  float64
	RealizedPnL   float64
	UnrealizedPnL float64
}

// Key returns the composite lookup key.
func (p Position) Key() PositionKey {
	return PositionKey{StrategyID: p.StrategyID, Symbol: p.Symbol}
}

// IsLong reports whether the position is long.
func (p Position) IsLong() bool {
	return p.Qty > 0
}

// Notional returns the absolute exposure at the current price.
func (p Position) Notional() float64 {
	qty := p.Qty
	if qty < 0 {
		qty = -qty
	}
	return qty * p.CurrentPrice
}

// UnrealizedAt computes the open PnL at the given mark price.
func (p Position) UnrealizedAt(price float64) float64 {
	return (price - p.EntryPrice) * p.Qty
}
