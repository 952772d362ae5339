// Package fanout pushes simulation telemetry to dashboard observers.
// The channel is strictly best-effort: publishes never block the
// simulation loop and failures are counted and discarded.
package fanout

import (
	"encoding/json"
	"time"

	"main/internal/bus"
	"main/internal/exec"
	"main/internal/schema"
)

// Event kinds carried on the bus.
const (
	KindTick     = "tick"
	KindPosition = "position"
	KindTrade    = "trade"
	KindStop     = "stop"
	KindAlert    = "alert"
)

// Publisher receives push notifications from the simulation loop.
// Purely observational; implementations must not apply backpressure.
type Publisher interface {
	Tick(t schema.Tick)
	PositionUpdate(p schema.Position)
	TradeClosed(t exec.Trade)
	StopUpdate(strategyID, symbol string, stopPrice float64)
	Alert(message string)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Tick(schema.Tick)                   {}
func (Nop) PositionUpdate(schema.Position)     {}
func (Nop) TradeClosed(exec.Trade)             {}
func (Nop) StopUpdate(string, string, float64) {}
func (Nop) Alert(string)                       {}

// DropHandler observes a dropped event.
type DropHandler func()

// BusPublisher serializes events onto a bounded queue. Full or closed
// queue drops the event; the simulation outcome never depends on a
// consumer keeping up.
type BusPublisher struct {
	queue  *bus.Queue
	onDrop DropHandler
}

// NewBusPublisher creates a publisher over a queue.
func NewBusPublisher(queue *bus.Queue, onDrop DropHandler) *BusPublisher {
	return &BusPublisher{queue: queue, onDrop: onDrop}
}

type stopUpdate struct {
	StrategyID string  `json:"strategyId"`
	Symbol     string  `json:"symbol"`
	StopPrice  float64 `json:"stopPrice"`
}

type alert struct {
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

func (p *BusPublisher) Tick(t schema.Tick) {
	p.publish(KindTick, t)
}

func (p *BusPublisher) PositionUpdate(pos schema.Position) {
	p.publish(KindPosition, pos)
}

func (p *BusPublisher) TradeClosed(t exec.Trade) {
	p.publish(KindTrade, t)
}

func (p *BusPublisher) StopUpdate(strategyID, symbol string, stopPrice float64) {
	p.publish(KindStop, stopUpdate{StrategyID: strategyID, Symbol: symbol, StopPrice: stopPrice})
}

func (p *BusPublisher) Alert(message string) {
	p.publish(KindAlert, alert{Message: message, At: time.Now().UTC()})
}

func (p *BusPublisher) publish(kind string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.drop()
		return
	}
	if err := p.queue.TryPublish(bus.Event{Kind: kind, Data: data}); err != nil {
		p.drop()
	}
}

func (p *BusPublisher) drop() {
	if p.onDrop != nil {
		p.onDrop()
	}
}
