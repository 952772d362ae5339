package obs

import (
	"sync/atomic"

	"main/internal/schema"
)

const maxRiskReason = int(schema.RiskReasonInvalidSignal)

// Metrics collects lightweight run counters. All methods are safe on a
// nil receiver so side channels can be left unwired.
type Metrics struct {
	ticks            uint64
	signalsGenerated uint64
	signalsApproved  uint64
	signalsRejected  uint64
	ordersFilled     uint64
	ordersRejected   uint64
	positionsOpened  uint64
	positionsClosed  uint64
	stopBreaches     uint64
	fanoutDrops      uint64

	riskReasonCounts [maxRiskReason + 1]uint64
}

// Snapshot captures the current metric values.
type Snapshot struct {
	Ticks            uint64
	SignalsGenerated uint64
	SignalsApproved  uint64
	SignalsRejected  uint64
	OrdersFilled     uint64
	OrdersRejected   uint64
	PositionsOpened  uint64
	PositionsClosed  uint64
	StopBreaches     uint64
	FanoutDrops      uint64
	RiskReasonCounts map[schema.RiskReason]uint64
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// IncTick records one processed tick.
func (m *Metrics) IncTick() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ticks, 1)
}

// IncSignals records generated signals.
func (m *Metrics) IncSignals(n int) {
	if m == nil || n <= 0 {
		return
	}
	atomic.AddUint64(&m.signalsGenerated, uint64(n))
}

// IncApproved records an approved signal.
func (m *Metrics) IncApproved() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.signalsApproved, 1)
}

// IncRejected records a rejected signal and its reason.
func (m *Metrics) IncRejected(reason schema.RiskReason) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.signalsRejected, 1)
	idx := int(reason)
	if idx >= 0 && idx < len(m.riskReasonCounts) {
		atomic.AddUint64(&m.riskReasonCounts[idx], 1)
	}
}

// IncOrder records an order outcome.
func (m *Metrics) IncOrder(status schema.OrderStatus) {
	if m == nil {
		return
	}
	switch status {
	case schema.OrderStatusFilled:
		atomic.AddUint64(&m.ordersFilled, 1)
	case schema.OrderStatusRejected:
		atomic.AddUint64(&m.ordersRejected, 1)
	}
}

// IncPositionOpened records an opened position.
func (m *Metrics) IncPositionOpened() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.positionsOpened, 1)
}

// IncPositionClosed records a closed position.
func (m *Metrics) IncPositionClosed() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.positionsClosed, 1)
}

// IncStopBreach records a stop-loss breach.
func (m *Metrics) IncStopBreach() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.stopBreaches, 1)
}

// IncFanoutDrop records a telemetry event dropped by the bus.
func (m *Metrics) IncFanoutDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.fanoutDrops, 1)
}

// Snapshot returns a copy of the current values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	reasons := make(map[schema.RiskReason]uint64)
	for i := range m.riskReasonCounts {
		if v := atomic.LoadUint64(&m.riskReasonCounts[i]); v > 0 {
			reasons[schema.RiskReason(i)] = v
		}
	}
	return Snapshot{
		Ticks:            atomic.LoadUint64(&m.ticks),
		SignalsGenerated: atomic.LoadUint64(&m.signalsGenerated),
		SignalsApproved:  atomic.LoadUint64(&m.signalsApproved),
		SignalsRejected:  atomic.LoadUint64(&m.signalsRejected),
		OrdersFilled:     atomic.LoadUint64(&m.ordersFilled),
		OrdersRejected:   atomic.LoadUint64(&m.ordersRejected),
		PositionsOpened:  atomic.LoadUint64(&m.positionsOpened),
		PositionsClosed:  atomic.LoadUint64(&m.positionsClosed),
		StopBreaches:     atomic.LoadUint64(&m.stopBreaches),
		FanoutDrops:      atomic.LoadUint64(&m.fanoutDrops),
		RiskReasonCounts: reasons,
	}
}
