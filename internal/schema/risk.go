package schema

// RiskReason is a coarse reason code for risk decisions.
type RiskReason uint16

const (
	RiskReasonNone RiskReason = iota
	RiskReasonCapitalExhausted
	RiskReasonStrategyPositionCap
	RiskReasonSymbolExposure
	RiskReasonTotalExposure
	RiskReasonSessionClosed
	RiskReasonDuplicatePosition
	RiskReasonNoPosition
	RiskReasonInvalidSignal
)

func (r RiskReason) String() string {
	switch r {
	case RiskReasonNone:
		return "none"
	case RiskReasonCapitalExhausted:
		return "capital exhausted"
	case RiskReasonStrategyPositionCap:
		return "strategy position cap"
	case RiskReasonSymbolExposure:
		return "symbol exposure limit"
	case RiskReasonTotalExposure:
		return "total exposure limit"
	case RiskReasonSessionClosed:
		return "session closed"
	case RiskReasonDuplicatePosition:
		return "position already open"
	case RiskReasonNoPosition:
		return "no open position"
	case RiskReasonInvalidSignal:
		return "invalid signal"
	default:
		return "unknown"
	}
}

// RiskDecision is the outcome of evaluating one signal against the
// current exposure snapshot. Pure data, no side effects.
type RiskDecision struct {
	Approved bool
	Reason   RiskReason
	// AdjustedQty is the quantity the gate allows. It equals the
	// signal's requested quantity unless the gate shrank it to fit the
	// remaining capital.
	AdjustedQty float64
}
