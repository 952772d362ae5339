package strategy

import (
	"strings"
	"time"

	"github.com/yanun0323/errors"

	"main/internal/schema"
)

// Spec expresses the tunable knobs a strategy constructor needs.
type Spec struct {
	ID        string
	Kind      string
	Symbols   []string
	Timeframe schema.Timeframe
	Qty       float64

	FastPeriod int
	SlowPeriod int

	Threshold  float64
	WindowSecs int
}

// Build returns a strategy implementation matching the configured
// kind.
func Build(spec Spec, view PositionView) (Strategy, error) {
	if spec.ID == "" {
		return nil, errors.New("strategy spec: id is empty")
	}
	if len(spec.Symbols) == 0 {
		return nil, errors.New("strategy spec: no symbols")
	}
	if spec.Qty <= 0 {
		return nil, errors.New("strategy spec: qty must be > 0")
	}
	switch strings.ToLower(strings.TrimSpace(spec.Kind)) {
	case "", "sma", "sma_cross":
		return NewSMACross(spec.ID, spec.Symbols, spec.Timeframe, spec.FastPeriod, spec.SlowPeriod, spec.Qty, view), nil
	case "momentum", "trend":
		return NewMomentum(spec.ID, spec.Symbols, spec.Threshold, time.Duration(spec.WindowSecs)*time.Second, spec.Qty, view), nil
	default:
		return nil, errors.Errorf("unknown strategy kind: %s", spec.Kind)
	}
}
