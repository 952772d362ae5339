package session

import (
	"time"

	"github.com/yanun0323/logs"
)

// State tracks the trading session lifecycle.
type State uint8

const (
	StateNormal State = iota
	StateWarning
	StateSquareOff
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNormal:
		return "NORMAL"
	case StateWarning:
		return "WARNING"
	case StateSquareOff:
		return "SQUARE_OFF"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Config defines the session boundaries.
type Config struct {
	// CutoffTime is the forced-liquidation instant. At or past it the
	// controller squares off and closes.
	CutoffTime time.Time
	// WarningLead is how long before the cutoff the WARNING state
	// begins.
	WarningLead time.Duration
}

// Controller advances session state from tick timestamps. Transitions
// are strictly forward: a state is never rewound, and the WARNING and
// SQUARE_OFF side effects fire exactly once per run.
type Controller struct {
	cfg         Config
	state       State
	onWarning   func(ts time.Time)
	onSquareOff func(ts time.Time)
}

// NewController creates a controller in NORMAL state.
func NewController(cfg Config, onWarning, onSquareOff func(ts time.Time)) *Controller {
	return &Controller{
		cfg:         cfg,
		state:       StateNormal,
		onWarning:   onWarning,
		onSquareOff: onSquareOff,
	}
}

// State returns the current session state.
func (c *Controller) State() State {
	return c.state
}

// AllowsEntry reports whether new-entry signals are still accepted.
func (c *Controller) AllowsEntry() bool {
	return c.state == StateNormal || c.state == StateWarning
}

// Advance drives the state machine with a tick timestamp. It may cross
// more than one boundary in a single call when ticks are sparse.
func (c *Controller) Advance(ts time.Time) State {
	if c.state == StateClosed {
		return c.state
	}

	if c.state == StateNormal && !ts.Before(c.cfg.CutoffTime.Add(-c.cfg.WarningLead)) {
		c.state = StateWarning
		logs.Warnf("session warning: %s until square-off", c.cfg.CutoffTime.Sub(ts))
		if c.onWarning != nil {
			c.onWarning(ts)
		}
	}

	if c.state == StateWarning && !ts.Before(c.cfg.CutoffTime) {
		c.state = StateSquareOff
		logs.Warn("session square-off: closing all open positions")
		if c.onSquareOff != nil {
			c.onSquareOff(ts)
		}
		c.state = StateClosed
	}

	return c.state
}
