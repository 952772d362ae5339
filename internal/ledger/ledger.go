// Package ledger is the persistence collaborator: fire-and-forget
// writes of orders, trades and position snapshots. The simulation core
// never reads it back and a write failure never propagates into the
// loop.
package ledger

import (
	"main/internal/exec"
	"main/internal/schema"
)

// Ledger accepts best-effort writes keyed by strategy, symbol and
// timestamp.
type Ledger interface {
	RecordOrder(o schema.Order)
	RecordTrade(t exec.Trade)
	RecordSnapshot(s exec.Snapshot)
}

// Nop discards every write.
type Nop struct{}

func (Nop) RecordOrder(schema.Order)     {}
func (Nop) RecordTrade(exec.Trade)       {}
func (Nop) RecordSnapshot(exec.Snapshot) {}
