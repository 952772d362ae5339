package exec

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"main/internal/schema"
)

// Snapshot captures open positions at a point in time.
type Snapshot struct {
	Timestamp int64             `json:"timestamp"`
	Capital   float64           `json:"capital"`
	Positions []schema.Position `json:"positions"`
}

// Snapshot builds a snapshot from the current book.
func (s *Simulator) Snapshot() Snapshot {
	return Snapshot{
		Timestamp: time.Now().UTC().UnixNano(),
		Capital:   s.capital,
		Positions: s.book.All(),
	}
}

// WriteSnapshot writes a snapshot to disk as JSON.
func WriteSnapshot(path string, snapshot Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadSnapshot loads a snapshot from disk.
func ReadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
