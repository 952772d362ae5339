package exec

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotFileRoundTrip(t *testing.T) {
	sim := NewSimulator(Config{InitialCapital: 10000}, NewBook(), nil)
	_, _ = sim.Execute(enterLong("s1", "NIFTY"), 10, 100, fillTime)

	snap := sim.Snapshot()
	require.Len(t, snap.Positions, 1)
	assert.InDelta(t, 9000, snap.Capital, 1e-9)
	assert.NotZero(t, snap.Timestamp)

	path := filepath.Join(t.TempDir(), "state", "snapshot.json")
	require.NoError(t, WriteSnapshot(path, snap))

	loaded, err := ReadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, snap.Timestamp, loaded.Timestamp)
	assert.Equal(t, snap.Capital, loaded.Capital)
	require.Len(t, loaded.Positions, 1)
	assert.Equal(t, snap.Positions[0].Symbol, loaded.Positions[0].Symbol)
	assert.Equal(t, snap.Positions[0].Qty, loaded.Positions[0].Qty)
}

func TestReadSnapshotMissingFile(t *testing.T) {
	_, err := ReadSnapshot(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
