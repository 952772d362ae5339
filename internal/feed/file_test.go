package feed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/schema"
)

var day = time.Date(2026, 1, 2, 9, 15, 0, 0, time.UTC)

func sampleCandles(symbol string, n int) []schema.Candle {
	out := make([]schema.Candle, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, schema.Candle{
			Symbol:    symbol,
			Timeframe: schema.Timeframe1m,
			Start:     day.Add(time.Duration(i) * time.Minute),
			Open:      100 + float64(i),
			High:      101 + float64(i),
			Low:       99 + float64(i),
			Close:     100.5 + float64(i),
			Volume:    1000,
			Complete:  true,
		})
	}
	return out
}

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	written := sampleCandles("NIFTY", 3)
	require.NoError(t, WriteCandles(dir, "NIFTY", written))

	store, err := NewFileStore(dir)
	require.NoError(t, err)

	got, err := store.Candles(context.Background(), "NIFTY", day, day.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, written, got)
}

func TestFileStoreRangeFilter(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteCandles(dir, "NIFTY", sampleCandles("NIFTY", 5)))

	store, err := NewFileStore(dir)
	require.NoError(t, err)

	got, err := store.Candles(context.Background(), "NIFTY", day.Add(time.Minute), day.Add(3*time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, day.Add(time.Minute), got[0].Start)
	assert.Equal(t, day.Add(2*time.Minute), got[1].Start)
}

func TestFileStoreMissingSymbolIsEmpty(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	got, err := store.Candles(context.Background(), "GHOST", day, day.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFileStoreAppendsAcrossWrites(t *testing.T) {
	dir := t.TempDir()
	all := sampleCandles("NIFTY", 4)
	require.NoError(t, WriteCandles(dir, "NIFTY", all[:2]))
	require.NoError(t, WriteCandles(dir, "NIFTY", all[2:]))

	store, err := NewFileStore(dir)
	require.NoError(t, err)
	got, err := store.Candles(context.Background(), "NIFTY", day, day.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestFileStoreRejectsCorruptLine(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "NIFTY.jsonl"), []byte("not json\n"), 0o644))

	store, err := NewFileStore(dir)
	require.NoError(t, err)
	_, err = store.Candles(context.Background(), "NIFTY", day, day.Add(time.Hour))
	assert.Error(t, err)
}

func TestNewFileStoreValidatesDir(t *testing.T) {
	_, err := NewFileStore("")
	assert.Error(t, err)

	_, err = NewFileStore(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
