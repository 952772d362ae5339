package feed

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/yanun0323/decimal"
	"github.com/yanun0323/errors"

	"main/internal/schema"
)

// candleRecord is one line of a candle file. Prices travel as decimal
// strings so files survive tooling that mangles float formatting.
type candleRecord struct {
	Symbol    string          `json:"symbol"`
	Timeframe string          `json:"timeframe"`
	Start     time.Time       `json:"start"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

// FileStore serves candles from per-symbol JSON-lines files named
// <dir>/<symbol>.jsonl.
type FileStore struct {
	dir string
}

// NewFileStore creates a store over a directory of candle files.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("candle dir is empty")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrap(err, "stat candle dir")
	}
	if !info.IsDir() {
		return nil, errors.Errorf("candle dir is not a directory: %s", dir)
	}
	return &FileStore{dir: dir}, nil
}

// Candles reads a symbol's file and returns the candles within
// [from, to), sorted ascending. A missing file yields an empty slice.
func (s *FileStore) Candles(ctx context.Context, symbol string, from, to time.Time) ([]schema.Candle, error) {
	path := filepath.Join(s.dir, symbol+".jsonl")
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "open candle file")
	}
	defer file.Close()

	var out []schema.Candle
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec candleRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, errors.Wrap(err, "decode candle line "+strconv.Itoa(line))
		}
		c, err := rec.toCandle()
		if err != nil {
			return nil, errors.Wrap(err, "candle line "+strconv.Itoa(line))
		}
		if c.Start.Before(from) || !c.Start.Before(to) {
			continue
		}
		out = append(out, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan candle file")
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (r candleRecord) toCandle() (schema.Candle, error) {
	tf, err := schema.ParseTimeframe(r.Timeframe)
	if err != nil {
		return schema.Candle{}, err
	}
	open, err := toFloat(r.Open)
	if err != nil {
		return schema.Candle{}, errors.Wrap(err, "open")
	}
	high, err := toFloat(r.High)
	if err != nil {
		return schema.Candle{}, errors.Wrap(err, "high")
	}
	low, err := toFloat(r.Low)
	if err != nil {
		return schema.Candle{}, errors.Wrap(err, "low")
	}
	closeP, err := toFloat(r.Close)
	if err != nil {
		return schema.Candle{}, errors.Wrap(err, "close")
	}
	volume, err := toFloat(r.Volume)
	if err != nil {
		return schema.Candle{}, errors.Wrap(err, "volume")
	}
	return schema.Candle{
		Symbol:    r.Symbol,
		Timeframe: tf,
		Start:     r.Start,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closeP,
		Volume:    volume,
		Complete:  true,
	}, nil
}

func toFloat(d decimal.Decimal) (float64, error) {
	return strconv.ParseFloat(d.String(), 64)
}
