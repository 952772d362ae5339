package feed

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/yanun0323/errors"

	"main/internal/schema"
)

// writeRecord mirrors candleRecord with preformatted price strings.
type writeRecord struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	Start     time.Time `json:"start"`
	Open      string    `json:"open"`
	High      string    `json:"high"`
	Low       string    `json:"low"`
	Close     string    `json:"close"`
	Volume    string    `json:"volume"`
}

// WriteCandles appends candles to a symbol's file, creating the
// directory and file as needed.
func WriteCandles(dir, symbol string, candles []schema.Candle) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create candle dir")
	}
	path := filepath.Join(dir, symbol+".jsonl")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(err, "open candle file")
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	for _, c := range candles {
		rec := writeRecord{
			Symbol:    c.Symbol,
			Timeframe: c.Timeframe.String(),
			Start:     c.Start,
			Open:      formatPrice(c.Open),
			High:      formatPrice(c.High),
			Low:       formatPrice(c.Low),
			Close:     formatPrice(c.Close),
			Volume:    formatPrice(c.Volume),
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return errors.Wrap(err, "encode candle")
		}
		if _, err := w.Write(data); err != nil {
			return errors.Wrap(err, "write candle")
		}
		if err := w.WriteByte('\n'); err != nil {
			return errors.Wrap(err, "write candle")
		}
	}
	return errors.Wrap(w.Flush(), "flush candle file")
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
