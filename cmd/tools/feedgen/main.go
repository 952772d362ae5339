package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"main/internal/feed"
	"main/internal/schema"
)

func main() {
	dir := flag.String("dir", "testdata/candles", "Output candle directory")
	symbols := flag.String("symbols", "NIFTY,BANKNIFTY", "Comma-separated symbols")
	date := flag.String("date", "", "Session date (2006-01-02, required)")
	tfRaw := flag.String("timeframe", "1m", "Candle timeframe")
	open := flag.String("open", "09:15", "Session open clock time")
	count := flag.Int("count", 375, "Candles per symbol")
	base := flag.Float64("base", 20000, "Starting price")
	drift := flag.Float64("drift", 0.0002, "Max per-candle drift fraction")
	seed := flag.Int64("seed", 1, "Random seed")
	flag.Parse()

	if *date == "" {
		log.Fatal("-date is required")
	}
	day, err := time.Parse("2006-01-02", *date)
	if err != nil {
		log.Fatalf("invalid -date: %v", err)
	}
	tf, err := schema.ParseTimeframe(*tfRaw)
	if err != nil {
		log.Fatalf("invalid -timeframe: %v", err)
	}
	clock, err := time.Parse("15:04", *open)
	if err != nil {
		log.Fatalf("invalid -open: %v", err)
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, time.UTC)

	rng := rand.New(rand.NewSource(*seed))
	for _, symbol := range strings.Split(*symbols, ",") {
		symbol = strings.TrimSpace(symbol)
		if symbol == "" {
			continue
		}
		candles := synthesize(rng, symbol, tf, start, *count, *base, *drift)
		if err := feed.WriteCandles(*dir, symbol, candles); err != nil {
			log.Fatalf("write %s candles failed: %v", symbol, err)
		}
		fmt.Printf("wrote %d %s candles for %s starting %s\n",
			len(candles), tf, symbol, start.Format(time.RFC3339))
	}
}

// synthesize walks the price from base, one candle per step. Each
// candle's extremes extend slightly past the open/close range so every
// OHLC field is distinct.
func synthesize(rng *rand.Rand, symbol string, tf schema.Timeframe, start time.Time, count int, base, drift float64) []schema.Candle {
	candles := make([]schema.Candle, 0, count)
	price := base
	for i := 0; i < count; i++ {
		open := price
		change := (rng.Float64()*2 - 1) * drift * open
		closeP := open + change
		spread := rng.Float64() * drift * open

		high := open
		if closeP > high {
			high = closeP
		}
		high += spread
		low := open
		if closeP < low {
			low = closeP
		}
		low -= spread

		candles = append(candles, schema.Candle{
			Symbol:    symbol,
			Timeframe: tf,
			Start:     start.Add(time.Duration(i) * tf.Duration()),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closeP,
			Volume:    1000 + rng.Float64()*9000,
			Complete:  true,
		})
		price = closeP
	}
	return candles
}
