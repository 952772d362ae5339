package schema

import (
	"fmt"
	"time"
)

// Timeframe is a candle aggregation interval.
type Timeframe time.Duration

const (
	Timeframe1m  = Timeframe(time.Minute)
	Timeframe3m  = Timeframe(3 * time.Minute)
	Timeframe5m  = Timeframe(5 * time.Minute)
	Timeframe15m = Timeframe(15 * time.Minute)
)

// Duration returns the timeframe as a time.Duration.
func (tf Timeframe) Duration() time.Duration {
	return time.Duration(tf)
}

// Bucket floors a timestamp to the timeframe boundary.
func (tf Timeframe) Bucket(ts time.Time) time.Time {
	return ts.Truncate(time.Duration(tf))
}

func (tf Timeframe) String() string {
	d := time.Duration(tf)
	if d >= time.Hour && d%time.Hour == 0 {
		return fmt.Sprintf("%dh", d/time.Hour)
	}
	if d >= time.Minute && d%time.Minute == 0 {
		return fmt.Sprintf("%dm", d/time.Minute)
	}
	return fmt.Sprintf("%ds", int(d/time.Second))
}

// ParseTimeframe parses strings like "1m", "3m", "1h".
func ParseTimeframe(s string) (Timeframe, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid timeframe %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid timeframe %q: must be positive", s)
	}
	return Timeframe(d), nil
}

// Tick is a single synthetic trade print. Immutable once generated.
type Tick struct {
	Symbol    string
	Timestamp time.Time
	Price     float64
	Volume    float64
	// Seq is the tick's index within its source candle.
	Seq int
}

// Before reports whether t sorts ahead of other in the merged
// multi-symbol stream. Ordering key is (timestamp, symbol).
func (t Tick) Before(other Tick) bool {
	if !t.Timestamp.Equal(other.Timestamp) {
		return t.Timestamp.Before(other.Timestamp)
	}
	return t.Symbol < other.Symbol
}

// Candle is a fixed-interval OHLCV summary for one symbol and timeframe.
type Candle struct {
	Symbol    string
	Timeframe Timeframe
	Start     time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Complete  bool
}

// Apply folds a tick into the candle.
func (c *Candle) Apply(tick Tick) {
	if tick.Price > c.High {
		c.High = tick.Price
	}
	if tick.Price < c.Low {
		c.Low = tick.Price
	}
	c.Close = tick.Price
	c.Volume += tick.Volume
}

// NewCandle opens an in-progress candle seeded from the first tick of
// its bucket.
func NewCandle(symbol string, tf Timeframe, bucket time.Time, tick Tick) Candle {
	return Candle{
		Symbol:    symbol,
		Timeframe: tf,
		Start:     bucket,
		Open:      tick.Price,
		High:      tick.Price,
		Low:       tick.Price,
		Close:     tick.Price,
		Volume:    tick.Volume,
	}
}
