package fanout

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/bus"
	"main/internal/schema"
)

func TestBusPublisherEnvelopesEvents(t *testing.T) {
	q := bus.NewQueue(8)
	p := NewBusPublisher(q, nil)

	p.Tick(schema.Tick{Symbol: "NIFTY", Price: 100, Timestamp: time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)})
	p.StopUpdate("s1", "NIFTY", 99.5)
	p.Alert("square-off approaching")
	q.Close()

	var kinds []string
	var payloads [][]byte
	q.Run(t.Context(), func(e bus.Event) {
		kinds = append(kinds, e.Kind)
		payloads = append(payloads, e.Data)
	})
	require.Equal(t, []string{KindTick, KindStop, KindAlert}, kinds)

	var stop struct {
		StrategyID string  `json:"strategyId"`
		StopPrice  float64 `json:"stopPrice"`
	}
	require.NoError(t, json.Unmarshal(payloads[1], &stop))
	assert.Equal(t, "s1", stop.StrategyID)
	assert.Equal(t, 99.5, stop.StopPrice)
}

func TestBusPublisherCountsDrops(t *testing.T) {
	q := bus.NewQueue(1)
	drops := 0
	p := NewBusPublisher(q, func() { drops++ })

	p.Alert("first fits")
	p.Alert("second drops")
	assert.Equal(t, 1, drops)

	q.Close()
	p.Alert("closed drops too")
	assert.Equal(t, 2, drops)
}
