package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/portfolio-service/internal/models"
)

// MockRefresher implements the SeriesRefresher interface for testing
type MockRefresher struct {
	warmed map[string]int
	errs   map[string]error

	// Track method calls for verification
	EnsureSeriesCalls int
}

func NewMockRefresher() *MockRefresher {
	return &MockRefresher{
		warmed: make(map[string]int),
		errs:   make(map[string]error),
	}
}

func (m *MockRefresher) EnsureSeries(ctx context.Context, symbol string) error {
	m.EnsureSeriesCalls++
	if err, ok := m.errs[symbol]; ok {
		return err
	}
	m.warmed[symbol]++
	return nil
}

func newTestConsumer(refresher SeriesRefresher) *Consumer {
	return &Consumer{
		refresher: refresher,
		log:       slog.Default().With("component", "consumer"),
	}
}

// Helper to build a Kafka message carrying a holding event
func holdingEventMessage(t *testing.T, eventType, symbol string) kafka.Message {
	t.Helper()
	event := models.HoldingEvent{
		EventType:   eventType,
		PortfolioID: "5a0c2d51-9f7a-4a86-bb65-0b71f6a0d001",
		Symbol:      symbol,
		Timestamp:   time.Now(),
	}
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Key: []byte(symbol), Value: data}
}

// TestHoldingAddedWarmsCache verifies an added holding triggers a cache warm
func TestHoldingAddedWarmsCache(t *testing.T) {
	refresher := NewMockRefresher()
	consumer := newTestConsumer(refresher)

	msg := holdingEventMessage(t, models.EventHoldingAdded, "AAPL")
	err := consumer.processMessage(context.Background(), msg)
	require.NoError(t, err)

	assert.Equal(t, 1, refresher.EnsureSeriesCalls)
	assert.Equal(t, 1, refresher.warmed["AAPL"])
}

// TestHoldingUpdatedWarmsCache verifies updates also refresh the series
func TestHoldingUpdatedWarmsCache(t *testing.T) {
	refresher := NewMockRefresher()
	consumer := newTestConsumer(refresher)

	msg := holdingEventMessage(t, models.EventHoldingUpdated, "MSFT")
	err := consumer.processMessage(context.Background(), msg)
	require.NoError(t, err)

	assert.Equal(t, 1, refresher.warmed["MSFT"])
}

// TestHoldingRemovedIsIgnored verifies removals do not touch the cache
func TestHoldingRemovedIsIgnored(t *testing.T) {
	refresher := NewMockRefresher()
	consumer := newTestConsumer(refresher)

	msg := holdingEventMessage(t, models.EventHoldingRemoved, "AAPL")
	err := consumer.processMessage(context.Background(), msg)
	require.NoError(t, err)

	assert.Zero(t, refresher.EnsureSeriesCalls)
}

// TestUnknownEventTypeIsIgnored verifies foreign event types are skipped
func TestUnknownEventTypeIsIgnored(t *testing.T) {
	refresher := NewMockRefresher()
	consumer := newTestConsumer(refresher)

	msg := holdingEventMessage(t, "PORTFOLIO_RENAMED", "AAPL")
	err := consumer.processMessage(context.Background(), msg)
	require.NoError(t, err)

	assert.Zero(t, refresher.EnsureSeriesCalls)
}

// TestMalformedMessageReturnsError verifies bad payloads surface an error
// instead of crashing the consumer loop
func TestMalformedMessageReturnsError(t *testing.T) {
	refresher := NewMockRefresher()
	consumer := newTestConsumer(refresher)

	msg := kafka.Message{Key: []byte("AAPL"), Value: []byte("not-json")}
	err := consumer.processMessage(context.Background(), msg)
	assert.Error(t, err)
	assert.Zero(t, refresher.EnsureSeriesCalls)
}

// TestMissingSymbolReturnsError verifies events without a symbol are rejected
func TestMissingSymbolReturnsError(t *testing.T) {
	refresher := NewMockRefresher()
	consumer := newTestConsumer(refresher)

	msg := holdingEventMessage(t, models.EventHoldingAdded, "")
	err := consumer.processMessage(context.Background(), msg)
	assert.Error(t, err)
	assert.Zero(t, refresher.EnsureSeriesCalls)
}

// TestRefreshFailurePropagates verifies provider failures bubble up so the
// loop can log them, without poisoning later messages
func TestRefreshFailurePropagates(t *testing.T) {
	refresher := NewMockRefresher()
	refresher.errs["NVDA"] = fmt.Errorf("rate limited")
	consumer := newTestConsumer(refresher)

	err := consumer.processMessage(context.Background(), holdingEventMessage(t, models.EventHoldingAdded, "NVDA"))
	assert.Error(t, err)

	// A later message for a healthy symbol still succeeds
	err = consumer.processMessage(context.Background(), holdingEventMessage(t, models.EventHoldingAdded, "AAPL"))
	require.NoError(t, err)
	assert.Equal(t, 1, refresher.warmed["AAPL"])
}
