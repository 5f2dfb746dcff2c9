package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/quantfolio/portfolio-service/internal/models"
)

// SeriesRefresher warms the daily price cache for a symbol
type SeriesRefresher interface {
	EnsureSeries(ctx context.Context, symbol string) error
}

// Consumer handles consuming holding events from Kafka.
// When a holding is added it warms the price cache for that symbol so the
// next history request does not have to wait on the provider.
type Consumer struct {
	reader    *kafka.Reader
	refresher SeriesRefresher
	log       *slog.Logger
}

// NewConsumer creates a new Kafka consumer for holding events
func NewConsumer(brokers []string, topic, groupID string, refresher SeriesRefresher) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader:    reader,
		refresher: refresher,
		log:       slog.Default().With("component", "consumer"),
	}
}

// Start begins consuming messages from Kafka
func (c *Consumer) Start(ctx context.Context) error {
	c.log.Info("starting Kafka consumer", "topic", c.reader.Config().Topic)

	for {
		select {
		case <-ctx.Done():
			c.log.Info("Kafka consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil // Context cancelled, normal shutdown
				}
				c.log.Error("error reading message", "error", err)
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				c.log.Error("error processing message", "error", err)
				// Continue processing other messages
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	c.log.Debug("received message",
		"partition", msg.Partition, "offset", msg.Offset, "key", string(msg.Key))

	var event models.HoldingEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal holding event: %w", err)
	}

	// Removals need no cache work; the series stays valid for other portfolios
	if event.EventType != models.EventHoldingAdded && event.EventType != models.EventHoldingUpdated {
		c.log.Debug("ignoring event type", "event_type", event.EventType)
		return nil
	}

	if event.Symbol == "" {
		return fmt.Errorf("holding event has no symbol")
	}

	if err := c.refresher.EnsureSeries(ctx, event.Symbol); err != nil {
		return fmt.Errorf("failed to warm cache for %s: %w", event.Symbol, err)
	}

	c.log.Info("price cache warmed", "symbol", event.Symbol)
	return nil
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
