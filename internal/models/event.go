package models

import "time"

// Holding event type constants for Kafka messages
const (
	EventHoldingAdded   = "HOLDING_ADDED"
	EventHoldingUpdated = "HOLDING_UPDATED"
	EventHoldingRemoved = "HOLDING_REMOVED"
)

// HoldingEvent represents a Kafka event for holding changes
type HoldingEvent struct {
	EventType   string    `json:"event_type"`
	PortfolioID string    `json:"portfolio_id"`
	Symbol      string    `json:"symbol"`
	Holding     *Holding  `json:"holding,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
