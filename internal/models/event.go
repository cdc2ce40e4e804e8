package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event type constants
const (
	EventAlertTriggered = "ALERT_TRIGGERED"
	EventPriceUpdated   = "PRICE_UPDATED"
)

// PriceEvent represents a Kafka event emitted on price and alert activity.
// Downstream consumers (e.g. the social-media poster) subscribe to these.
type PriceEvent struct {
	EventType string          `json:"event_type"`
	Ticker    string          `json:"ticker"`
	Price     decimal.Decimal `json:"price"`
	Alert     *Alert          `json:"alert,omitempty"`
	Message   string          `json:"message,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
