package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Alert kind constants
const (
	AlertKindThreshold     = "THRESHOLD"
	AlertKindPercentChange = "PERCENT_CHANGE"
)

// Alert represents a configured price alert condition.
//
// A threshold alert fires when the latest price crosses above UpperBound or
// below LowerBound; either bound may be set independently. A percent-change
// alert fires when the move from the previous close exceeds ChangePct in the
// same direction as its sign.
type Alert struct {
	ID          string              `json:"id"`
	Ticker      string              `json:"ticker"`
	Kind        string              `json:"kind"`
	UpperBound  decimal.NullDecimal `json:"upper_bound,omitempty"`
	LowerBound  decimal.NullDecimal `json:"lower_bound,omitempty"`
	ChangePct   decimal.NullDecimal `json:"change_pct,omitempty"`
	Active      bool                `json:"active"`
	CreatedAt   time.Time           `json:"created_at"`
	TriggeredAt *time.Time          `json:"triggered_at,omitempty"`
}
