package feed

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is one price observation returned by the terminal feed.
type Quote struct {
	Ticker    string
	Price     decimal.Decimal
	Volume    int64
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Timestamp time.Time
}

// PriceFeed is the pull interface onto the terminal API. Implementations
// must apply their own timeouts; an error or empty result simply means no
// new ticks this cycle.
type PriceFeed interface {
	Fetch(ctx context.Context, tickers []string) ([]Quote, error)
}
