package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LME metal ticker constants
const (
	TickerCopper   = "LMCADY03 Comdty"
	TickerAluminum = "LMAHDY03 Comdty"
	TickerZinc     = "LMZSDY03 Comdty"
	TickerNickel   = "LMNIDY03 Comdty"
	TickerLead     = "LMPBDY03 Comdty"
	TickerTin      = "LMSNDY03 Comdty"
)

// Metals maps metal names to their LME tickers.
var Metals = map[string]string{
	"copper":   TickerCopper,
	"aluminum": TickerAluminum,
	"zinc":     TickerZinc,
	"nickel":   TickerNickel,
	"lead":     TickerLead,
	"tin":      TickerTin,
}

// Tickers returns the configured metal tickers.
func Tickers() []string {
	tickers := make([]string, 0, len(Metals))
	for _, t := range Metals {
		tickers = append(tickers, t)
	}
	return tickers
}

// PriceTick represents one timestamped price observation for a ticker.
// Ticks are immutable once written and uniquely keyed by (ticker, timestamp).
type PriceTick struct {
	Ticker    string          `json:"ticker"`
	Timestamp time.Time       `json:"timestamp"`
	Price     decimal.Decimal `json:"price"`
	Volume    int64           `json:"volume"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	CreatedAt time.Time       `json:"created_at"`
}

// DailySummary represents the per-day OHLCV aggregate derived from ticks
// for a ticker. It is recomputed idempotently and keyed by (ticker, date).
type DailySummary struct {
	Ticker    string          `json:"ticker"`
	Date      time.Time       `json:"date"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    int64           `json:"volume"`
	TickCount int             `json:"tick_count"`
	CreatedAt time.Time       `json:"created_at"`
}

// PriceStats holds aggregate statistics for a ticker over a window.
type PriceStats struct {
	Ticker      string          `json:"ticker"`
	DataPoints  int             `json:"data_points"`
	AvgPrice    decimal.Decimal `json:"avg_price"`
	MinPrice    decimal.Decimal `json:"min_price"`
	MaxPrice    decimal.Decimal `json:"max_price"`
	TotalVolume int64           `json:"total_volume"`
}
