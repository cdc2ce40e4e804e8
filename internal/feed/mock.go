package feed

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"metals-dashboard/internal/models"
)

// basePrices seeds the random walk with plausible LME USD/tonne levels.
var basePrices = map[string]float64{
	models.TickerCopper:   8500.0,
	models.TickerAluminum: 2300.0,
	models.TickerZinc:     2700.0,
	models.TickerNickel:   16500.0,
	models.TickerLead:     2050.0,
	models.TickerTin:      29000.0,
}

// MockFeed simulates the terminal API with a random walk per ticker. It
// stands in for the real client until terminal connectivity is available.
type MockFeed struct {
	mu     sync.Mutex
	prices map[string]float64
	rng    *rand.Rand
}

// NewMockFeed creates a mock feed seeded from the base LME price levels.
func NewMockFeed() *MockFeed {
	prices := make(map[string]float64, len(basePrices))
	for ticker, price := range basePrices {
		prices[ticker] = price
	}
	return &MockFeed{
		prices: prices,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Fetch returns one quote per requested ticker, each one random-walk step
// away from the previous observation.
func (f *MockFeed) Fetch(ctx context.Context, tickers []string) ([]Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now().UTC().Truncate(time.Second)
	quotes := make([]Quote, 0, len(tickers))
	for _, ticker := range tickers {
		last, ok := f.prices[ticker]
		if !ok {
			last = 1000.0 + f.rng.Float64()*1000.0
		}

		// Step within ±0.5% of the last observation.
		step := last * (f.rng.Float64() - 0.5) / 100.0
		price := last + step
		f.prices[ticker] = price

		spread := price * 0.002
		dec := func(v float64) decimal.Decimal { return decimal.NewFromFloat(v).Round(2) }
		quotes = append(quotes, Quote{
			Ticker:    ticker,
			Price:     dec(price),
			Volume:    10000 + int64(f.rng.Intn(10000)),
			Open:      dec(last),
			High:      dec(price + spread),
			Low:       dec(price - spread),
			Close:     dec(price),
			Timestamp: now,
		})
	}
	return quotes, nil
}
