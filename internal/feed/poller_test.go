package feed

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"metals-dashboard/internal/database"
	"metals-dashboard/internal/models"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, filename, _, _ := runtime.Caller(0)
	migrations := filepath.Join(filepath.Dir(filename), "..", "..", "db", "migrations")
	if err := db.Migrate(migrations); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

// stubFeed serves a fixed set of quotes, or fails when err is set.
type stubFeed struct {
	quotes []Quote
	err    error
	calls  int
}

func (s *stubFeed) Fetch(ctx context.Context, tickers []string) ([]Quote, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.quotes, nil
}

// countingChecker records whether the poller ran the alert scan.
type countingChecker struct {
	calls int
}

func (c *countingChecker) CheckAll(ctx context.Context) error {
	c.calls++
	return nil
}

// stubPublisher collects price events instead of writing to a broker.
type stubPublisher struct {
	ticks []*models.PriceTick
	err   error
}

func (s *stubPublisher) PublishPriceUpdated(ctx context.Context, tick *models.PriceTick) error {
	if s.err != nil {
		return s.err
	}
	s.ticks = append(s.ticks, tick)
	return nil
}

func quoteAt(ticker string, price float64, ts time.Time) Quote {
	d := decimal.NewFromFloat(price)
	return Quote{
		Ticker:    ticker,
		Price:     d,
		Volume:    5000,
		Open:      d,
		High:      d,
		Low:       d,
		Close:     d,
		Timestamp: ts,
	}
}

func TestPollerPoll(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}

	t.Run("stores ticks and recomputes the daily summary", func(t *testing.T) {
		db := setupTestDB(t)
		now := time.Now().UTC().Truncate(time.Second)
		stub := &stubFeed{quotes: []Quote{
			quoteAt(models.TickerCopper, 8500, now.Add(-2*time.Minute)),
			quoteAt(models.TickerCopper, 8520, now),
		}}
		checker := &countingChecker{}

		p := NewPoller(stub, db, checker, nil, []string{models.TickerCopper}, time.Minute, zap.NewNop())
		p.Poll(context.Background())

		latest, err := db.GetLatestPrice(models.TickerCopper)
		require.NoError(t, err)
		assert.True(t, latest.Price.Equal(decimal.NewFromInt(8520)))

		summary, err := db.GetDailySummary(models.TickerCopper, now)
		require.NoError(t, err)
		assert.Equal(t, 2, summary.TickCount)
		assert.True(t, summary.Close.Equal(decimal.NewFromInt(8520)))

		assert.Equal(t, 1, checker.calls)

		status := p.Status()
		assert.False(t, status.Stale)
		assert.Empty(t, status.LastError)
	})

	t.Run("publishes a price event per stored tick", func(t *testing.T) {
		db := setupTestDB(t)
		now := time.Now().UTC().Truncate(time.Second)
		stub := &stubFeed{quotes: []Quote{
			quoteAt(models.TickerCopper, 8500, now),
			quoteAt(models.TickerZinc, 2700, now),
		}}
		publisher := &stubPublisher{}

		p := NewPoller(stub, db, nil, publisher, []string{models.TickerCopper, models.TickerZinc}, time.Minute, zap.NewNop())
		p.Poll(context.Background())

		require.Len(t, publisher.ticks, 2)
		tickers := []string{publisher.ticks[0].Ticker, publisher.ticks[1].Ticker}
		assert.Contains(t, tickers, models.TickerCopper)
		assert.Contains(t, tickers, models.TickerZinc)
	})

	t.Run("publish failure does not fail the cycle", func(t *testing.T) {
		db := setupTestDB(t)
		now := time.Now().UTC().Truncate(time.Second)
		stub := &stubFeed{quotes: []Quote{quoteAt(models.TickerCopper, 8500, now)}}
		publisher := &stubPublisher{err: errors.New("broker unavailable")}

		p := NewPoller(stub, db, nil, publisher, []string{models.TickerCopper}, time.Minute, zap.NewNop())
		p.Poll(context.Background())

		// The tick and summary still land despite the dropped event.
		_, err := db.GetLatestPrice(models.TickerCopper)
		require.NoError(t, err)
		assert.False(t, p.Status().Stale)
	})

	t.Run("feed failure leaves stored data untouched", func(t *testing.T) {
		db := setupTestDB(t)
		now := time.Now().UTC().Truncate(time.Second)
		stub := &stubFeed{quotes: []Quote{quoteAt(models.TickerZinc, 2700, now)}}

		p := NewPoller(stub, db, nil, nil, []string{models.TickerZinc}, time.Minute, zap.NewNop())
		p.Poll(context.Background())

		stub.err = errors.New("terminal unreachable")
		p.Poll(context.Background())

		// Previously stored tick is still served.
		latest, err := db.GetLatestPrice(models.TickerZinc)
		require.NoError(t, err)
		assert.True(t, latest.Price.Equal(decimal.NewFromInt(2700)))

		status := p.Status()
		assert.Equal(t, "terminal unreachable", status.LastError)
		assert.False(t, status.Stale, "one failed cycle within three intervals is not stale")
	})

	t.Run("never succeeded reports stale", func(t *testing.T) {
		db := setupTestDB(t)
		stub := &stubFeed{err: errors.New("terminal unreachable")}

		p := NewPoller(stub, db, nil, nil, []string{models.TickerCopper}, time.Minute, zap.NewNop())
		p.Poll(context.Background())

		assert.True(t, p.Status().Stale)
	})

	t.Run("empty fetch counts as a failure", func(t *testing.T) {
		db := setupTestDB(t)
		stub := &stubFeed{}

		p := NewPoller(stub, db, nil, nil, []string{models.TickerCopper}, time.Minute, zap.NewNop())
		p.Poll(context.Background())

		status := p.Status()
		assert.Equal(t, "feed returned no quotes", status.LastError)
		assert.True(t, status.Stale)
	})

	t.Run("re-polling the same timestamp does not change the summary", func(t *testing.T) {
		db := setupTestDB(t)
		now := time.Now().UTC().Truncate(time.Second)
		stub := &stubFeed{quotes: []Quote{quoteAt(models.TickerCopper, 8500, now)}}

		p := NewPoller(stub, db, nil, nil, []string{models.TickerCopper}, time.Minute, zap.NewNop())
		p.Poll(context.Background())
		first, err := db.GetDailySummary(models.TickerCopper, now)
		require.NoError(t, err)

		p.Poll(context.Background())
		second, err := db.GetDailySummary(models.TickerCopper, now)
		require.NoError(t, err)

		assert.Equal(t, first.TickCount, second.TickCount)
		assert.True(t, first.Open.Equal(second.Open))
		assert.True(t, first.Close.Equal(second.Close))
	})
}

func TestPollerRun(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}

	db := setupTestDB(t)
	now := time.Now().UTC().Truncate(time.Second)
	stub := &stubFeed{quotes: []Quote{quoteAt(models.TickerLead, 2050, now)}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p := NewPoller(stub, db, nil, nil, []string{models.TickerLead}, time.Hour, zap.NewNop())
	go func() {
		p.Run(ctx)
		close(done)
	}()

	// The first cycle runs immediately, before the first tick fires.
	require.Eventually(t, func() bool {
		_, err := db.GetLatestPrice(models.TickerLead)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop after context cancellation")
	}
}

func TestMockFeed(t *testing.T) {
	f := NewMockFeed()
	tickers := models.Tickers()

	quotes, err := f.Fetch(context.Background(), tickers)
	require.NoError(t, err)
	require.Len(t, quotes, len(tickers))

	byTicker := make(map[string]Quote, len(quotes))
	for _, q := range quotes {
		byTicker[q.Ticker] = q
		assert.True(t, q.Price.IsPositive())
		assert.True(t, q.High.GreaterThanOrEqual(q.Low))
		assert.Positive(t, q.Volume)
		assert.False(t, q.Timestamp.IsZero())
	}

	// A second fetch walks from the first, staying within the step bound.
	again, err := f.Fetch(context.Background(), tickers)
	require.NoError(t, err)
	for _, q := range again {
		prev := byTicker[q.Ticker]
		move := q.Price.Sub(prev.Price).Abs().Div(prev.Price)
		assert.True(t, move.LessThan(decimal.NewFromFloat(0.01)),
			"%s moved %s in one step", q.Ticker, move)
	}

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := f.Fetch(ctx, tickers)
		assert.Error(t, err)
	})

	t.Run("unknown ticker still gets a quote", func(t *testing.T) {
		quotes, err := f.Fetch(context.Background(), []string{"XAU Curncy"})
		require.NoError(t, err)
		require.Len(t, quotes, 1)
		assert.True(t, quotes[0].Price.IsPositive())
	})
}
