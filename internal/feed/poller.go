package feed

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"metals-dashboard/internal/database"
	"metals-dashboard/internal/models"
)

// TickChecker is run after each successful poll cycle, once the new ticks
// and summaries are persisted.
type TickChecker interface {
	CheckAll(ctx context.Context) error
}

// PricePublisher publishes price-update events for downstream consumers.
type PricePublisher interface {
	PublishPriceUpdated(ctx context.Context, tick *models.PriceTick) error
}

// Status describes the freshness of the stored data as seen by the poller.
type Status struct {
	LastSuccess time.Time `json:"last_success"`
	LastError   string    `json:"last_error,omitempty"`
	Stale       bool      `json:"stale"`
}

// Poller pulls quotes from the feed on a fixed interval and persists them.
// A failing feed degrades to stale data: the cycle is skipped, the failure
// recorded, and readers keep seeing whatever is already stored.
type Poller struct {
	feed      PriceFeed
	db        *database.DB
	checker   TickChecker
	publisher PricePublisher
	tickers   []string
	interval  time.Duration
	log       *zap.Logger

	mu          sync.Mutex
	lastSuccess time.Time
	lastError   string
}

// NewPoller creates a Poller. checker and publisher may be nil.
func NewPoller(feed PriceFeed, db *database.DB, checker TickChecker, publisher PricePublisher, tickers []string, interval time.Duration, log *zap.Logger) *Poller {
	return &Poller{
		feed:      feed,
		db:        db,
		checker:   checker,
		publisher: publisher,
		tickers:   tickers,
		interval:  interval,
		log:       log,
	}
}

// Run polls until the context is cancelled. The first cycle runs
// immediately so the dashboard has data at startup.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// Poll runs a single cycle. Exposed for callers that schedule externally.
func (p *Poller) Poll(ctx context.Context) {
	p.poll(ctx)
}

// Status reports the last cycle outcome. Data is considered stale when no
// cycle has succeeded within three intervals.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{
		LastSuccess: p.lastSuccess,
		LastError:   p.lastError,
		Stale:       p.lastSuccess.IsZero() || time.Since(p.lastSuccess) > 3*p.interval,
	}
}

func (p *Poller) poll(ctx context.Context) {
	cycleCtx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()

	quotes, err := p.feed.Fetch(cycleCtx, p.tickers)
	if err != nil {
		p.recordFailure(err)
		p.log.Warn("feed poll failed, serving stale data", zap.Error(err))
		return
	}
	if len(quotes) == 0 {
		p.recordFailure(nil)
		return
	}

	touched := make(map[string]time.Time)
	for _, q := range quotes {
		tick := &models.PriceTick{
			Ticker:    q.Ticker,
			Timestamp: q.Timestamp,
			Price:     q.Price,
			Volume:    q.Volume,
			Open:      q.Open,
			High:      q.High,
			Low:       q.Low,
			Close:     q.Close,
		}
		if err := p.db.UpsertPriceTick(tick); err != nil {
			p.log.Error("failed to store tick", zap.String("ticker", q.Ticker), zap.Error(err))
			continue
		}
		touched[q.Ticker] = q.Timestamp

		if p.publisher != nil {
			if err := p.publisher.PublishPriceUpdated(cycleCtx, tick); err != nil {
				p.log.Warn("failed to publish price event",
					zap.String("ticker", q.Ticker), zap.Error(err))
			}
		}
	}

	for ticker, ts := range touched {
		if err := p.db.RecomputeDailySummary(ticker, ts); err != nil {
			p.log.Error("failed to recompute daily summary",
				zap.String("ticker", ticker), zap.Error(err))
		}
	}

	if len(touched) > 0 {
		p.mu.Lock()
		p.lastSuccess = time.Now()
		p.lastError = ""
		p.mu.Unlock()
	}

	if p.checker != nil {
		if err := p.checker.CheckAll(cycleCtx); err != nil {
			p.log.Error("alert check failed", zap.Error(err))
		}
	}
}

func (p *Poller) recordFailure(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.lastError = err.Error()
	} else {
		p.lastError = "feed returned no quotes"
	}
}
