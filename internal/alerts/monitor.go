package alerts

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"metals-dashboard/internal/database"
	"metals-dashboard/internal/models"
)

// EventPublisher publishes triggered-alert events for downstream consumers.
type EventPublisher interface {
	PublishAlertTriggered(ctx context.Context, alert *models.Alert, latest *models.PriceTick, message string) error
}

// Monitor scans stored price history against active alerts. It runs after
// each feed poll cycle rather than on its own timer.
type Monitor struct {
	db        *database.DB
	publisher EventPublisher
	log       *zap.Logger
}

// NewMonitor creates a Monitor. publisher may be nil when event publishing
// is not configured.
func NewMonitor(db *database.DB, publisher EventPublisher, log *zap.Logger) *Monitor {
	return &Monitor{db: db, publisher: publisher, log: log}
}

// CheckAll evaluates every active alert against the latest stored price for
// its ticker. Evaluation failures for one alert never abort the scan.
func (m *Monitor) CheckAll(ctx context.Context) error {
	active, err := m.db.GetActiveAlerts("")
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, alert := range active {
		latest, err := m.db.GetLatestPrice(alert.Ticker)
		if err != nil {
			if !errors.Is(err, database.ErrNotFound) {
				m.log.Warn("failed to load latest price",
					zap.String("ticker", alert.Ticker), zap.Error(err))
			}
			continue
		}

		previousClose, err := m.db.GetPreviousClose(alert.Ticker, now)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			m.log.Warn("failed to load previous close",
				zap.String("ticker", alert.Ticker), zap.Error(err))
			continue
		}

		fired, message := Evaluate(alert, latest, previousClose)
		if !fired {
			continue
		}

		won, err := m.db.MarkAlertTriggered(alert.ID, now)
		if err != nil {
			m.log.Error("failed to mark alert triggered",
				zap.String("alert_id", alert.ID), zap.Error(err))
			continue
		}
		if !won {
			// Another cycle already claimed this activation.
			continue
		}

		m.log.Info("alert triggered",
			zap.String("alert_id", alert.ID),
			zap.String("ticker", alert.Ticker),
			zap.String("kind", alert.Kind),
			zap.String("price", latest.Price.String()),
		)

		if m.publisher != nil {
			if err := m.publisher.PublishAlertTriggered(ctx, alert, latest, message); err != nil {
				m.log.Warn("failed to publish alert event",
					zap.String("alert_id", alert.ID), zap.Error(err))
			}
		}
	}

	return nil
}
