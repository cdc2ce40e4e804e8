package alerts

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"metals-dashboard/internal/models"
)

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func nd(v float64) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.NewFromFloat(v), Valid: true}
}

func tickPrice(v float64) *models.PriceTick {
	return &models.PriceTick{Ticker: "AL", Price: d(v)}
}

func TestEvaluateThreshold(t *testing.T) {
	t.Run("upper bound fires above and not at or below", func(t *testing.T) {
		alert := &models.Alert{Ticker: "AL", Kind: models.AlertKindThreshold, UpperBound: nd(110)}

		fired, msg := Evaluate(alert, tickPrice(112), decimal.Zero)
		assert.True(t, fired)
		assert.Contains(t, msg, "above upper bound")

		fired, _ = Evaluate(alert, tickPrice(109), decimal.Zero)
		assert.False(t, fired)

		fired, _ = Evaluate(alert, tickPrice(110), decimal.Zero)
		assert.False(t, fired)
	})

	t.Run("lower bound fires below", func(t *testing.T) {
		alert := &models.Alert{Ticker: "AL", Kind: models.AlertKindThreshold, LowerBound: nd(95)}

		fired, _ := Evaluate(alert, tickPrice(94), decimal.Zero)
		assert.True(t, fired)

		fired, _ = Evaluate(alert, tickPrice(96), decimal.Zero)
		assert.False(t, fired)
	})

	t.Run("bounds are independent", func(t *testing.T) {
		alert := &models.Alert{
			Ticker:     "AL",
			Kind:       models.AlertKindThreshold,
			UpperBound: nd(110),
			LowerBound: nd(95),
		}

		fired, _ := Evaluate(alert, tickPrice(100), decimal.Zero)
		assert.False(t, fired)

		fired, _ = Evaluate(alert, tickPrice(111), decimal.Zero)
		assert.True(t, fired)

		fired, _ = Evaluate(alert, tickPrice(94), decimal.Zero)
		assert.True(t, fired)
	})

	t.Run("no bounds never fires", func(t *testing.T) {
		alert := &models.Alert{Ticker: "AL", Kind: models.AlertKindThreshold}

		fired, _ := Evaluate(alert, tickPrice(1e9), decimal.Zero)
		assert.False(t, fired)
	})
}

func TestEvaluatePercentChange(t *testing.T) {
	t.Run("positive magnitude fires on rallies only", func(t *testing.T) {
		alert := &models.Alert{Ticker: "AL", Kind: models.AlertKindPercentChange, ChangePct: nd(5)}

		// +6% from previous close of 100.
		fired, msg := Evaluate(alert, tickPrice(106), d(100))
		assert.True(t, fired)
		assert.Contains(t, msg, "previous close")

		// +4% does not clear the bar.
		fired, _ = Evaluate(alert, tickPrice(104), d(100))
		assert.False(t, fired)

		// -10% moves the wrong way for a positive configuration.
		fired, _ = Evaluate(alert, tickPrice(90), d(100))
		assert.False(t, fired)
	})

	t.Run("negative magnitude fires on drops only", func(t *testing.T) {
		alert := &models.Alert{Ticker: "AL", Kind: models.AlertKindPercentChange, ChangePct: nd(-5)}

		fired, _ := Evaluate(alert, tickPrice(94), d(100))
		assert.True(t, fired)

		fired, _ = Evaluate(alert, tickPrice(96), d(100))
		assert.False(t, fired)

		fired, _ = Evaluate(alert, tickPrice(110), d(100))
		assert.False(t, fired)
	})

	t.Run("zero previous close never triggers", func(t *testing.T) {
		alert := &models.Alert{Ticker: "AL", Kind: models.AlertKindPercentChange, ChangePct: nd(5)}

		fired, _ := Evaluate(alert, tickPrice(106), decimal.Zero)
		assert.False(t, fired)
	})

	t.Run("missing change_pct never triggers", func(t *testing.T) {
		alert := &models.Alert{Ticker: "AL", Kind: models.AlertKindPercentChange}

		fired, _ := Evaluate(alert, tickPrice(200), d(100))
		assert.False(t, fired)
	})
}

func TestEvaluateUnknownKind(t *testing.T) {
	alert := &models.Alert{Ticker: "AL", Kind: "VOLUME_SPIKE"}

	fired, _ := Evaluate(alert, tickPrice(100), d(100))
	assert.False(t, fired)
}
