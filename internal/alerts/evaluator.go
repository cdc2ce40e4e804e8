package alerts

import (
	"fmt"

	"github.com/shopspring/decimal"

	"metals-dashboard/internal/models"
)

// Evaluate decides whether an alert fires against the latest tick. It is a
// pure function: persistence of the trigger is the caller's decision.
//
// Threshold alerts are direction-aware: an upper bound fires when the price
// moves above it, a lower bound when the price moves below it; either may be
// configured independently. Percent-change alerts compare the move from
// previousClose against the configured magnitude, in the direction of its
// sign. A zero previous close never triggers.
func Evaluate(alert *models.Alert, latest *models.PriceTick, previousClose decimal.Decimal) (bool, string) {
	switch alert.Kind {
	case models.AlertKindThreshold:
		return evaluateThreshold(alert, latest)
	case models.AlertKindPercentChange:
		return evaluatePercentChange(alert, latest, previousClose)
	default:
		return false, ""
	}
}

func evaluateThreshold(alert *models.Alert, latest *models.PriceTick) (bool, string) {
	if alert.UpperBound.Valid && latest.Price.GreaterThan(alert.UpperBound.Decimal) {
		return true, fmt.Sprintf("%s price %s above upper bound %s",
			alert.Ticker, latest.Price, alert.UpperBound.Decimal)
	}
	if alert.LowerBound.Valid && latest.Price.LessThan(alert.LowerBound.Decimal) {
		return true, fmt.Sprintf("%s price %s below lower bound %s",
			alert.Ticker, latest.Price, alert.LowerBound.Decimal)
	}
	return false, ""
}

func evaluatePercentChange(alert *models.Alert, latest *models.PriceTick, previousClose decimal.Decimal) (bool, string) {
	if !alert.ChangePct.Valid || previousClose.IsZero() {
		return false, ""
	}

	hundred := decimal.NewFromInt(100)
	change := latest.Price.Sub(previousClose).Div(previousClose).Mul(hundred)
	configured := alert.ChangePct.Decimal

	fired := false
	if configured.IsPositive() {
		fired = change.GreaterThan(configured)
	} else if configured.IsNegative() {
		fired = change.LessThan(configured)
	}
	if !fired {
		return false, ""
	}
	return true, fmt.Sprintf("%s moved %s%% from previous close %s",
		alert.Ticker, change.Round(2), previousClose)
}
