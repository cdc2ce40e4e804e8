package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"metals-dashboard/internal/models"
)

// CreateAlert inserts a new alert.
func (db *DB) CreateAlert(a *models.Alert) error {
	query := `
		INSERT INTO alerts (id, ticker, kind, upper_bound, lower_bound, change_pct, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	_, err := db.conn.Exec(query,
		a.ID, a.Ticker, a.Kind,
		nullDecimal(a.UpperBound), nullDecimal(a.LowerBound), nullDecimal(a.ChangePct),
		a.Active, now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	a.CreatedAt = now
	return nil
}

// GetAlertByID retrieves an alert by ID.
func (db *DB) GetAlertByID(id string) (*models.Alert, error) {
	query := `
		SELECT id, ticker, kind, upper_bound, lower_bound, change_pct, active, created_at, triggered_at
		FROM alerts
		WHERE id = ?
	`
	rows, err := db.conn.Query(query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	alerts, err := scanAlerts(rows, nil)
	if err != nil {
		return nil, err
	}
	if len(alerts) == 0 {
		return nil, fmt.Errorf("alert not found: %s: %w", id, ErrNotFound)
	}
	return alerts[0], nil
}

// GetActiveAlerts retrieves active alerts, optionally filtered by ticker
// (empty ticker means all).
func (db *DB) GetActiveAlerts(ticker string) ([]*models.Alert, error) {
	if ticker != "" {
		query := `
			SELECT id, ticker, kind, upper_bound, lower_bound, change_pct, active, created_at, triggered_at
			FROM alerts
			WHERE active = 1 AND ticker = ?
			ORDER BY created_at DESC
		`
		return scanAlerts(db.conn.Query(query, ticker))
	}
	query := `
		SELECT id, ticker, kind, upper_bound, lower_bound, change_pct, active, created_at, triggered_at
		FROM alerts
		WHERE active = 1
		ORDER BY created_at DESC
	`
	return scanAlerts(db.conn.Query(query))
}

// MarkAlertTriggered records the trigger time and deactivates the alert. The
// guard clause makes the transition fire at most once per activation cycle;
// it reports whether this call won the transition.
func (db *DB) MarkAlertTriggered(id string, at time.Time) (bool, error) {
	query := `
		UPDATE alerts SET triggered_at = ?, active = 0
		WHERE id = ? AND active = 1 AND triggered_at IS NULL
	`
	result, err := db.conn.Exec(query, at.UTC().Unix(), id)
	if err != nil {
		return false, fmt.Errorf("failed to mark alert triggered: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// DeactivateAlert manually clears an active alert.
func (db *DB) DeactivateAlert(id string) error {
	result, err := db.conn.Exec(`UPDATE alerts SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate alert: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("alert not found: %s: %w", id, ErrNotFound)
	}
	return nil
}

// ReactivateAlert re-arms a cleared alert for a new activation cycle.
func (db *DB) ReactivateAlert(id string) error {
	result, err := db.conn.Exec(`UPDATE alerts SET active = 1, triggered_at = NULL WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to reactivate alert: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("alert not found: %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanAlerts(rows *sql.Rows, err error) ([]*models.Alert, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		var (
			a                       models.Alert
			upper, lower, changePct sql.NullString
			active                  int
			createdAt               int64
			triggeredAt             sql.NullInt64
		)
		err := rows.Scan(&a.ID, &a.Ticker, &a.Kind, &upper, &lower, &changePct, &active, &createdAt, &triggeredAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}

		a.UpperBound = parseNullDecimal(upper)
		a.LowerBound = parseNullDecimal(lower)
		a.ChangePct = parseNullDecimal(changePct)
		a.Active = active == 1
		a.CreatedAt = time.Unix(createdAt, 0).UTC()
		if triggeredAt.Valid {
			t := time.Unix(triggeredAt.Int64, 0).UTC()
			a.TriggeredAt = &t
		}

		alerts = append(alerts, &a)
	}
	return alerts, rows.Err()
}

func nullDecimal(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return nil
	}
	return d.Decimal
}

func parseNullDecimal(s sql.NullString) decimal.NullDecimal {
	if !s.Valid {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}
