package database

import (
	"database/sql"
	"fmt"
	"time"

	"metals-dashboard/internal/models"
)

// CreateSession inserts a new session row.
func (db *DB) CreateSession(s *models.UserSession) error {
	query := `
		INSERT INTO user_sessions (token, user_id, created_at, expires_at, revoked)
		VALUES (?, ?, ?, ?, 0)
	`
	_, err := db.conn.Exec(query, s.Token, s.UserID, s.CreatedAt.UTC().Unix(), s.ExpiresAt.UTC().Unix())
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by token.
func (db *DB) GetSession(token string) (*models.UserSession, error) {
	query := `
		SELECT token, user_id, created_at, expires_at, revoked
		FROM user_sessions
		WHERE token = ?
	`
	var (
		s                    models.UserSession
		createdAt, expiresAt int64
		revoked              int
	)
	err := db.conn.QueryRow(query, token).Scan(&s.Token, &s.UserID, &createdAt, &expiresAt, &revoked)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	s.CreatedAt = time.Unix(createdAt, 0).UTC()
	s.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	s.Revoked = revoked == 1
	return &s, nil
}

// RevokeSession marks a session as logged out. Idempotent: revoking an
// unknown or already-revoked token is not an error.
func (db *DB) RevokeSession(token string) error {
	_, err := db.conn.Exec(`UPDATE user_sessions SET revoked = 1 WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions purges sessions whose expiry has passed, along with
// revoked ones. Sessions still live at the given instant are untouched.
func (db *DB) DeleteExpiredSessions(now time.Time) (int64, error) {
	result, err := db.conn.Exec(
		`DELETE FROM user_sessions WHERE expires_at <= ? OR revoked = 1`,
		now.UTC().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}
