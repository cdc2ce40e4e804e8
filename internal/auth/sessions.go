package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"metals-dashboard/internal/database"
	"metals-dashboard/internal/models"
)

const tokenLen = 32

// DefaultSessionTTL is the fixed session lifetime unless configured.
const DefaultSessionTTL = 24 * time.Hour

// SessionManager issues, validates and expires session tokens. Login
// verification is delegated to the CredentialStore.
type SessionManager struct {
	db    *database.DB
	creds *CredentialStore
	ttl   time.Duration

	// now is swappable so expiry can be tested without sleeping.
	now func() time.Time
}

// NewSessionManager creates a SessionManager with the given TTL.
func NewSessionManager(db *database.DB, creds *CredentialStore, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{
		db:    db,
		creds: creds,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Login verifies the credentials and mints a new session token. Every login
// also sweeps expired sessions as lazy housekeeping.
func (m *SessionManager) Login(username, password string) (string, error) {
	ok, err := m.creds.Verify(username, password)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrAuthFailed
	}

	user, err := m.db.GetUserByUsername(username)
	if err != nil {
		return "", err
	}

	token, err := mintToken()
	if err != nil {
		return "", err
	}

	now := m.now()
	session := &models.UserSession{
		Token:     token,
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.db.CreateSession(session); err != nil {
		return "", err
	}

	if err := m.db.UpdateUserLastLogin(user.ID, now); err != nil {
		return "", err
	}
	if _, err := m.SweepExpired(); err != nil {
		return "", err
	}

	return token, nil
}

// Validate resolves a token to its user ID. An expired session is revoked as
// a side effect and reported as ErrSessionExpired; unknown or logged-out
// tokens report ErrSessionNotFound.
func (m *SessionManager) Validate(token string) (string, error) {
	session, err := m.db.GetSession(token)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return "", ErrSessionNotFound
		}
		return "", err
	}

	if session.Revoked {
		return "", ErrSessionNotFound
	}
	if !m.now().Before(session.ExpiresAt) {
		if err := m.db.RevokeSession(token); err != nil {
			return "", err
		}
		return "", ErrSessionExpired
	}

	return session.UserID, nil
}

// Logout revokes a session. Idempotent: already-terminal tokens are fine.
func (m *SessionManager) Logout(token string) error {
	return m.db.RevokeSession(token)
}

// SweepExpired purges sessions past expiry and revoked ones. Active sessions
// are never removed.
func (m *SessionManager) SweepExpired() (int64, error) {
	return m.db.DeleteExpiredSessions(m.now())
}

func mintToken() (string, error) {
	buf := make([]byte, tokenLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to mint session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
