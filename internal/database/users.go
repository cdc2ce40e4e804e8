package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"metals-dashboard/internal/models"
)

// CreateUser inserts a new user row.
func (db *DB) CreateUser(u *models.User) error {
	query := `
		INSERT INTO users (id, username, password_hash, salt, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	_, err := db.conn.Exec(query, u.ID, u.Username, u.PasswordHash, u.Salt, u.Role, now.Unix())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("username %s already exists: %w", u.Username, ErrDuplicateKey)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	u.CreatedAt = now
	return nil
}

// GetUserByUsername retrieves a user by username.
func (db *DB) GetUserByUsername(username string) (*models.User, error) {
	query := `
		SELECT id, username, password_hash, salt, role, created_at, last_login
		FROM users
		WHERE username = ?
	`
	return scanUser(db.conn.QueryRow(query, username), "user "+username)
}

// GetUserByID retrieves a user by ID.
func (db *DB) GetUserByID(id string) (*models.User, error) {
	query := `
		SELECT id, username, password_hash, salt, role, created_at, last_login
		FROM users
		WHERE id = ?
	`
	return scanUser(db.conn.QueryRow(query, id), "user "+id)
}

// UpdateUserPassword rotates a user's password hash and salt.
func (db *DB) UpdateUserPassword(id, passwordHash, salt string) error {
	result, err := db.conn.Exec(
		`UPDATE users SET password_hash = ?, salt = ? WHERE id = ?`,
		passwordHash, salt, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("user not found: %s: %w", id, ErrNotFound)
	}
	return nil
}

// UpdateUserLastLogin records a successful login time.
func (db *DB) UpdateUserLastLogin(id string, at time.Time) error {
	_, err := db.conn.Exec(`UPDATE users SET last_login = ? WHERE id = ?`, at.UTC().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

func scanUser(row *sql.Row, desc string) (*models.User, error) {
	var (
		u         models.User
		createdAt int64
		lastLogin sql.NullInt64
	)
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Salt, &u.Role, &createdAt, &lastLogin)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s: %w", desc, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	if lastLogin.Valid {
		t := time.Unix(lastLogin.Int64, 0).UTC()
		u.LastLogin = &t
	}
	return &u, nil
}
