package auth

import (
	"errors"
	"fmt"
	"unicode"

	"github.com/google/uuid"

	"metals-dashboard/internal/database"
	"metals-dashboard/internal/models"
)

const minPasswordLen = 8

// CredentialStore hashes and verifies user passwords. It owns no state
// beyond the user rows in the database.
type CredentialStore struct {
	db *database.DB
}

// NewCredentialStore creates a new CredentialStore.
func NewCredentialStore(db *database.DB) *CredentialStore {
	return &CredentialStore{db: db}
}

// Register creates a new user and returns its ID. The password is stored as
// an argon2id digest with a per-user random salt, never in a reversible form.
func (s *CredentialStore) Register(username, password string) (string, error) {
	if err := validatePassword(password); err != nil {
		return "", err
	}

	salt, err := GenerateSalt()
	if err != nil {
		return "", err
	}
	hash, err := HashPassword(password, salt)
	if err != nil {
		return "", err
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Salt:         salt,
		Role:         models.RoleUser,
	}
	if err := s.db.CreateUser(user); err != nil {
		if errors.Is(err, database.ErrDuplicateKey) {
			return "", fmt.Errorf("%s: %w", username, ErrDuplicateUsername)
		}
		return "", err
	}
	return user.ID, nil
}

// Verify reports whether the username/password pair is valid. An unknown
// username returns false rather than an error, so callers cannot distinguish
// missing accounts from wrong passwords.
func (s *CredentialStore) Verify(username, password string) (bool, error) {
	user, err := s.db.GetUserByUsername(username)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return VerifyPassword(password, user.Salt, user.PasswordHash)
}

// ChangePassword rotates a user's password after verifying the old one.
// A fresh salt is generated on every change.
func (s *CredentialStore) ChangePassword(userID, oldPassword, newPassword string) error {
	user, err := s.db.GetUserByID(userID)
	if err != nil {
		return err
	}

	ok, err := VerifyPassword(oldPassword, user.Salt, user.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAuthFailed
	}

	if err := validatePassword(newPassword); err != nil {
		return err
	}

	salt, err := GenerateSalt()
	if err != nil {
		return err
	}
	hash, err := HashPassword(newPassword, salt)
	if err != nil {
		return err
	}
	return s.db.UpdateUserPassword(userID, hash, salt)
}

// validatePassword enforces minimum length and character variety.
func validatePassword(password string) error {
	if len(password) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters: %w", minPasswordLen, ErrWeakPassword)
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return fmt.Errorf("password must contain letters and digits: %w", ErrWeakPassword)
	}
	return nil
}
