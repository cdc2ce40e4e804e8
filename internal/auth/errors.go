package auth

import "errors"

var (
	// ErrAuthFailed means the supplied credentials did not verify.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrSessionExpired means the token was valid once but its TTL elapsed.
	ErrSessionExpired = errors.New("session expired")

	// ErrSessionNotFound means the token is unknown or was logged out.
	ErrSessionNotFound = errors.New("session not found")

	// ErrDuplicateUsername means the username is already registered.
	ErrDuplicateUsername = errors.New("username already exists")

	// ErrWeakPassword means the password failed the validation rules.
	ErrWeakPassword = errors.New("password too weak")
)
