package models

import "errors"

var (
	// ErrUnauthenticated is returned when an operation requires a signed-in user.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrConflict is returned when a username or email is already taken.
	ErrConflict = errors.New("user already exists")
	// ErrInvalidCredentials is returned for an unknown user or wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnverified is returned when the account email has not been verified.
	ErrUnverified = errors.New("account not verified")
	// ErrInvalidToken is returned for an unknown or already redeemed verification token.
	ErrInvalidToken = errors.New("invalid verification token")
	// ErrInvalidUpload is returned for an avatar with a disallowed extension.
	ErrInvalidUpload = errors.New("invalid upload")
	// ErrInvalidInput is returned when form input fails validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when a row does not exist or is not visible to the caller.
	ErrNotFound = errors.New("not found")
)
