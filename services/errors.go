package services

import "errors"

// Common service-level errors
var (
	// Auth errors
	ErrInvalidCredentials = errors.New("invalid login or password")
	ErrUserExists         = errors.New("username or email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrUnauthorized       = errors.New("unauthorized access")

	// Drive linking errors
	ErrDriveDisabled      = errors.New("google drive is not configured")
	ErrInvalidAuthCode    = errors.New("invalid authorization code")
	ErrNoRefreshToken     = errors.New("no refresh token available")
	ErrTokenRefreshFailed = errors.New("failed to refresh token")

	// Record errors
	ErrRecordNotFound = errors.New("record not found")
)
