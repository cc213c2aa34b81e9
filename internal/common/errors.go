// Package common defines sentinel errors shared by the continu packages.
// Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Lookup errors.
	ErrNotFound = errors.New("not found")

	// Session errors.
	ErrNotLoggedIn  = errors.New("not logged in")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTokenExpired = errors.New("token expired")
	ErrInvalidToken = errors.New("invalid token")
	ErrOSMismatch   = errors.New("os details do not match the registered configuration")

	// Backup pipeline errors.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrBackupInProgress    = errors.New("another backup or restore is already running")

	// Transport errors.
	ErrTimeout = errors.New("request timed out")
)
