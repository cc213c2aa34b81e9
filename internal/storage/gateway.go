// Package storage moves encrypted blobs between this machine and the
// account's remote object store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/continu/internal/common"
)

// Gateway is a flat, per-account object store keyed by blob name.
type Gateway interface {
	Upload(ctx context.Context, name string, data []byte) error
	Download(ctx context.Context, name string) ([]byte, error)
	// List returns the names of every blob of the current account.
	List(ctx context.Context) ([]string, error)
}

// Session supplies the identity objects are stored under and, in session
// credential mode, the bearer token presented to the store.
type Session interface {
	UserID(ctx context.Context) (string, error)
	AccessToken(ctx context.Context) (string, error)
}

// TransferError describes a failed storage call. StatusCode is 0 when no
// HTTP response was received.
type TransferError struct {
	Op         string
	Name       string
	StatusCode int
	Err        error
}

func (e *TransferError) Error() string {
	target := e.Op
	if e.Name != "" {
		target += " " + e.Name
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", target, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", target, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// Is maps status codes onto the shared sentinels.
func (e *TransferError) Is(target error) bool {
	switch target {
	case common.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case common.ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	}
	return false
}

// sessionError reports errors that only a new login can fix.
func sessionError(err error) bool {
	return errors.Is(err, common.ErrTokenExpired) ||
		errors.Is(err, common.ErrNotLoggedIn) ||
		errors.Is(err, common.ErrUnauthorized)
}

// transient reports whether a retry may succeed.
func (e *TransferError) transient() bool {
	switch {
	case errors.Is(e.Err, common.ErrTimeout):
		return true
	case e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	case e.StatusCode == 0:
		return !errors.Is(e.Err, context.Canceled) && !sessionError(e.Err)
	}
	return false
}
