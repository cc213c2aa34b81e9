// Package runs keeps the history of backup and restore runs.
package runs

import (
	"context"
	"time"
)

type Kind string

const (
	KindBackup  Kind = "backup"
	KindRestore Kind = "restore"
)

type Status string

const (
	StatusRunning Status = "running"
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
)

// Run is one row of the history.
type Run struct {
	ID         string
	Kind       Kind
	Status     Status
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
	Files      int
	Bytes      uint64
	Failed     int
	Error      string
}

// Outcome is what Finish records.
type Outcome struct {
	Status Status
	Files  int
	Bytes  uint64
	Failed int
	Err    error
}

// Repository persists runs. Last returns common.ErrNotFound when no run of
// kind has finished yet.
type Repository interface {
	Start(ctx context.Context, id string, kind Kind, at time.Time) error
	Finish(ctx context.Context, id string, o Outcome, at time.Time) error
	Last(ctx context.Context, kind Kind) (*Run, error)
	List(ctx context.Context, limit int) ([]Run, error)
}
