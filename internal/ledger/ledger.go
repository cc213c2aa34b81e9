// Package ledger records which blobs were uploaded and when, in the backups
// table of the Supabase project.
package ledger

import (
	"context"
	"time"
)

// Entry is one uploaded blob.
type Entry struct {
	RunID      string
	UserID     string
	FileName   string
	FileSize   int64
	BackupDate time.Time
}

// Recorder persists entries. List returns the entries of userID, newest
// first.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
	List(ctx context.Context, userID string) ([]Entry, error)
}

// Nop discards entries. It is used when no ledger is configured.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error           { return nil }
func (Nop) List(context.Context, string) ([]Entry, error) { return nil, nil }
