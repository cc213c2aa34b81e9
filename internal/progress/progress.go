// Package progress accounts for the files and bytes of one backup run.
package progress

import (
	"fmt"
	"sync"
)

// Snapshot is an immutable view of a run's counters.
type Snapshot struct {
	TotalFiles     int
	CompletedFiles int
	TotalBytes     uint64
	ProcessedBytes uint64
}

// Percentage is ProcessedBytes/TotalBytes*100, or 0 when TotalBytes is 0.
func (s Snapshot) Percentage() float64 {
	if s.TotalBytes == 0 {
		return 0
	}
	return float64(s.ProcessedBytes) / float64(s.TotalBytes) * 100
}

func (s Snapshot) String() string {
	return fmt.Sprintf("Progress: %.2f%% - %d/%d files completed. %d/%d bytes processed.",
		s.Percentage(), s.CompletedFiles, s.TotalFiles, s.ProcessedBytes, s.TotalBytes)
}

// Observer is notified after every Record.
type Observer func(Snapshot)

// Tracker holds the counters of one run. Counters only grow; Record must be
// called once per successfully processed file.
type Tracker struct {
	mu       sync.Mutex
	s        Snapshot
	observer Observer
}

// New starts a run with zero completed files and bytes. observer may be nil.
func New(totalFiles int, totalBytes uint64, observer Observer) *Tracker {
	return &Tracker{
		s:        Snapshot{TotalFiles: totalFiles, TotalBytes: totalBytes},
		observer: observer,
	}
}

// Record accounts for one finished file of fileBytes bytes. Neither counter
// ever exceeds its total.
func (t *Tracker) Record(fileBytes uint64) {
	t.mu.Lock()
	if t.s.CompletedFiles < t.s.TotalFiles {
		t.s.CompletedFiles++
	}
	if left := t.s.TotalBytes - t.s.ProcessedBytes; fileBytes > left {
		fileBytes = left
	}
	t.s.ProcessedBytes += fileBytes
	s := t.s
	t.mu.Unlock()

	if t.observer != nil {
		t.observer(s)
	}
}

func (t *Tracker) Percentage() float64 {
	return t.Snapshot().Percentage()
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.s
}
