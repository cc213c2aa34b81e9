package common

import "sync/atomic"

// RunGuard admits one backup or restore pass at a time. The zero value is
// ready to use.
type RunGuard struct {
	busy atomic.Bool
}

// Acquire claims the guard or returns ErrBackupInProgress when a pass is
// already running. It never blocks.
func (g *RunGuard) Acquire() error {
	if !g.busy.CompareAndSwap(false, true) {
		return ErrBackupInProgress
	}
	return nil
}

func (g *RunGuard) Release() {
	g.busy.Store(false)
}

// Busy reports whether a pass holds the guard.
func (g *RunGuard) Busy() bool {
	return g.busy.Load()
}
