package cli

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/continu/internal/logging"
	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// supervisor runs the background service and restarts it if it panics or
// returns early.
func (a *App) supervisor() *suture.Supervisor {
	logger := a.slog
	if logger == nil {
		logger = logging.Discard().Slog()
	}
	hook := (&sutureslog.Handler{Logger: logger}).MustHook()

	sup := suture.New("continu", suture.Spec{
		EventHook:        hook,
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		Timeout:          10 * time.Second,
	})
	sup.Add(a.service)
	return sup
}

// Daemon runs the scheduler until ctx is cancelled.
func (a *App) Daemon(ctx context.Context) error {
	a.log.Info(ctx, "Backup service running, press Ctrl+C to stop")
	err := a.supervisor().Serve(ctx)
	if isShutdown(err) {
		a.log.Info(ctx, "Backup service stopped")
		return nil
	}
	return err
}

func isShutdown(err error) bool {
	return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
