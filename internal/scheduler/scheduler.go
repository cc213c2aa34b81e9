// Package scheduler runs backup passes in the background while a session
// is active.
package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/continu/internal/backup"
	"github.com/dmitrijs2005/continu/internal/common"
	"github.com/dmitrijs2005/continu/internal/logging"
	"github.com/dmitrijs2005/continu/internal/settings"
)

// DefaultIdleInterval is the poll period while nobody is logged in.
const DefaultIdleInterval = 60 * time.Second

type Status int32

const (
	StatusStopped Status = iota
	StatusIdle
	StatusActive
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusActive:
		return "active"
	default:
		return "stopped"
	}
}

type SessionChecker interface {
	IsActive(ctx context.Context) bool
}

type FrequencySource interface {
	ResolveFrequency(ctx context.Context) settings.Frequency
}

type BackupRunner interface {
	Run(ctx context.Context) (backup.Result, error)
}

type Options struct {
	Session      SessionChecker
	Frequency    FrequencySource
	Backup       BackupRunner
	IdleInterval time.Duration
}

// Service is the scheduler loop. It implements suture.Service.
type Service struct {
	opts   Options
	log    logging.Logger
	sleep  func(ctx context.Context, d time.Duration) error
	status atomic.Int32
}

func New(opts Options, log logging.Logger) *Service {
	if opts.IdleInterval <= 0 {
		opts.IdleInterval = DefaultIdleInterval
	}
	return &Service{opts: opts, log: log, sleep: sleep}
}

// Status is the loop's state as of its last transition.
func (s *Service) Status() Status {
	return Status(s.status.Load())
}

// Serve polls the session. While active it runs a backup and sleeps for the
// configured frequency; otherwise it sleeps for the idle interval. A logout
// is noticed at the next wake-up. Serve returns only when ctx is done.
func (s *Service) Serve(ctx context.Context) error {
	ctx = logging.FileOnly(ctx)
	defer s.status.Store(int32(StatusStopped))

	s.log.Info(ctx, "Backup service started")
	announced := false
	for {
		var wait time.Duration

		if s.opts.Session.IsActive(ctx) {
			s.status.Store(int32(StatusActive))
			announced = false
			wait = s.opts.Frequency.ResolveFrequency(ctx).Interval()

			s.runOnce(ctx)
			if err := ctx.Err(); err != nil {
				return err
			}
			s.log.Info(ctx, "Next backup in "+wait.String())
		} else {
			s.status.Store(int32(StatusIdle))
			if !announced {
				s.log.Info(ctx, "Please log in to start the backup service.")
				announced = true
			}
			wait = s.opts.IdleInterval
		}

		if err := s.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (s *Service) runOnce(ctx context.Context) {
	_, err := s.opts.Backup.Run(ctx)
	switch {
	case err == nil:
	case errors.Is(err, common.ErrBackupInProgress):
		s.log.Info(ctx, "A backup is already running, skipping this pass")
	case ctx.Err() != nil:
	default:
		s.log.Error(ctx, "Scheduled backup failed", "err", err)
	}
}

func (s *Service) String() string { return "backup-scheduler" }

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
