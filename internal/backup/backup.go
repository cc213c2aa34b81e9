// Package backup encrypts the resolved configuration files and the package
// manifest and uploads them through a storage.Gateway.
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/continu/internal/common"
	"github.com/dmitrijs2005/continu/internal/filex"
	"github.com/dmitrijs2005/continu/internal/ledger"
	"github.com/dmitrijs2005/continu/internal/logging"
	"github.com/dmitrijs2005/continu/internal/platform"
	"github.com/dmitrijs2005/continu/internal/progress"
	"github.com/dmitrijs2005/continu/internal/statedb/runs"
	"github.com/dmitrijs2005/continu/internal/storage"
	"github.com/google/uuid"
)

// Resolver yields the platform profile and the files to back up.
type Resolver interface {
	Profile() (platform.Profile, error)
	ResolveFiles(ctx context.Context) ([]string, error)
}

type Encrypter interface {
	EncryptBlob(plaintext []byte) ([]byte, error)
}

// Identity names the account the uploaded blobs belong to.
type Identity interface {
	UserID(ctx context.Context) (string, error)
}

type Options struct {
	Gateway   storage.Gateway
	Resolver  Resolver
	Encrypter Encrypter

	// Optional collaborators.
	Ledger   ledger.Recorder
	Identity Identity
	Runs     runs.Repository
	Runner   platform.CommandRunner
	Guard    *common.RunGuard
	Observer progress.Observer
}

// Result summarises a finished pass.
type Result struct {
	RunID    string
	Progress progress.Snapshot
	Skipped  []string
	Manifest bool
}

type Orchestrator struct {
	opts Options
	log  logging.Logger
	now  func() time.Time
}

func New(opts Options, log logging.Logger) *Orchestrator {
	if opts.Ledger == nil {
		opts.Ledger = ledger.Nop{}
	}
	if opts.Runner == nil {
		opts.Runner = platform.ExecRunner
	}
	if opts.Guard == nil {
		opts.Guard = &common.RunGuard{}
	}
	return &Orchestrator{opts: opts, log: log, now: time.Now}
}

// Run performs one backup pass. Missing files are logged and skipped; the
// first failed upload aborts the rest of the pass.
func (o *Orchestrator) Run(ctx context.Context) (res Result, err error) {
	if err := o.opts.Guard.Acquire(); err != nil {
		return Result{}, err
	}
	defer o.opts.Guard.Release()

	res.RunID = uuid.NewString()
	o.startRun(ctx, res.RunID)
	defer func() {
		o.finishRun(ctx, res, err)
	}()

	o.log.Info(ctx, "Starting system backup...")

	files, err := o.opts.Resolver.ResolveFiles(ctx)
	if err != nil {
		o.log.Error(ctx, "Backup failed", "err", err)
		return res, err
	}

	// Progress counts the sizes seen here, so a file that changes while the
	// run is in flight cannot push processed bytes past the total.
	sizes := make([]uint64, len(files))
	var total uint64
	for i, f := range files {
		sizes[i] = filex.Size(f)
		total += sizes[i]
	}

	tracker := progress.New(len(files), total, func(s progress.Snapshot) {
		o.log.Info(ctx, s.String())
		if o.opts.Observer != nil {
			o.opts.Observer(s)
		}
	})
	defer func() { res.Progress = tracker.Snapshot() }()

	userID := o.userID(ctx)

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			o.log.Warn(ctx, "File not found: "+path)
			res.Skipped = append(res.Skipped, path)
			continue
		}
		if err != nil {
			o.log.Error(ctx, "Backup failed", "path", path, "err", err)
			return res, fmt.Errorf("read %s: %w", path, err)
		}

		name := filepath.Base(path)
		if err := o.upload(ctx, name, data); err != nil {
			o.log.Error(ctx, "Backup failed", "path", path, "err", err)
			return res, err
		}
		tracker.Record(sizes[i])

		o.record(ctx, ledger.Entry{
			RunID:      res.RunID,
			UserID:     userID,
			FileName:   name,
			FileSize:   int64(len(data)),
			BackupDate: o.now().UTC(),
		})
	}

	o.log.Info(ctx, "Backing up installed packages...")
	if err := o.backupManifest(ctx); err != nil {
		o.log.Error(ctx, "Backup failed", "err", err)
		return res, err
	}
	res.Manifest = true

	o.log.Info(ctx, "Backup completed successfully.")
	return res, nil
}

func (o *Orchestrator) upload(ctx context.Context, name string, data []byte) error {
	blob, err := o.opts.Encrypter.EncryptBlob(data)
	if err != nil {
		return fmt.Errorf("encrypt %s: %w", name, err)
	}
	return o.opts.Gateway.Upload(ctx, name, blob)
}

func (o *Orchestrator) backupManifest(ctx context.Context) error {
	p, err := o.opts.Resolver.Profile()
	if err != nil {
		return err
	}
	out, err := o.opts.Runner(ctx, p.PackageCommand())
	if err != nil {
		return fmt.Errorf("capture package manifest: %w", err)
	}
	return o.upload(ctx, p.ManifestName(), out)
}

func (o *Orchestrator) userID(ctx context.Context) string {
	if o.opts.Identity == nil {
		return ""
	}
	id, err := o.opts.Identity.UserID(ctx)
	if err != nil {
		o.log.Debug(ctx, "No user id for ledger records", "err", err)
		return ""
	}
	return id
}

// record writes a ledger entry. The ledger is informational; failures are
// logged and the pass carries on.
func (o *Orchestrator) record(ctx context.Context, e ledger.Entry) {
	if err := o.opts.Ledger.Record(ctx, e); err != nil {
		o.log.Warn(ctx, "Failed to record backup metadata", "file", e.FileName, "err", err)
	}
}

func (o *Orchestrator) startRun(ctx context.Context, id string) {
	if o.opts.Runs == nil {
		return
	}
	if err := o.opts.Runs.Start(ctx, id, runs.KindBackup, o.now()); err != nil {
		o.log.Warn(ctx, "Failed to record run start", "err", err)
	}
}

func (o *Orchestrator) finishRun(ctx context.Context, res Result, err error) {
	if o.opts.Runs == nil {
		return
	}
	out := runs.Outcome{
		Status: runs.StatusOK,
		Files:  res.Progress.CompletedFiles,
		Bytes:  res.Progress.ProcessedBytes,
		Err:    err,
	}
	if err != nil {
		out.Status = runs.StatusFailed
		out.Failed = 1
	}
	// the run context may already be cancelled
	if ferr := o.opts.Runs.Finish(context.WithoutCancel(ctx), res.RunID, out, o.now()); ferr != nil {
		o.log.Warn(ctx, "Failed to record run result", "err", ferr)
	}
}
