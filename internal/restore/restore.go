// Package restore downloads the account's blobs, decrypts them and writes
// them back to the paths the backup side read them from.
package restore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/continu/internal/backup"
	"github.com/dmitrijs2005/continu/internal/common"
	"github.com/dmitrijs2005/continu/internal/filex"
	"github.com/dmitrijs2005/continu/internal/logging"
	"github.com/dmitrijs2005/continu/internal/statedb/runs"
	"github.com/dmitrijs2005/continu/internal/storage"
	"github.com/google/uuid"
)

type Decrypter interface {
	DecryptBlob(blob []byte) ([]byte, error)
}

type Options struct {
	Gateway   storage.Gateway
	Resolver  backup.Resolver
	Decrypter Decrypter

	// ManifestPath receives the package manifest. Empty skips it.
	ManifestPath string

	Runs  runs.Repository
	Guard *common.RunGuard
}

// Result counts blobs by outcome.
type Result struct {
	RunID    string
	Restored int
	Failed   int
	Skipped  int
	Bytes    uint64
}

type Orchestrator struct {
	opts Options
	log  logging.Logger
	now  func() time.Time
}

func New(opts Options, log logging.Logger) *Orchestrator {
	if opts.Guard == nil {
		opts.Guard = &common.RunGuard{}
	}
	return &Orchestrator{opts: opts, log: log, now: time.Now}
}

// Targets maps blob names to local paths, using the final path segment as
// the backup side does. When two resolved files share a name the later one
// wins, matching the object the backup pass left in storage.
func Targets(files []string, manifestName, manifestPath string) map[string]string {
	m := make(map[string]string, len(files)+1)
	for _, f := range files {
		m[filepath.Base(f)] = f
	}
	if manifestPath != "" {
		m[manifestName] = manifestPath
	}
	return m
}

// Run restores every known blob. Per-blob failures are logged and counted;
// the joined error is returned once all blobs were tried.
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

	o.log.Info(ctx, "Starting system restore...")

	profile, err := o.opts.Resolver.Profile()
	if err != nil {
		return res, err
	}
	files, err := o.opts.Resolver.ResolveFiles(ctx)
	if err != nil {
		return res, err
	}
	targets := Targets(files, profile.ManifestName(), o.opts.ManifestPath)

	names, err := o.opts.Gateway.List(ctx)
	if err != nil {
		o.log.Error(ctx, "Restore failed", "err", err)
		return res, fmt.Errorf("list backups: %w", err)
	}

	var errs []error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		path, ok := targets[name]
		if !ok {
			o.log.Warn(ctx, "Skipping unknown backup: "+name)
			res.Skipped++
			continue
		}

		n, err := o.restoreOne(ctx, name, path)
		if err != nil {
			o.log.Error(ctx, "Failed to restore "+path, "err", err)
			res.Failed++
			errs = append(errs, err)
			continue
		}
		o.log.Info(ctx, "Restored "+path, "bytes", n)
		res.Restored++
		res.Bytes += uint64(n)
	}

	o.log.Info(ctx, fmt.Sprintf("Restore finished: %d restored, %d failed, %d skipped.",
		res.Restored, res.Failed, res.Skipped))
	return res, errors.Join(errs...)
}

func (o *Orchestrator) restoreOne(ctx context.Context, name, path string) (int, error) {
	blob, err := o.opts.Gateway.Download(ctx, name)
	if err != nil {
		return 0, err
	}
	data, err := o.opts.Decrypter.DecryptBlob(blob)
	if err != nil {
		return 0, fmt.Errorf("decrypt %s: %w", name, err)
	}
	if err := filex.WriteFile(path, data, 0o644); err != nil {
		return 0, err
	}
	return len(data), nil
}

func (o *Orchestrator) startRun(ctx context.Context, id string) {
	if o.opts.Runs == nil {
		return
	}
	if err := o.opts.Runs.Start(ctx, id, runs.KindRestore, o.now()); err != nil {
		o.log.Warn(ctx, "Failed to record run start", "err", err)
	}
}

func (o *Orchestrator) finishRun(ctx context.Context, res Result, err error) {
	if o.opts.Runs == nil {
		return
	}
	out := runs.Outcome{
		Status: runs.StatusOK,
		Files:  res.Restored,
		Bytes:  res.Bytes,
		Failed: res.Failed,
		Err:    err,
	}
	if err != nil {
		out.Status = runs.StatusFailed
	}
	if ferr := o.opts.Runs.Finish(context.WithoutCancel(ctx), res.RunID, out, o.now()); ferr != nil {
		o.log.Warn(ctx, "Failed to record run result", "err", ferr)
	}
}
