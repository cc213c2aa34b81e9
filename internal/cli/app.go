package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/dmitrijs2005/continu/internal/backup"
	"github.com/dmitrijs2005/continu/internal/common"
	"github.com/dmitrijs2005/continu/internal/config"
	"github.com/dmitrijs2005/continu/internal/cryptox"
	"github.com/dmitrijs2005/continu/internal/ledger"
	"github.com/dmitrijs2005/continu/internal/logging"
	"github.com/dmitrijs2005/continu/internal/platform"
	"github.com/dmitrijs2005/continu/internal/resolver"
	"github.com/dmitrijs2005/continu/internal/restore"
	"github.com/dmitrijs2005/continu/internal/scheduler"
	"github.com/dmitrijs2005/continu/internal/session"
	"github.com/dmitrijs2005/continu/internal/statedb"
	"github.com/dmitrijs2005/continu/internal/statedb/runs"
	"github.com/dmitrijs2005/continu/internal/storage"
	"github.com/dmitrijs2005/continu/internal/supabase"
	"github.com/thejerf/suture/v4"
)

// Sessions is the session surface the commands use.
type Sessions interface {
	Login(ctx context.Context, email, password string) (*session.Info, error)
	Logout(ctx context.Context) error
	Current(ctx context.Context) (*session.Info, error)
	IsActive(ctx context.Context) bool
	LastEmail(ctx context.Context) string
}

// Accounts covers the GoTrue calls that do not need a session.
type Accounts interface {
	SignUp(ctx context.Context, email, password string) (*supabase.User, error)
	Recover(ctx context.Context, email string) error
}

type BackupRunner interface {
	Run(ctx context.Context) (backup.Result, error)
}

type RestoreRunner interface {
	Run(ctx context.Context) (restore.Result, error)
}

// App holds the wired services behind every command.
type App struct {
	cfg  *config.Config
	log  logging.Logger
	slog *slog.Logger

	sessions  Sessions
	accounts  Accounts
	backups   BackupRunner
	restores  RestoreRunner
	runs      runs.Repository
	ledger    ledger.Recorder
	identity  backup.Identity
	frequency scheduler.FrequencySource
	scheduler *scheduler.Service
	// service is what the supervisor runs; the scheduler unless a test
	// swaps it.
	service suture.Service

	out     io.Writer
	in      *bufio.Reader
	geteuid func() int
	closers []io.Closer
}

// NewApp builds the production object graph from cfg. Console output goes
// to out.
func NewApp(ctx context.Context, cfg *config.Config, out io.Writer) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, logCloser, err := logging.New(logging.Options{Console: out, Dir: cfg.LogDir, Debug: cfg.Debug})
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	a := &App{
		cfg:     cfg,
		log:     log,
		slog:    log.Slog(),
		out:     out,
		in:      bufio.NewReader(os.Stdin),
		geteuid: os.Geteuid,
		closers: []io.Closer{logCloser},
	}

	if err := a.wire(ctx, log); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context, log *logging.SlogLogger) error {
	cfg := a.cfg

	store, err := statedb.Open(ctx, cfg.StatePath)
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	a.closers = append(a.closers, store)
	a.runs = store.Runs

	km, err := cryptox.LoadKeyMaterial(cfg.EncryptionKey, cfg.EncryptionIV, cfg.EncryptionPassphrase, cfg.EncryptionSalt)
	if err != nil {
		return fmt.Errorf("load encryption key: %w", err)
	}
	engine := cryptox.NewEngine(*km, cfg.LegacyFixedIV)

	hc := &http.Client{Timeout: cfg.RequestTimeout}
	auth := supabase.NewAuthClient(cfg.SupabaseURL, cfg.SupabaseKey, hc)
	rest := supabase.NewRESTClient(cfg.SupabaseURL, cfg.SupabaseKey, hc)
	a.accounts = auth

	sess := session.NewManager(session.Options{
		Auth:          auth,
		OS:            rest,
		DB:            store.DB(),
		Sealer:        engine,
		OSReleasePath: cfg.OSReleasePath,
	}, log)
	a.sessions = sess

	gw, err := storage.NewS3Gateway(ctx, storage.S3Options{
		Endpoint:        cfg.S3URL(),
		Region:          cfg.S3Region,
		Bucket:          cfg.Bucket,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		ProjectRef:      cfg.ProjectRef(),
		AnonKey:         cfg.SupabaseKey,
		Timeout:         cfg.RequestTimeout,
		Retries:         cfg.UploadRetries,
	}, sess, log)
	if err != nil {
		return err
	}

	rec, err := a.openLedger(ctx, rest, sess)
	if err != nil {
		return err
	}
	a.ledger = rec
	a.identity = sess

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("home directory: %w", err)
	}
	res := resolver.New(resolver.Options{
		OSReleasePath: cfg.OSReleasePath,
		SettingsPath:  cfg.SettingsPath,
		Home:          home,
		Profiles:      platform.Default(),
	}, log)
	a.frequency = res

	guard := &common.RunGuard{}
	bk := backup.New(backup.Options{
		Gateway:   gw,
		Resolver:  res,
		Encrypter: engine,
		Ledger:    rec,
		Identity:  sess,
		Runs:      store.Runs,
		Runner:    platform.ExecRunner,
		Guard:     guard,
	}, log)
	a.backups = bk
	a.restores = restore.New(restore.Options{
		Gateway:      gw,
		Resolver:     res,
		Decrypter:    engine,
		ManifestPath: cfg.ManifestRestorePath,
		Runs:         store.Runs,
		Guard:        guard,
	}, log)

	a.scheduler = scheduler.New(scheduler.Options{
		Session:      sess,
		Frequency:    res,
		Backup:       bk,
		IdleInterval: cfg.IdleInterval,
	}, log)
	a.service = a.scheduler
	return nil
}

// openLedger prefers a direct Postgres connection when a DSN is configured
// and falls back to PostgREST with the user's token.
func (a *App) openLedger(ctx context.Context, rest *supabase.RESTClient, tokens ledger.TokenSource) (ledger.Recorder, error) {
	if a.cfg.DatabaseDSN == "" {
		return ledger.NewRESTRecorder(rest, tokens), nil
	}
	rec, db, err := ledger.OpenPostgres(ctx, a.cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	a.closers = append(a.closers, db)
	return rec, nil
}

// Close releases everything NewApp opened, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
