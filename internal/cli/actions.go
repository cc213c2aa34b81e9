package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/continu/internal/common"
	"github.com/dmitrijs2005/continu/internal/platform"
	"github.com/dmitrijs2005/continu/internal/scheduler"
	"github.com/dmitrijs2005/continu/internal/statedb/runs"
)

var (
	errEmailRequired    = errors.New("email is required")
	errPasswordMismatch = errors.New("passwords do not match")
)

const timeLayout = "2006-01-02 15:04:05"

func (a *App) promptEmail(ctx context.Context, email string) (string, error) {
	if email != "" {
		return email, nil
	}
	var def string
	if a.sessions != nil {
		def = a.sessions.LastEmail(ctx)
	}
	email, err := GetSimpleText(a.in, "Email", def, a.out)
	if err != nil {
		return "", err
	}
	if email == "" {
		a.fail("Email is required.")
		return "", errEmailRequired
	}
	return email, nil
}

func (a *App) Login(ctx context.Context, email string) error {
	email, err := a.promptEmail(ctx, email)
	if err != nil {
		return err
	}
	pw, err := GetPassword("Password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	info, err := a.sessions.Login(ctx, email, string(pw))
	if err != nil {
		a.fail("Login failed: %v", err)
		return err
	}
	a.success("Logged in as %s.", info.Email)
	return nil
}

func (a *App) Signup(ctx context.Context, email string) error {
	email, err := a.promptEmail(ctx, email)
	if err != nil {
		return err
	}
	pw, err := GetPassword("Password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)
	confirm, err := GetPassword("Confirm password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if string(pw) != string(confirm) {
		a.fail("Passwords do not match.")
		return errPasswordMismatch
	}

	if _, err := a.accounts.SignUp(ctx, email, string(pw)); err != nil {
		a.fail("Sign up failed: %v", err)
		return err
	}
	a.success("Account created for %s. Confirm your email address, then log in.", email)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if !a.sessions.IsActive(ctx) {
		a.warn("Not logged in.")
		return nil
	}
	if err := a.sessions.Logout(ctx); err != nil {
		a.fail("Logout failed: %v", err)
		return err
	}
	a.success("Logged out.")
	return nil
}

func (a *App) Reset(ctx context.Context, email string) error {
	email, err := a.promptEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := a.accounts.Recover(ctx, email); err != nil {
		a.fail("Password reset failed: %v", err)
		return err
	}
	a.success("Password reset instructions sent to %s.", email)
	return nil
}

// authorized gates backup and restore. A refusal is reported to the user
// but is not an error.
func (a *App) authorized(ctx context.Context) bool {
	if a.geteuid() != 0 {
		a.warn("This command must be run as root (try sudo).")
		return false
	}
	if !a.sessions.IsActive(ctx) {
		a.warn("Please log in first.")
		return false
	}
	return true
}

func (a *App) Backup(ctx context.Context) error {
	if !a.authorized(ctx) {
		return nil
	}

	res, err := a.backups.Run(ctx)
	switch {
	case errors.Is(err, common.ErrBackupInProgress):
		a.warn("A backup or restore is already running.")
		return nil
	case err != nil:
		a.fail("Backup failed: %v", err)
		return err
	}

	a.success("Backup completed: %d of %d files, %d bytes uploaded.",
		res.Progress.CompletedFiles, res.Progress.TotalFiles, res.Progress.ProcessedBytes)
	if n := len(res.Skipped); n > 0 {
		a.warn("%d files were not found and skipped.", n)
	}
	return nil
}

func (a *App) Restore(ctx context.Context) error {
	if !a.authorized(ctx) {
		return nil
	}

	res, err := a.restores.Run(ctx)
	switch {
	case errors.Is(err, common.ErrBackupInProgress):
		a.warn("A backup or restore is already running.")
		return nil
	case err != nil && res.Failed == 0:
		a.fail("Restore failed: %v", err)
		return err
	case err != nil:
		a.fail("Restore finished with %d failures: %v", res.Failed, err)
		return err
	}

	a.success("Restore completed: %d files restored.", res.Restored)
	if res.Skipped > 0 {
		a.warn("%d unknown backups were skipped.", res.Skipped)
	}
	return nil
}

// Status prints the session, the scheduler state and the last runs.
func (a *App) Status(ctx context.Context) error {
	for _, line := range a.statusLines(ctx) {
		a.println("%s", line)
	}
	return nil
}

func (a *App) statusLines(ctx context.Context) []string {
	var lines []string

	info, err := a.sessions.Current(ctx)
	switch {
	case errors.Is(err, common.ErrNotLoggedIn):
		lines = append(lines, "Session:        not logged in")
	case err != nil:
		lines = append(lines, "Session:        unknown ("+err.Error()+")")
	default:
		s := fmt.Sprintf("Session:        %s since %s", info.Email, info.LoginTime.Local().Format(timeLayout))
		if !info.ExpiresAt.IsZero() {
			s += ", token valid until " + info.ExpiresAt.Local().Format(timeLayout)
		}
		lines = append(lines, s)
	}

	lines = append(lines, "Backup service: "+a.serviceStatus().String())
	if a.frequency != nil {
		lines = append(lines, "Frequency:      "+string(a.frequency.ResolveFrequency(ctx)))
	}
	lines = append(lines,
		"Last backup:    "+a.lastRun(ctx, runs.KindBackup),
		"Last restore:   "+a.lastRun(ctx, runs.KindRestore),
		"OS:             "+a.osDetails(),
	)
	return lines
}

func (a *App) serviceStatus() scheduler.Status {
	if a.scheduler == nil {
		return scheduler.StatusStopped
	}
	return a.scheduler.Status()
}

func (a *App) lastRun(ctx context.Context, kind runs.Kind) string {
	if a.runs == nil {
		return "never"
	}
	r, err := a.runs.Last(ctx, kind)
	if errors.Is(err, common.ErrNotFound) {
		return "never"
	}
	if err != nil {
		return "unknown (" + err.Error() + ")"
	}
	s := fmt.Sprintf("%s, %s, %d files", r.FinishedAt.Local().Format(timeLayout), r.Status, r.Files)
	if r.Failed > 0 {
		s += fmt.Sprintf(", %d failed", r.Failed)
	}
	if age := time.Since(r.FinishedAt); age > 0 {
		s += fmt.Sprintf(" (%s ago)", age.Round(time.Minute))
	}
	return s
}

func (a *App) osDetails() string {
	if a.cfg == nil {
		return "unknown"
	}
	d, err := platform.ReadOSDetails(a.cfg.OSReleasePath)
	if err != nil {
		return "unknown"
	}
	return d.String()
}
