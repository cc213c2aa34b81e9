package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/continu/internal/statedb/runs"
)

// History prints the most recent local runs, or with remote set the blobs
// the ledger holds for the logged in account.
func (a *App) History(ctx context.Context, limit int, remote bool) error {
	if remote {
		return a.remoteHistory(ctx, limit)
	}

	list, err := a.runs.List(ctx, limit)
	if err != nil {
		a.fail("Could not read the run history: %v", err)
		return err
	}
	if len(list) == 0 {
		a.warn("No runs recorded yet.")
		return nil
	}
	for _, r := range list {
		a.println("%s", runLine(r))
	}
	return nil
}

func runLine(r runs.Run) string {
	s := fmt.Sprintf("%s  %-7s  %-7s  %d files, %d bytes",
		r.StartedAt.Local().Format(timeLayout), r.Kind, r.Status, r.Files, r.Bytes)
	if r.Failed > 0 {
		s += fmt.Sprintf(", %d failed", r.Failed)
	}
	if r.Error != "" {
		s += "  " + styles.Muted.Render(r.Error)
	}
	return s
}

func (a *App) remoteHistory(ctx context.Context, limit int) error {
	if !a.sessions.IsActive(ctx) {
		a.warn("Please log in first.")
		return nil
	}
	uid, err := a.identity.UserID(ctx)
	if err != nil {
		a.fail("Could not read the account: %v", err)
		return err
	}
	entries, err := a.ledger.List(ctx, uid)
	if err != nil {
		a.fail("Could not read the backup ledger: %v", err)
		return err
	}
	if len(entries) == 0 {
		a.warn("No backups recorded for this account.")
		return nil
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for _, e := range entries {
		a.println("%s  %-24s  %d bytes", e.BackupDate.Local().Format(timeLayout), e.FileName, e.FileSize)
	}
	return nil
}
