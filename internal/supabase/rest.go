package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrijs2005/continu/internal/common"
)

// RESTClient calls PostgREST under /rest/v1 on behalf of a signed in user.
type RESTClient struct {
	endpoint
}

func NewRESTClient(baseURL, anonKey string, hc *http.Client) *RESTClient {
	return &RESTClient{endpoint: newEndpoint(baseURL, anonKey, hc)}
}

var preferMinimal = http.Header{"Prefer": []string{"return=minimal"}}

type configRow struct {
	UserID    string `json:"user_id"`
	OSName    string `json:"os_name"`
	OSVersion string `json:"os_version"`
}

// CheckOSDetails compares the OS registered for userID in the configs table
// with name and version. The first login registers them; later logins from
// a different OS fail with common.ErrOSMismatch.
func (c *RESTClient) CheckOSDetails(ctx context.Context, token, userID, name, version string) error {
	q := url.Values{}
	q.Set("user_id", "eq."+userID)
	q.Set("select", "user_id,os_name,os_version")

	var rows []configRow
	if err := c.do(ctx, http.MethodGet, "/rest/v1/configs?"+q.Encode(), token, nil, nil, &rows); err != nil {
		return fmt.Errorf("check os details: %s: %w", apiMessage(err), err)
	}

	if len(rows) == 0 {
		row := configRow{UserID: userID, OSName: name, OSVersion: version}
		if err := c.do(ctx, http.MethodPost, "/rest/v1/configs", token, preferMinimal, row, nil); err != nil {
			return fmt.Errorf("add os details: %s: %w", apiMessage(err), err)
		}
		return nil
	}

	if rows[0].OSName != name || rows[0].OSVersion != version {
		return fmt.Errorf("%w: registered %s %s, running %s %s",
			common.ErrOSMismatch, rows[0].OSName, rows[0].OSVersion, name, version)
	}
	return nil
}

// BackupRow is a row of the backups table.
type BackupRow struct {
	RunID      string    `json:"run_id,omitempty"`
	UserID     string    `json:"user_id"`
	FileName   string    `json:"file_name"`
	FileSize   int64     `json:"file_size"`
	BackupDate time.Time `json:"backup_date"`
}

// InsertBackup records one uploaded blob.
func (c *RESTClient) InsertBackup(ctx context.Context, token string, row BackupRow) error {
	if err := c.do(ctx, http.MethodPost, "/rest/v1/backups", token, preferMinimal, row, nil); err != nil {
		return fmt.Errorf("store backup metadata: %s: %w", apiMessage(err), err)
	}
	return nil
}

// ListBackups returns the backups of userID, newest first.
func (c *RESTClient) ListBackups(ctx context.Context, token, userID string) ([]BackupRow, error) {
	q := url.Values{}
	q.Set("user_id", "eq."+userID)
	q.Set("order", "backup_date.desc")

	var rows []BackupRow
	if err := c.do(ctx, http.MethodGet, "/rest/v1/backups?"+q.Encode(), token, nil, nil, &rows); err != nil {
		return nil, fmt.Errorf("list backups: %s: %w", apiMessage(err), err)
	}
	return rows, nil
}
