package ledger

import (
	"context"

	"github.com/dmitrijs2005/continu/internal/supabase"
)

// TokenSource yields the signed in user's access token.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// RESTRecorder writes entries through PostgREST with the user's token, so
// row level security applies.
type RESTRecorder struct {
	client *supabase.RESTClient
	tokens TokenSource
}

func NewRESTRecorder(client *supabase.RESTClient, tokens TokenSource) *RESTRecorder {
	return &RESTRecorder{client: client, tokens: tokens}
}

func (r *RESTRecorder) Record(ctx context.Context, e Entry) error {
	token, err := r.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}
	return r.client.InsertBackup(ctx, token, supabase.BackupRow{
		RunID:      e.RunID,
		UserID:     e.UserID,
		FileName:   e.FileName,
		FileSize:   e.FileSize,
		BackupDate: e.BackupDate,
	})
}

func (r *RESTRecorder) List(ctx context.Context, userID string) ([]Entry, error) {
	token, err := r.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.client.ListBackups(ctx, token, userID)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, Entry{
			RunID:      row.RunID,
			UserID:     row.UserID,
			FileName:   row.FileName,
			FileSize:   row.FileSize,
			BackupDate: row.BackupDate,
		})
	}
	return out, nil
}
