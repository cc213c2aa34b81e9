package cli

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/dmitrijs2005/continu/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closeRecorder struct{ closed int }

func (c *closeRecorder) Close() error {
	c.closed++
	return nil
}

// newTestCommand returns a command whose factory hands out ta.App and
// records the configuration it was given.
func newTestCommand(t *testing.T, ta *testApp) (*command, *[]*config.Config, *closeRecorder) {
	t.Helper()
	var seen []*config.Config
	rec := &closeRecorder{}
	ta.closers = append(ta.closers, rec)

	c := newCommand(ta.out, func(_ context.Context, cfg *config.Config, _ io.Writer) (*App, error) {
		seen = append(seen, cfg)
		return ta.App, nil
	})
	return c, &seen, rec
}

func TestCommand_Subcommands(t *testing.T) {
	c := newCommand(io.Discard, NewApp)

	var names []string
	for _, sub := range c.root.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"login", "signup", "logout", "status", "reset", "backup", "restore", "history", "daemon"} {
		assert.Contains(t, names, want)
	}

	for _, flag := range []string{"config", "supabase-url", "bucket", "settings", "state", "log-dir", "legacy-fixed-iv", "timeout", "retries", "debug"} {
		assert.NotNil(t, c.root.PersistentFlags().Lookup(flag), flag)
	}
}

func TestCommand_LoginWithFlags(t *testing.T) {
	ta := newTestApp(t, "")
	stubPasswords(t, "hunter2")
	c, seen, rec := newTestCommand(t, ta)

	err := c.execute(context.Background(), []string{"login", "me@example.com", "--bucket", "other", "--retries", "7"})
	require.NoError(t, err)

	assert.Equal(t, []string{"me@example.com:hunter2"}, ta.sessions.logins)
	require.Len(t, *seen, 1)
	assert.Equal(t, "other", (*seen)[0].Bucket)
	assert.Equal(t, 7, (*seen)[0].UploadRetries)
	assert.Equal(t, 1, rec.closed, "app is closed after the command")
}

func TestCommand_BackupWithoutRootIsNotAnError(t *testing.T) {
	ta := newTestApp(t, "")
	ta.euid = 1000
	c, _, _ := newTestCommand(t, ta)

	require.NoError(t, c.execute(context.Background(), []string{"backup"}))
	assert.Zero(t, ta.backups.calls)
	assert.Contains(t, ta.out.String(), "must be run as root")
}

func TestCommand_ArgsAreValidatedBeforeSetup(t *testing.T) {
	ta := newTestApp(t, "")
	c, seen, _ := newTestCommand(t, ta)

	require.Error(t, c.execute(context.Background(), []string{"reset"}))
	require.Error(t, c.execute(context.Background(), []string{"logout", "extra"}))
	assert.Empty(t, *seen)
}

func TestCommand_FactoryError(t *testing.T) {
	boom := errors.New("bad config")
	c := newCommand(io.Discard, func(context.Context, *config.Config, io.Writer) (*App, error) {
		return nil, boom
	})

	require.ErrorIs(t, c.execute(context.Background(), []string{"status"}), boom)
}

func TestCommand_CommandErrorStillCloses(t *testing.T) {
	ta := newTestApp(t, "")
	ta.sessions.active = true
	ta.backups.err = errors.New("bucket unreachable")
	c, _, rec := newTestCommand(t, ta)

	err := c.execute(context.Background(), []string{"backup"})
	require.EqualError(t, err, "bucket unreachable")
	assert.Equal(t, 1, rec.closed)
}

func TestCommand_Status(t *testing.T) {
	ta := newTestApp(t, "")
	c, _, _ := newTestCommand(t, ta)

	require.NoError(t, c.execute(context.Background(), []string{"status"}))
	assert.Contains(t, ta.out.String(), "Backup service: stopped")
}

func TestNewApp_InvalidConfig(t *testing.T) {
	_, err := NewApp(context.Background(), &config.Config{}, io.Discard)
	require.ErrorIs(t, err, config.ErrMissingSupabase)
}
