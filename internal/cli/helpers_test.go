package cli

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dmitrijs2005/continu/internal/backup"
	"github.com/dmitrijs2005/continu/internal/common"
	"github.com/dmitrijs2005/continu/internal/config"
	"github.com/dmitrijs2005/continu/internal/logging"
	"github.com/dmitrijs2005/continu/internal/restore"
	"github.com/dmitrijs2005/continu/internal/session"
	"github.com/dmitrijs2005/continu/internal/statedb"
	"github.com/dmitrijs2005/continu/internal/supabase"
	"github.com/stretchr/testify/require"
)

type fakeSessions struct {
	active    bool
	info      *session.Info
	loginErr  error
	logins    []string
	logouts   int
	lastEmail string
}

func (f *fakeSessions) Login(_ context.Context, email, password string) (*session.Info, error) {
	f.logins = append(f.logins, email+":"+password)
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	f.active = true
	f.info = &session.Info{Email: email, UserID: "user-1"}
	return f.info, nil
}

func (f *fakeSessions) Logout(context.Context) error {
	f.logouts++
	f.active = false
	return nil
}

func (f *fakeSessions) Current(context.Context) (*session.Info, error) {
	if !f.active {
		return nil, common.ErrNotLoggedIn
	}
	return f.info, nil
}

func (f *fakeSessions) IsActive(context.Context) bool    { return f.active }
func (f *fakeSessions) LastEmail(context.Context) string { return f.lastEmail }

type fakeAccounts struct {
	signups   []string
	recovered []string
	err       error
}

func (f *fakeAccounts) SignUp(_ context.Context, email, password string) (*supabase.User, error) {
	f.signups = append(f.signups, email+":"+password)
	if f.err != nil {
		return nil, f.err
	}
	return &supabase.User{ID: "user-2", Email: email}, nil
}

func (f *fakeAccounts) Recover(_ context.Context, email string) error {
	f.recovered = append(f.recovered, email)
	return f.err
}

type fakeBackup struct {
	calls int
	res   backup.Result
	err   error
}

func (f *fakeBackup) Run(context.Context) (backup.Result, error) {
	f.calls++
	return f.res, f.err
}

type fakeRestore struct {
	calls int
	res   restore.Result
	err   error
}

func (f *fakeRestore) Run(context.Context) (restore.Result, error) {
	f.calls++
	return f.res, f.err
}

// blockingService stands in for the scheduler under the supervisor.
type blockingService struct {
	started chan struct{}
	stopped chan struct{}
}

func newBlockingService() *blockingService {
	return &blockingService{started: make(chan struct{}), stopped: make(chan struct{})}
}

func (s *blockingService) Serve(ctx context.Context) error {
	close(s.started)
	<-ctx.Done()
	close(s.stopped)
	return ctx.Err()
}

type testApp struct {
	*App
	out      *bytes.Buffer
	sessions *fakeSessions
	accounts *fakeAccounts
	backups  *fakeBackup
	restores *fakeRestore
	store    *statedb.Store
	service  *blockingService
	euid     int
}

func newTestApp(t *testing.T, input string) *testApp {
	t.Helper()

	store, err := statedb.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	release := filepath.Join(t.TempDir(), "os-release")
	require.NoError(t, os.WriteFile(release, []byte("NAME=\"Ubuntu\"\nVERSION_ID=\"24.04\"\n"), 0o644))

	ta := &testApp{
		out:      &bytes.Buffer{},
		sessions: &fakeSessions{},
		accounts: &fakeAccounts{},
		backups:  &fakeBackup{},
		restores: &fakeRestore{},
		store:    store,
		service:  newBlockingService(),
	}
	ta.App = &App{
		cfg:      &config.Config{OSReleasePath: release},
		log:      logging.Discard(),
		sessions: ta.sessions,
		accounts: ta.accounts,
		backups:  ta.backups,
		restores: ta.restores,
		runs:     store.Runs,
		service:  ta.service,
		out:      ta.out,
		in:       bufio.NewReader(strings.NewReader(input)),
		geteuid:  func() int { return ta.euid },
	}
	return ta
}

// stubPasswords makes readPassword return pws in order.
func stubPasswords(t *testing.T, pws ...string) {
	t.Helper()
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	readPassword = func(int) ([]byte, error) {
		if len(pws) == 0 {
			return nil, os.ErrClosed
		}
		pw := pws[0]
		pws = pws[1:]
		return []byte(pw), nil
	}
}
