package session

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/continu/internal/common"
	"github.com/dmitrijs2005/continu/internal/cryptox"
	"github.com/dmitrijs2005/continu/internal/logging"
	"github.com/dmitrijs2005/continu/internal/statedb"
	"github.com/dmitrijs2005/continu/internal/supabase"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func token(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, supabase.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	s, err := tok.SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

type fakeAuth struct {
	t          *testing.T
	expires    time.Time
	refreshErr error
	refreshed  int
	signedOut  []string
}

func (f *fakeAuth) SignIn(_ context.Context, email, password string) (*supabase.Session, error) {
	if password != "hunter2" {
		return nil, common.ErrUnauthorized
	}
	return &supabase.Session{
		AccessToken:  token(f.t, "user-1", f.expires),
		RefreshToken: "refresh-1",
		User:         supabase.User{ID: "user-1", Email: email},
	}, nil
}

func (f *fakeAuth) Refresh(_ context.Context, refreshToken string) (*supabase.Session, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	f.refreshed++
	return &supabase.Session{
		AccessToken:  token(f.t, "user-1", time.Now().Add(time.Hour)),
		RefreshToken: refreshToken + "-next",
	}, nil
}

func (f *fakeAuth) SignOut(_ context.Context, accessToken string) error {
	f.signedOut = append(f.signedOut, accessToken)
	return nil
}

type fakeOS struct {
	err   error
	calls []string
}

func (f *fakeOS) CheckOSDetails(_ context.Context, _, userID, name, version string) error {
	f.calls = append(f.calls, userID+" "+name+" "+version)
	return f.err
}

type fixture struct {
	auth    *fakeAuth
	os      *fakeOS
	store   *statedb.Store
	console *bytes.Buffer
	mgr     *Manager
}

func newEngine() *cryptox.Engine {
	return cryptox.NewEngine(cryptox.KeyMaterial{Key: common.GenerateRandByteArray(cryptox.KeySize)}, false)
}

func newFixture(t *testing.T, expires time.Time) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := statedb.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	release := filepath.Join(t.TempDir(), "os-release")
	require.NoError(t, os.WriteFile(release, []byte("NAME=\"Ubuntu\"\nVERSION_ID=\"24.04\"\n"), 0o644))

	console := &bytes.Buffer{}
	log, closer, err := logging.New(logging.Options{Console: console})
	require.NoError(t, err)
	t.Cleanup(func() { _ = closer.Close() })

	f := &fixture{
		auth:    &fakeAuth{t: t, expires: expires},
		os:      &fakeOS{},
		store:   store,
		console: console,
	}
	f.mgr = NewManager(Options{
		Auth:          f.auth,
		OS:            f.os,
		DB:            store.DB(),
		Sealer:        newEngine(),
		OSReleasePath: release,
	}, log)
	return f
}

func TestLogin_PersistsSealedSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Now().Add(time.Hour))

	assert.False(t, f.mgr.IsActive(ctx))
	_, err := f.mgr.Current(ctx)
	require.ErrorIs(t, err, common.ErrNotLoggedIn)

	info, err := f.mgr.Login(ctx, "me@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "user-1", info.UserID)
	assert.Equal(t, "refresh-1", info.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), info.ExpiresAt, 2*time.Second)

	assert.True(t, f.mgr.IsActive(ctx))
	cur, err := f.mgr.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, info.AccessToken, cur.AccessToken)
	assert.Equal(t, "me@example.com", cur.Email)

	uid, err := f.mgr.UserID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-1", uid)
	assert.Equal(t, "me@example.com", f.mgr.LastEmail(ctx))

	raw, err := f.store.Metadata.Get(ctx, keySession)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "refresh-1", "session must be stored encrypted")

	assert.Equal(t, []string{"user-1 Ubuntu 24.04"}, f.os.calls)
}

func TestLogin_BadCredentials(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Now().Add(time.Hour))

	_, err := f.mgr.Login(ctx, "me@example.com", "wrong")
	require.ErrorIs(t, err, common.ErrUnauthorized)
	assert.False(t, f.mgr.IsActive(ctx))
	assert.Empty(t, f.mgr.LastEmail(ctx))
}

func TestLogin_OSMismatchKeepsSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Now().Add(time.Hour))
	f.os.err = common.ErrOSMismatch

	_, err := f.mgr.Login(ctx, "me@example.com", "hunter2")
	require.NoError(t, err)

	assert.True(t, f.mgr.IsActive(ctx))
	assert.Contains(t, f.console.String(), "OS differs")
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Now().Add(time.Hour))

	require.NoError(t, f.mgr.Logout(ctx), "logout without a session is a no-op")
	assert.Empty(t, f.auth.signedOut)

	info, err := f.mgr.Login(ctx, "me@example.com", "hunter2")
	require.NoError(t, err)

	require.NoError(t, f.mgr.Logout(ctx))
	assert.Equal(t, []string{info.AccessToken}, f.auth.signedOut)
	assert.False(t, f.mgr.IsActive(ctx))
	assert.Equal(t, "me@example.com", f.mgr.LastEmail(ctx), "last email survives logout")
}

func TestAccessToken(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh token is returned as is", func(t *testing.T) {
		f := newFixture(t, time.Now().Add(time.Hour))
		info, err := f.mgr.Login(ctx, "me@example.com", "hunter2")
		require.NoError(t, err)

		tok, err := f.mgr.AccessToken(ctx)
		require.NoError(t, err)
		assert.Equal(t, info.AccessToken, tok)
		assert.Zero(t, f.auth.refreshed)
	})

	t.Run("token close to expiry is refreshed and saved", func(t *testing.T) {
		f := newFixture(t, time.Now().Add(30*time.Second))
		info, err := f.mgr.Login(ctx, "me@example.com", "hunter2")
		require.NoError(t, err)

		tok, err := f.mgr.AccessToken(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, info.AccessToken, tok)
		assert.Equal(t, 1, f.auth.refreshed)

		cur, err := f.mgr.Current(ctx)
		require.NoError(t, err)
		assert.Equal(t, tok, cur.AccessToken)
		assert.Equal(t, "refresh-1-next", cur.RefreshToken)
		assert.Equal(t, "me@example.com", cur.Email)
		assert.Equal(t, info.LoginTime.Unix(), cur.LoginTime.Unix())

		again, err := f.mgr.AccessToken(ctx)
		require.NoError(t, err)
		assert.Equal(t, tok, again)
		assert.Equal(t, 1, f.auth.refreshed)
	})

	t.Run("rejected refresh reports an expired token", func(t *testing.T) {
		f := newFixture(t, time.Now().Add(-time.Minute))
		f.auth.refreshErr = common.ErrUnauthorized
		_, err := f.mgr.Login(ctx, "me@example.com", "hunter2")
		require.NoError(t, err)

		_, err = f.mgr.AccessToken(ctx)
		require.ErrorIs(t, err, common.ErrTokenExpired)
	})

	t.Run("other refresh failures pass through", func(t *testing.T) {
		f := newFixture(t, time.Now().Add(-time.Minute))
		boom := errors.New("network down")
		f.auth.refreshErr = boom
		_, err := f.mgr.Login(ctx, "me@example.com", "hunter2")
		require.NoError(t, err)

		_, err = f.mgr.AccessToken(ctx)
		require.ErrorIs(t, err, boom)
	})

	t.Run("no session", func(t *testing.T) {
		f := newFixture(t, time.Now().Add(time.Hour))
		_, err := f.mgr.AccessToken(ctx)
		require.ErrorIs(t, err, common.ErrNotLoggedIn)
	})
}

func TestCurrent_WrongKeyMeansLoggedOut(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Now().Add(time.Hour))

	_, err := f.mgr.Login(ctx, "me@example.com", "hunter2")
	require.NoError(t, err)

	other := NewManager(Options{DB: f.store.DB(), Sealer: newEngine()}, logging.Discard())
	_, err = other.Current(ctx)
	require.ErrorIs(t, err, common.ErrNotLoggedIn)
	assert.False(t, other.IsActive(ctx))
}
