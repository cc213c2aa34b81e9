// Package session keeps the signed in user's Supabase session in the local
// state database, sealed with the configured encryption key.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/continu/internal/common"
	"github.com/dmitrijs2005/continu/internal/dbx"
	"github.com/dmitrijs2005/continu/internal/logging"
	"github.com/dmitrijs2005/continu/internal/platform"
	"github.com/dmitrijs2005/continu/internal/statedb/metadata"
	"github.com/dmitrijs2005/continu/internal/supabase"
)

const (
	keySession   = "session"
	keyLastEmail = "last_email"

	// refreshMargin is how long before expiry a token is refreshed.
	refreshMargin = time.Minute
)

// Info is the persisted session.
type Info struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Email        string    `json:"email"`
	UserID       string    `json:"user_id"`
	LoginTime    time.Time `json:"login_time"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Authenticator is the GoTrue surface the manager needs.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*supabase.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*supabase.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// OSChecker validates the machine's OS against the account.
type OSChecker interface {
	CheckOSDetails(ctx context.Context, token, userID, name, version string) error
}

// Sealer encrypts the session at rest.
type Sealer interface {
	EncryptBlob(plaintext []byte) ([]byte, error)
	DecryptBlob(blob []byte) ([]byte, error)
}

type Options struct {
	Auth          Authenticator
	OS            OSChecker
	DB            *sql.DB
	Sealer        Sealer
	OSReleasePath string
}

// Manager implements login state for the CLI, the scheduler and the
// storage credentials.
type Manager struct {
	opts Options
	repo metadata.Repository
	log  logging.Logger
	now  func() time.Time

	mu sync.Mutex
}

func NewManager(opts Options, log logging.Logger) *Manager {
	return &Manager{
		opts: opts,
		repo: metadata.NewSQLiteRepository(opts.DB),
		log:  log,
		now:  time.Now,
	}
}

// Login signs in, persists the session and registers or checks the OS of
// this machine. An OS mismatch is logged; the session is kept.
func (m *Manager) Login(ctx context.Context, email, password string) (*Info, error) {
	s, err := m.opts.Auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}

	info := m.fromSupabase(s)
	if info.Email == "" {
		info.Email = email
	}

	m.mu.Lock()
	err = m.save(ctx, info, true)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	m.checkOS(ctx, info)
	return info, nil
}

func (m *Manager) checkOS(ctx context.Context, info *Info) {
	if m.opts.OS == nil {
		return
	}
	d, err := platform.ReadOSDetails(m.opts.OSReleasePath)
	if err != nil {
		m.log.Warn(ctx, "Could not read OS details", "err", err)
		return
	}
	err = m.opts.OS.CheckOSDetails(ctx, info.AccessToken, info.UserID, d.Name, d.Version)
	switch {
	case errors.Is(err, common.ErrOSMismatch):
		m.log.Warn(ctx, "This machine's OS differs from the one registered for the account", "err", err)
	case err != nil:
		m.log.Warn(ctx, "Could not verify OS details", "err", err)
	}
}

// Logout revokes the session remotely (best effort) and forgets it locally.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, err := m.load(ctx)
	if errors.Is(err, common.ErrNotLoggedIn) {
		return nil
	}
	if err == nil && m.opts.Auth != nil {
		if err := m.opts.Auth.SignOut(ctx, info.AccessToken); err != nil {
			m.log.Warn(ctx, "Remote sign out failed", "err", err)
		}
	}
	return m.repo.Delete(ctx, keySession)
}

// Current returns the stored session or common.ErrNotLoggedIn.
func (m *Manager) Current(ctx context.Context) (*Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(ctx)
}

// IsActive reports whether a session is stored.
func (m *Manager) IsActive(ctx context.Context) bool {
	_, err := m.Current(ctx)
	return err == nil
}

// LastEmail is the address of the most recent login, for prompts.
func (m *Manager) LastEmail(ctx context.Context) string {
	v, err := m.repo.Get(ctx, keyLastEmail)
	if err != nil {
		return ""
	}
	return string(v)
}

// AccessToken returns a token valid for at least a minute, refreshing the
// session when needed. A rejected refresh yields common.ErrTokenExpired.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, err := m.load(ctx)
	if err != nil {
		return "", err
	}
	if info.ExpiresAt.IsZero() || m.now().Add(refreshMargin).Before(info.ExpiresAt) {
		return info.AccessToken, nil
	}
	if info.RefreshToken == "" {
		return "", common.ErrTokenExpired
	}

	s, err := m.opts.Auth.Refresh(ctx, info.RefreshToken)
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			return "", fmt.Errorf("%w: %v", common.ErrTokenExpired, err)
		}
		return "", err
	}

	fresh := m.fromSupabase(s)
	fresh.Email = info.Email
	fresh.LoginTime = info.LoginTime
	if fresh.UserID == "" {
		fresh.UserID = info.UserID
	}
	if err := m.save(ctx, fresh, false); err != nil {
		return "", err
	}
	m.log.Debug(ctx, "Access token refreshed", "expires_at", fresh.ExpiresAt)
	return fresh.AccessToken, nil
}

// UserID returns the signed in user's id.
func (m *Manager) UserID(ctx context.Context) (string, error) {
	info, err := m.Current(ctx)
	if err != nil {
		return "", err
	}
	return info.UserID, nil
}

func (m *Manager) fromSupabase(s *supabase.Session) *Info {
	now := m.now()
	info := &Info{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		Email:        s.User.Email,
		UserID:       s.User.ID,
		LoginTime:    now,
	}

	if claims, err := supabase.ParseClaims(s.AccessToken); err == nil {
		if info.UserID == "" {
			info.UserID = claims.UserID()
		}
		if claims.ExpiresAt != nil {
			info.ExpiresAt = claims.ExpiresAt.Time
		}
	}
	switch {
	case !info.ExpiresAt.IsZero():
	case s.ExpiresAt > 0:
		info.ExpiresAt = time.Unix(s.ExpiresAt, 0)
	case s.ExpiresIn > 0:
		info.ExpiresAt = now.Add(time.Duration(s.ExpiresIn) * time.Second)
	}
	return info
}

// save writes the sealed session, and on login the remembered email, in one
// transaction. Callers hold m.mu.
func (m *Manager) save(ctx context.Context, info *Info, login bool) error {
	raw, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	blob, err := m.opts.Sealer.EncryptBlob(raw)
	common.WipeByteArray(raw)
	if err != nil {
		return fmt.Errorf("seal session: %w", err)
	}

	return dbx.WithTx(ctx, m.opts.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, keySession, blob); err != nil {
			return err
		}
		if login {
			return repo.Set(ctx, keyLastEmail, []byte(info.Email))
		}
		return nil
	})
}

// load reads and unseals the session. Callers hold m.mu.
func (m *Manager) load(ctx context.Context) (*Info, error) {
	blob, err := m.repo.Get(ctx, keySession)
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 {
		return nil, common.ErrNotLoggedIn
	}

	raw, err := m.opts.Sealer.DecryptBlob(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: stored session cannot be decrypted with the configured key: %v",
			common.ErrNotLoggedIn, err)
	}
	defer common.WipeByteArray(raw)

	var info Info
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("%w: corrupt session: %v", common.ErrNotLoggedIn, err)
	}
	return &info, nil
}
