package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/continu/internal/common"
	"github.com/dmitrijs2005/continu/internal/netx"
)

// User is the subset of a GoTrue user continu needs.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is a GoTrue token response.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         User   `json:"user"`
}

// AuthClient calls the GoTrue endpoints under /auth/v1.
type AuthClient struct {
	endpoint
}

func NewAuthClient(baseURL, anonKey string, hc *http.Client) *AuthClient {
	return &AuthClient{endpoint: newEndpoint(baseURL, anonKey, hc)}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignIn exchanges email and password for a session. Rejected credentials
// are reported as common.ErrUnauthorized.
func (c *AuthClient) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", nil,
		credentials{Email: email, Password: password}, &s)
	if err != nil {
		return nil, authError("sign in", err)
	}
	if s.AccessToken == "" || s.User.ID == "" {
		return nil, fmt.Errorf("sign in: %w: response carries no token or user", common.ErrInvalidToken)
	}
	return &s, nil
}

// SignUp registers a new account. Depending on the project's email
// confirmation setting GoTrue answers with a bare user or a session; both
// are accepted.
func (c *AuthClient) SignUp(ctx context.Context, email, password string) (*User, error) {
	var resp struct {
		User
		Nested *User `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/auth/v1/signup", "", nil,
		credentials{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, authError("sign up", err)
	}

	u := resp.User
	if resp.Nested != nil && resp.Nested.ID != "" {
		u = *resp.Nested
	}
	if u.ID == "" {
		return nil, errors.New("sign up: response carries no user id")
	}
	return &u, nil
}

// Recover asks GoTrue to mail a password reset link.
func (c *AuthClient) Recover(ctx context.Context, email string) error {
	err := c.do(ctx, http.MethodPost, "/auth/v1/recover", "", nil,
		map[string]string{"email": email}, nil)
	if err != nil {
		return authError("password reset", err)
	}
	return nil
}

// Refresh trades a refresh token for a new session.
func (c *AuthClient) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	var s Session
	err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", "", nil,
		map[string]string{"refresh_token": refreshToken}, &s)
	if err != nil {
		return nil, authError("refresh", err)
	}
	if s.AccessToken == "" {
		return nil, fmt.Errorf("refresh: %w", common.ErrInvalidToken)
	}
	return &s, nil
}

// SignOut revokes the refresh tokens of accessToken's session.
func (c *AuthClient) SignOut(ctx context.Context, accessToken string) error {
	if err := c.do(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil, nil, nil); err != nil {
		return authError("sign out", err)
	}
	return nil
}

func authError(op string, err error) error {
	switch netx.StatusCode(err) {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s: %w: %s", op, common.ErrUnauthorized, apiMessage(err))
	case 0:
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %s: %w", op, apiMessage(err), err)
}
