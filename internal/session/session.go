// Package session owns the authentication lifecycle of the running client.
package session

import (
	"context"
	"net/http"
	"sync"

	"github.com/RamanVasko/freshkeep/internal/client"
	"github.com/RamanVasko/freshkeep/internal/credstore"
	"github.com/RamanVasko/freshkeep/internal/errs"
	"github.com/RamanVasko/freshkeep/internal/model"
)

// Status is the authentication state of the client instance.
type Status int

const (
	// StatusAnonymous means no session: no tokens in memory.
	StatusAnonymous Status = iota
	// StatusAuthenticating means a login or register call is in flight.
	StatusAuthenticating
	// StatusAuthenticated means an access token is held in memory.
	StatusAuthenticated
	// StatusFailed means the last login attempt was rejected and no prior
	// authenticated session exists.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusAuthenticating:
		return "authenticating"
	case StatusAuthenticated:
		return "authenticated"
	case StatusFailed:
		return "failed"
	default:
		return "anonymous"
	}
}

// loginResponse is the wire shape of POST /auth/login.
type loginResponse struct {
	model.Tokens
	User model.User `json:"user"`
}

// Manager holds the session state and persists tokens through the credential
// store. It is an injectable object with an explicit lifecycle (construct,
// Restore, use, Logout), never a package-level singleton.
type Manager struct {
	api   *client.Client
	creds credstore.Store

	mu      sync.Mutex
	status  Status
	user    *model.User
	access  string
	refresh string
	lastErr string
}

// New constructs a Manager in the Anonymous state.
func New(api *client.Client, creds credstore.Store) *Manager {
	return &Manager{api: api, creds: creds}
}

// Register creates an account. It does not log the new user in and leaves any
// existing session untouched.
func (m *Manager) Register(ctx context.Context, username, email, password string) (model.User, error) {
	body := map[string]string{"username": username, "email": email, "password": password}
	var u model.User
	if err := m.api.Do(ctx, http.MethodPost, "/auth/register", "", body, &u); err != nil {
		err = asCredentialFailure(err, "Registration failed")
		m.mu.Lock()
		m.lastErr = errs.Message(err, "Registration failed")
		m.mu.Unlock()
		return model.User{}, err
	}
	m.mu.Lock()
	m.lastErr = ""
	m.mu.Unlock()
	return u, nil
}

// Login authenticates and, on success, persists both tokens to the credential
// store. A rejected login never tears down a previously authenticated
// session: its tokens stay in memory and in storage, and the status stays
// Authenticated (Failed is only entered from a non-authenticated state, which
// keeps the token-iff-authenticated invariant intact).
func (m *Manager) Login(ctx context.Context, username, password string) (model.User, error) {
	m.mu.Lock()
	prior := m.status
	if prior != StatusAuthenticated {
		m.status = StatusAuthenticating
	}
	m.mu.Unlock()

	body := map[string]string{"username": username, "password": password}
	var resp loginResponse
	if err := m.api.Do(ctx, http.MethodPost, "/auth/login", "", body, &resp); err != nil {
		err = asCredentialFailure(err, "Login failed")
		m.mu.Lock()
		if m.status != StatusAuthenticated {
			m.status = StatusFailed
		}
		m.lastErr = errs.Message(err, "Login failed")
		m.mu.Unlock()
		return model.User{}, err
	}

	if err := m.creds.Set(credstore.KeyAccessToken, resp.AccessToken); err != nil {
		return model.User{}, errs.Wrap(errs.KindUnknown, "persist access token", err)
	}
	if err := m.creds.Set(credstore.KeyRefreshToken, resp.RefreshToken); err != nil {
		return model.User{}, errs.Wrap(errs.KindUnknown, "persist refresh token", err)
	}

	u := resp.User
	m.mu.Lock()
	m.status = StatusAuthenticated
	m.user = &u
	m.access = resp.AccessToken
	m.refresh = resp.RefreshToken
	m.lastErr = ""
	m.mu.Unlock()
	return u, nil
}

// Logout always succeeds locally: it erases both tokens from the credential
// store and resets the in-memory session, regardless of remote reachability.
// The remote logout call is best-effort.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	access := m.access
	m.mu.Unlock()

	if access != "" {
		_ = m.api.Do(ctx, http.MethodPost, "/auth/logout", access, nil, nil)
	}

	_ = m.creds.Remove(credstore.KeyAccessToken)
	_ = m.creds.Remove(credstore.KeyRefreshToken)

	m.mu.Lock()
	m.status = StatusAnonymous
	m.user = nil
	m.access = ""
	m.refresh = ""
	m.lastErr = ""
	m.mu.Unlock()
}

// Restore reads a stored access token and validates it against the remote
// whoami endpoint. Any failure, including a network one, erases both tokens
// and leaves the session Anonymous. Expected once at process start.
func (m *Manager) Restore(ctx context.Context) (Status, error) {
	tok, ok, err := m.creds.Get(credstore.KeyAccessToken)
	if err != nil || !ok || tok == "" {
		return StatusAnonymous, err
	}

	var u model.User
	if err := m.api.Do(ctx, http.MethodGet, "/auth/me", tok, nil, &u); err != nil {
		_ = m.creds.Remove(credstore.KeyAccessToken)
		_ = m.creds.Remove(credstore.KeyRefreshToken)
		m.mu.Lock()
		m.status = StatusAnonymous
		m.user = nil
		m.access = ""
		m.refresh = ""
		m.mu.Unlock()
		return StatusAnonymous, nil
	}

	refresh, _, _ := m.creds.Get(credstore.KeyRefreshToken)
	m.mu.Lock()
	m.status = StatusAuthenticated
	m.user = &u
	m.access = tok
	m.refresh = refresh
	m.lastErr = ""
	m.mu.Unlock()
	return StatusAuthenticated, nil
}

// Status returns the current lifecycle state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// User returns the authenticated profile, or nil.
func (m *Manager) User() *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// AccessToken returns the bearer token and whether one is held. A token is
// held iff the session is authenticated.
func (m *Manager) AccessToken() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access, m.status == StatusAuthenticated && m.access != ""
}

// LastError returns the display-ready message of the last failed attempt.
func (m *Manager) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// asCredentialFailure remaps a 401 from login/register to invalid
// credentials: there the status means "bad username/password", not "missing
// bearer token".
func asCredentialFailure(err error, generic string) error {
	if errs.KindOf(err) == errs.KindUnauthenticated {
		return errs.New(errs.KindInvalidCredentials, errs.Message(err, generic))
	}
	return err
}
