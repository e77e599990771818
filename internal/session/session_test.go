package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/RamanVasko/freshkeep/internal/client"
	"github.com/RamanVasko/freshkeep/internal/credstore"
	"github.com/RamanVasko/freshkeep/internal/errs"
	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T, h http.Handler) (*Manager, credstore.Store, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	creds := credstore.NewFileStore(t.TempDir())
	return New(client.New(srv.URL), creds), creds, srv
}

func authMux(t *testing.T) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Incorrect username or password"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "acc-" + body["username"],
			"refresh_token": "ref-" + body["username"],
			"token_type":    "bearer",
			"user":          map[string]any{"id": uuid.Must(uuid.NewV4()), "username": body["username"], "is_active": true},
		})
	})
	mux.HandleFunc("GET /api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer acc-alice" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Could not validate credentials"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": uuid.Must(uuid.NewV4()), "username": "alice", "is_active": true})
	})
	mux.HandleFunc("POST /api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	return mux
}

func TestLogin_PersistsTokensAndAuthenticates(t *testing.T) {
	t.Parallel()
	m, creds, _ := newManager(t, authMux(t))

	require.Equal(t, StatusAnonymous, m.Status())

	u, err := m.Login(context.Background(), "alice", "good")
	require.NoError(t, err)
	require.Equal(t, "alice", u.Username)
	require.Equal(t, StatusAuthenticated, m.Status())

	tok, ok := m.AccessToken()
	require.True(t, ok)
	require.Equal(t, "acc-alice", tok)

	stored, ok, err := creds.Get(credstore.KeyAccessToken)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "acc-alice", stored)

	stored, ok, err = creds.Get(credstore.KeyRefreshToken)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "ref-alice", stored)
}

func TestLogin_RejectedSetsFailed(t *testing.T) {
	t.Parallel()
	m, creds, _ := newManager(t, authMux(t))

	_, err := m.Login(context.Background(), "alice", "bad")
	require.Error(t, err)
	require.Equal(t, errs.KindInvalidCredentials, errs.KindOf(err))
	require.Equal(t, StatusFailed, m.Status())
	require.Equal(t, "Incorrect username or password", m.LastError())

	_, ok, err := creds.Get(credstore.KeyAccessToken)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLogin_FailedAttemptKeepsExistingSession(t *testing.T) {
	t.Parallel()
	m, creds, _ := newManager(t, authMux(t))

	_, err := m.Login(context.Background(), "alice", "good")
	require.NoError(t, err)

	_, err = m.Login(context.Background(), "bob", "bad")
	require.Error(t, err)

	// Prior session survives the rejected attempt, in memory and on disk.
	require.Equal(t, StatusAuthenticated, m.Status())
	tok, ok := m.AccessToken()
	require.True(t, ok)
	require.Equal(t, "acc-alice", tok)
	require.Equal(t, "Incorrect username or password", m.LastError())

	stored, ok, err := creds.Get(credstore.KeyAccessToken)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "acc-alice", stored)
}

func TestLogout_AlwaysAnonymousEvenIfRemoteFails(t *testing.T) {
	t.Parallel()
	// authMux answers logout with 500.
	m, creds, _ := newManager(t, authMux(t))

	_, err := m.Login(context.Background(), "alice", "good")
	require.NoError(t, err)

	m.Logout(context.Background())
	require.Equal(t, StatusAnonymous, m.Status())
	_, ok := m.AccessToken()
	require.False(t, ok)
	require.Nil(t, m.User())

	_, ok, err = creds.Get(credstore.KeyAccessToken)
	require.NoError(t, err)
	require.False(t, ok)
	_, ok, err = creds.Get(credstore.KeyRefreshToken)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRestore_ValidToken(t *testing.T) {
	t.Parallel()
	m, creds, _ := newManager(t, authMux(t))
	require.NoError(t, creds.Set(credstore.KeyAccessToken, "acc-alice"))
	require.NoError(t, creds.Set(credstore.KeyRefreshToken, "ref-alice"))

	st, err := m.Restore(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusAuthenticated, st)
	require.Equal(t, "alice", m.User().Username)
}

func TestRestore_RejectedTokenErasesCredentials(t *testing.T) {
	t.Parallel()
	m, creds, _ := newManager(t, authMux(t))
	require.NoError(t, creds.Set(credstore.KeyAccessToken, "acc-stale"))
	require.NoError(t, creds.Set(credstore.KeyRefreshToken, "ref-stale"))

	st, err := m.Restore(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusAnonymous, st)
	require.Equal(t, StatusAnonymous, m.Status())

	_, ok, err := creds.Get(credstore.KeyAccessToken)
	require.NoError(t, err)
	require.False(t, ok)
	_, ok, err = creds.Get(credstore.KeyRefreshToken)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRestore_NetworkFailureErasesCredentials(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()
	creds := credstore.NewFileStore(t.TempDir())
	require.NoError(t, creds.Set(credstore.KeyAccessToken, "acc-alice"))
	m := New(client.New(srv.URL), creds)

	st, err := m.Restore(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusAnonymous, st)

	_, ok, err := creds.Get(credstore.KeyAccessToken)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRestore_NoStoredToken(t *testing.T) {
	t.Parallel()
	m, _, _ := newManager(t, authMux(t))

	st, err := m.Restore(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusAnonymous, st)
}

func TestRegister_DoesNotLogin(t *testing.T) {
	t.Parallel()
	mux := authMux(t)
	mux.HandleFunc("POST /api/v1/auth/register", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["username"] == "taken" {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"detail":"Username already registered"}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": uuid.Must(uuid.NewV4()), "username": body["username"], "email": body["email"], "is_active": true})
	})
	m, creds, _ := newManager(t, mux)

	u, err := m.Register(context.Background(), "carol", "carol@example.com", "pw12345A")
	require.NoError(t, err)
	require.Equal(t, "carol", u.Username)
	require.Equal(t, StatusAnonymous, m.Status())
	_, ok, err := creds.Get(credstore.KeyAccessToken)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = m.Register(context.Background(), "taken", "t@example.com", "pw12345A")
	require.Error(t, err)
	require.Equal(t, errs.KindValidation, errs.KindOf(err))
	require.Equal(t, "Username already registered", m.LastError())
}
