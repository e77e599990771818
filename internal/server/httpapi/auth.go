package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/RamanVasko/freshkeep/internal/model"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse carries the token pair plus the profile so clients need no
// follow-up /auth/me call.
type loginResponse struct {
	model.Tokens
	User model.User `json:"user"`
}

// handleRegister creates an account. It does not log the new user in.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	u, err := s.auth.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, err, "Registration failed")
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// handleLogin authenticates and returns the token pair with the profile.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	tokens, u, err := s.auth.LoginWithIP(r.Context(), req.Username, req.Password, r.RemoteAddr)
	if err != nil {
		writeError(w, err, "Login failed")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Tokens: tokens, User: u})
}

// handleLogout acknowledges the logout. Tokens are stateless so there is
// nothing to revoke server-side; the client erases its copies.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// handleMe returns the profile of the access-token subject.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	uid, ok := UserIDFromCtx(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	u, err := s.auth.UserByID(r.Context(), uid)
	if err != nil {
		writeError(w, err, "Failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, u)
}
