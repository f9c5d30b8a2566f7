package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/msomdec/taskmate/internal/domain"
	"github.com/msomdec/taskmate/internal/service"
)

// AuthHandler serves the /auth/v1 endpoints.
type AuthHandler struct {
	auth    *service.AuthService
	limiter *service.TokenBucket
}

// NewAuthHandler creates a new AuthHandler. Password grants are throttled per
// email address by limiter.
func NewAuthHandler(auth *service.AuthService, limiter *service.TokenBucket) *AuthHandler {
	return &AuthHandler{auth: auth, limiter: limiter}
}

// HandleSignUp creates an identity and returns its first session.
// POST /auth/v1/signup
// Request:  {"email":"...","password":"...","data":{"full_name":"..."}}
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var req CredentialsDTO
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "Invalid request body.")
		return
	}

	session, err := h.auth.SignUp(r.Context(), req.Email, req.Password, req.Data)
	if err != nil {
		writeDomainError(w, "sign up", err)
		return
	}

	slog.Info("identity registered", "user_id", session.User.ID)
	writeJSON(w, http.StatusOK, toSessionDTO(session, time.Now()))
}

// HandleToken exchanges credentials for a session.
// POST /auth/v1/token?grant_type=password
func (h *AuthHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	if grant := r.URL.Query().Get("grant_type"); grant != "password" {
		writeError(w, http.StatusBadRequest, "unsupported_grant_type", "Only the password grant is supported.")
		return
	}

	var req CredentialsDTO
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "Invalid request body.")
		return
	}

	if !h.limiter.Allow(strings.ToLower(strings.TrimSpace(req.Email))) {
		writeDomainError(w, "sign in", domain.ErrRateLimited)
		return
	}

	session, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			writeError(w, http.StatusBadRequest, "invalid_grant", "Invalid login credentials.")
			return
		}
		writeDomainError(w, "sign in", err)
		return
	}

	writeJSON(w, http.StatusOK, toSessionDTO(session, time.Now()))
}

// HandleLogout revokes the caller's token.
// POST /auth/v1/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.SignOut(r.Context(), tokenFromContext(r.Context())); err != nil {
		writeDomainError(w, "sign out", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleUser returns the authenticated user.
// GET /auth/v1/user
func (h *AuthHandler) HandleUser(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, UserFromContext(r.Context()))
}
