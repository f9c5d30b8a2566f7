// Package state holds the client-side caches: the session, the task list and
// the aggregated profile. Each is guarded by its own mutex, which is never
// held across a remote call.
package state

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/msomdec/taskmate/internal/domain"
)

// SessionState is the authentication state of the client.
type SessionState int

const (
	StateUnknown SessionState = iota
	StateAuthenticated
	StateAnonymous
)

func (s SessionState) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// SessionRemote is the part of the remote store the session manager uses.
type SessionRemote interface {
	domain.AuthClient
	domain.ProfileStore
}

// PrincipalSource gives other caches read access to the current principal.
type PrincipalSource interface {
	// Principal returns a copy of the current principal, or nil.
	Principal() *domain.Principal
}

// SessionManager owns the authentication state and the current principal.
type SessionManager struct {
	remote         SessionRemote
	insertAttempts int

	mu        sync.RWMutex
	state     SessionState
	principal *domain.Principal
}

// SessionOption configures a SessionManager.
type SessionOption func(*SessionManager)

// WithProfileInsertAttempts sets how many times sign-up tries to create the
// profile row before giving up. Values below 1 are treated as 1.
func WithProfileInsertAttempts(n int) SessionOption {
	return func(m *SessionManager) { m.insertAttempts = max(n, 1) }
}

// NewSessionManager creates a SessionManager in the Unknown state.
func NewSessionManager(remote SessionRemote, opts ...SessionOption) *SessionManager {
	m := &SessionManager{remote: remote, insertAttempts: 2}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize resolves the state from any session the remote already holds.
func (m *SessionManager) Initialize(ctx context.Context) {
	session, err := m.remote.GetSession(ctx)
	if err != nil {
		slog.Error("read session", "error", err)
		m.setAnonymous()
		return
	}
	if session == nil || session.User == nil {
		m.setAnonymous()
		return
	}
	m.commit(m.resolvePrincipal(ctx, session.User))
}

// SignIn authenticates with email and password. A rejection is returned as
// *domain.AuthError and leaves the state untouched.
func (m *SessionManager) SignIn(ctx context.Context, email, password string) error {
	session, err := m.remote.SignInWithPassword(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return authError("sign in", "Login failed", err)
	}
	if session == nil || session.User == nil {
		return &domain.AuthError{Op: "sign in", Message: "Login failed"}
	}

	principal := m.resolvePrincipal(ctx, session.User)
	m.commit(principal)
	slog.Info("signed in", "user_id", principal.ID)
	return nil
}

// SignUp registers a new account, signs it in and creates its profile row.
// A rejection is returned as *domain.AuthError and leaves the state untouched.
func (m *SessionManager) SignUp(ctx context.Context, name, email, password string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		name = domain.PlaceholderName
	}

	session, err := m.remote.SignUp(ctx, strings.TrimSpace(email), password, map[string]string{"full_name": name})
	if err != nil {
		return authError("sign up", "Registration failed", err)
	}
	if session == nil || session.User == nil {
		return &domain.AuthError{Op: "sign up", Message: "Registration failed"}
	}

	principal := &domain.Principal{
		ID:    session.User.ID,
		Name:  name,
		Email: session.User.Email,
		Role:  domain.DefaultRole,
	}
	m.commit(principal)
	slog.Info("signed up", "user_id", principal.ID)

	m.insertProfile(ctx, principal)
	return nil
}

// insertProfile creates the profile row for a new principal. A row that
// already exists counts as success. On persistent failure the principal stays
// signed in and a later profile update recreates the row by upsert.
func (m *SessionManager) insertProfile(ctx context.Context, p *domain.Principal) {
	rec := &domain.ProfileRecord{
		ID:    p.ID,
		Name:  p.Name,
		Email: p.Email,
		Role:  p.Role,
	}
	var err error
	for attempt := 1; attempt <= m.insertAttempts; attempt++ {
		err = m.remote.InsertProfile(ctx, rec)
		if err == nil || errors.Is(err, domain.ErrConflict) {
			return
		}
		slog.Warn("insert profile", "user_id", p.ID, "attempt", attempt, "error", err)
	}
	slog.Error("profile row missing after sign-up", "user_id", p.ID, "error", err)
}

// SignOut ends the session. The local state always ends anonymous, even when
// the remote call fails.
func (m *SessionManager) SignOut(ctx context.Context) {
	if err := m.remote.SignOut(ctx); err != nil {
		slog.Error("sign out", "error", err)
	}
	m.setAnonymous()
}

func (m *SessionManager) State() SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *SessionManager) IsAuthenticated() bool {
	return m.State() == StateAuthenticated
}

func (m *SessionManager) Principal() *domain.Principal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.principal == nil {
		return nil
	}
	cp := *m.principal
	return &cp
}

// ApplyProfile copies the display fields of rec into the principal when rec
// belongs to it.
func (m *SessionManager) ApplyProfile(rec *domain.ProfileRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.principal == nil || m.principal.ID != rec.ID {
		return
	}
	m.principal.Name = rec.Name
	m.principal.Role = rec.Role
	m.principal.Bio = rec.AboutMe
	m.principal.Avatar = rec.ProfileImage
}

// resolvePrincipal builds the principal from the user's profile row, falling
// back to a minimal principal when the row cannot be read.
func (m *SessionManager) resolvePrincipal(ctx context.Context, user *domain.AuthUser) *domain.Principal {
	rec, err := m.remote.GetProfile(ctx, user.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			slog.Warn("read profile", "user_id", user.ID, "error", err)
		}
		return &domain.Principal{ID: user.ID, Email: user.Email, Name: domain.PlaceholderName}
	}
	return domain.PrincipalFromProfile(rec, user.Email)
}

func (m *SessionManager) commit(p *domain.Principal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.principal = p
	m.state = StateAuthenticated
}

func (m *SessionManager) setAnonymous() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.principal = nil
	m.state = StateAnonymous
}

// authError keeps the remote's message when it supplied one.
func authError(op, fallback string, err error) error {
	var remote *domain.AuthError
	if errors.As(err, &remote) && remote.Message != "" {
		return &domain.AuthError{Op: op, Message: remote.Message, Err: err}
	}
	return &domain.AuthError{Op: op, Message: fallback, Err: err}
}
