package state_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/msomdec/taskmate/internal/domain"
	"github.com/msomdec/taskmate/internal/state"
	"github.com/msomdec/taskmate/internal/testutil"
)

func sessionFor(id, email string) *domain.Session {
	return &domain.Session{
		AccessToken: "token",
		ExpiresAt:   time.Now().Add(time.Hour),
		User:        &domain.AuthUser{ID: id, Email: email},
	}
}

func TestSessionState_String(t *testing.T) {
	for s, want := range map[state.SessionState]string{
		state.StateUnknown:       "unknown",
		state.StateAuthenticated: "authenticated",
		state.StateAnonymous:     "anonymous",
	} {
		if got := s.String(); got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	}
}

func TestSessionManager_StartsUnknown(t *testing.T) {
	h := newHarness(t)
	if h.session.State() != state.StateUnknown || h.session.Principal() != nil {
		t.Fatal("expected unknown state and no principal before Initialize")
	}
}

func TestSessionManager_Initialize(t *testing.T) {
	t.Run("no session", func(t *testing.T) {
		h := newHarness(t)
		h.session.Initialize(context.Background())
		if h.session.State() != state.StateAnonymous {
			t.Fatalf("expected anonymous, got %s", h.session.State())
		}
	})

	t.Run("session with profile", func(t *testing.T) {
		h := newHarness(t)
		h.remote.SetSession(sessionFor("u1", "session@example.com"))
		h.remote.PutProfile(domain.ProfileRecord{
			ID: "u1", Name: "Ada", Email: "stale@example.com", Role: "Lead", AboutMe: "bio", ProfileImage: "img",
		})

		h.session.Initialize(context.Background())

		p := h.session.Principal()
		if !h.session.IsAuthenticated() || p == nil {
			t.Fatal("expected authenticated principal")
		}
		want := domain.Principal{ID: "u1", Name: "Ada", Email: "session@example.com", Role: "Lead", Bio: "bio", Avatar: "img"}
		if *p != want {
			t.Fatalf("expected %+v, got %+v", want, *p)
		}
	})

	t.Run("session without profile", func(t *testing.T) {
		h := newHarness(t)
		h.remote.SetSession(sessionFor("u2", "bare@example.com"))

		h.session.Initialize(context.Background())

		p := h.session.Principal()
		if p == nil || p.ID != "u2" || p.Email != "bare@example.com" || p.Name != domain.PlaceholderName {
			t.Fatalf("expected minimal principal, got %+v", p)
		}
	})

	t.Run("profile read error", func(t *testing.T) {
		h := newHarness(t)
		h.remote.SetSession(sessionFor("u3", "err@example.com"))
		h.remote.PutProfile(domain.ProfileRecord{ID: "u3", Name: "Hidden"})
		h.remote.Fail(testutil.OpGetProfile, errors.New("network down"))

		h.session.Initialize(context.Background())

		p := h.session.Principal()
		if p == nil || p.Name != domain.PlaceholderName {
			t.Fatalf("expected minimal principal, got %+v", p)
		}
	})

	t.Run("session read error", func(t *testing.T) {
		h := newHarness(t)
		h.remote.Fail(testutil.OpGetSession, errors.New("corrupt session file"))

		h.session.Initialize(context.Background())

		if h.session.State() != state.StateAnonymous || h.session.Principal() != nil {
			t.Fatal("expected anonymous after session read error")
		}
	})
}

func TestSessionManager_SignIn(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.remote.AddUser("ada@example.com", "password123")
	h.remote.PutProfile(domain.ProfileRecord{ID: id, Name: "Ada", Role: "Lead"})
	h.session.Initialize(ctx)

	if err := h.session.SignIn(ctx, "  ada@example.com ", "password123"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	p := h.session.Principal()
	if p == nil || p.ID != id || p.Name != "Ada" || p.Email != "ada@example.com" {
		t.Fatalf("unexpected principal %+v", p)
	}
}

func TestSessionManager_SignInRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.remote.AddUser("ada@example.com", "password123")
	h.session.Initialize(ctx)

	err := h.session.SignIn(ctx, "ada@example.com", "wrong")

	var authErr *domain.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.Message != "Invalid login credentials" {
		t.Fatalf("expected remote message, got %q", authErr.Message)
	}
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized in chain, got %v", err)
	}
	if h.session.State() != state.StateAnonymous || h.session.Principal() != nil {
		t.Fatal("rejected sign-in must not change state")
	}
}

func TestSessionManager_SignInTransportError(t *testing.T) {
	h := newHarness(t)
	boom := errors.New("connection refused")
	h.remote.Fail(testutil.OpSignIn, boom)

	err := h.session.SignIn(context.Background(), "ada@example.com", "password123")

	var authErr *domain.AuthError
	if !errors.As(err, &authErr) || authErr.Message != "Login failed" {
		t.Fatalf("expected default message, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected cause in chain, got %v", err)
	}
}

func TestSessionManager_SignUp(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.session.SignUp(ctx, " Grace ", " grace@example.com", "password123"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	p := h.session.Principal()
	if p == nil || p.Name != "Grace" || p.Role != domain.DefaultRole || p.Bio != "" || p.Email != "grace@example.com" {
		t.Fatalf("unexpected principal %+v", p)
	}

	rec, ok := h.remote.Profile(p.ID)
	if !ok {
		t.Fatal("expected profile row to be inserted")
	}
	if rec.Name != "Grace" || rec.Email != "grace@example.com" || rec.Role != domain.DefaultRole {
		t.Fatalf("unexpected profile row %+v", rec)
	}
}

func TestSessionManager_SignUpDuplicate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.remote.AddUser("taken@example.com", "password123")
	h.session.Initialize(ctx)

	err := h.session.SignUp(ctx, "Someone", "taken@example.com", "password123")

	var authErr *domain.AuthError
	if !errors.As(err, &authErr) || !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected duplicate AuthError, got %v", err)
	}
	if h.session.Principal() != nil || h.session.State() != state.StateAnonymous {
		t.Fatal("duplicate sign-up must leave the principal untouched")
	}
	if n := h.remote.Calls(testutil.OpInsertProfile); n != 0 {
		t.Fatalf("expected no profile insert, got %d", n)
	}
}

func TestSessionManager_SignUpDuplicateKeepsSignedInPrincipal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.remote.AddUser("taken@example.com", "password123")
	id := h.signUp(t, "Ada", "ada@example.com")
	before := h.session.Principal()

	err := h.session.SignUp(ctx, "Someone", "taken@example.com", "password123")

	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	after := h.session.Principal()
	if after == nil || after.ID != id || *after != *before {
		t.Fatalf("expected principal %+v to be kept, got %+v", before, after)
	}
	if h.session.State() != state.StateAuthenticated {
		t.Fatalf("expected authenticated, got %s", h.session.State())
	}
}

func TestSessionManager_SignUpDefaultMessage(t *testing.T) {
	h := newHarness(t)
	h.remote.Fail(testutil.OpSignUp, errors.New("boom"))

	err := h.session.SignUp(context.Background(), "X", "x@example.com", "password123")

	var authErr *domain.AuthError
	if !errors.As(err, &authErr) || authErr.Message != "Registration failed" {
		t.Fatalf("expected default message, got %v", err)
	}
}

func TestSessionManager_SignUpRetriesProfileInsert(t *testing.T) {
	h := newHarness(t, state.WithProfileInsertAttempts(3))
	h.remote.FailN(testutil.OpInsertProfile, errors.New("flaky"), 2)

	id := h.signUp(t, "Retry", "retry@example.com")

	if n := h.remote.Calls(testutil.OpInsertProfile); n != 3 {
		t.Fatalf("expected 3 insert attempts, got %d", n)
	}
	if _, ok := h.remote.Profile(id); !ok {
		t.Fatal("expected profile row after retries")
	}
}

func TestSessionManager_SignUpProfileInsertGivesUp(t *testing.T) {
	h := newHarness(t)
	h.remote.Fail(testutil.OpInsertProfile, errors.New("down"))

	id := h.signUp(t, "Degraded", "degraded@example.com")

	if n := h.remote.Calls(testutil.OpInsertProfile); n != 2 {
		t.Fatalf("expected 2 insert attempts, got %d", n)
	}
	if !h.session.IsAuthenticated() {
		t.Fatal("expected to stay authenticated")
	}
	if _, ok := h.remote.Profile(id); ok {
		t.Fatal("expected no profile row")
	}

	// A later profile edit recreates the row.
	h.remote.Fail(testutil.OpInsertProfile, nil)
	bio := "back"
	h.profile.Update(context.Background(), domain.ProfilePatch{Bio: &bio})
	rec, ok := h.remote.Profile(id)
	if !ok || rec.AboutMe != "back" || rec.Email != "degraded@example.com" {
		t.Fatalf("expected upsert to heal the row, got %+v (%v)", rec, ok)
	}
}

func TestSessionManager_SignUpExistingRowIsSuccess(t *testing.T) {
	h := newHarness(t)
	h.remote.Fail(testutil.OpInsertProfile, domain.ErrConflict)

	h.signUp(t, "Conflict", "conflict@example.com")

	if n := h.remote.Calls(testutil.OpInsertProfile); n != 1 {
		t.Fatalf("expected a single insert attempt, got %d", n)
	}
}

func TestSessionManager_SignOutAlwaysAnonymous(t *testing.T) {
	h := newHarness(t)
	h.signUp(t, "Leaving", "leaving@example.com")
	h.remote.Fail(testutil.OpSignOut, errors.New("network down"))

	h.session.SignOut(context.Background())

	if h.session.State() != state.StateAnonymous || h.session.Principal() != nil {
		t.Fatal("expected anonymous with no principal after sign-out")
	}
}

func TestSessionManager_ApplyProfile(t *testing.T) {
	h := newHarness(t)
	id := h.signUp(t, "Before", "apply@example.com")

	h.session.ApplyProfile(&domain.ProfileRecord{ID: "someone-else", Name: "Intruder"})
	if h.session.Principal().Name != "Before" {
		t.Fatal("profile for another id must be ignored")
	}

	h.session.ApplyProfile(&domain.ProfileRecord{ID: id, Name: "After", Role: "Lead", AboutMe: "bio", ProfileImage: "img"})
	p := h.session.Principal()
	if p.Name != "After" || p.Role != "Lead" || p.Bio != "bio" || p.Avatar != "img" || p.Email != "apply@example.com" {
		t.Fatalf("unexpected principal %+v", p)
	}
}

func TestSessionManager_PrincipalIsACopy(t *testing.T) {
	h := newHarness(t)
	h.signUp(t, "Original", "copy@example.com")

	h.session.Principal().Name = "Mutated"

	if h.session.Principal().Name != "Original" {
		t.Fatal("mutating the returned principal must not affect the manager")
	}
}
