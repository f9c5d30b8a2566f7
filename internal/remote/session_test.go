package remote_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/msomdec/taskmate/internal/domain"
	"github.com/msomdec/taskmate/internal/remote"
)

func TestFileSessionStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := remote.NewFileSessionStore(path)

	if s, err := store.Load(); err != nil || s != nil {
		t.Fatalf("expected empty store, got %v (%v)", s, err)
	}

	want := &domain.Session{
		AccessToken: "token",
		TokenType:   "bearer",
		ExpiresAt:   time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC),
		User:        &domain.AuthUser{ID: "u1", Email: "a@example.com"},
	}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat session: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected mode 0600, got %o", perm)
	}

	got, err := remote.NewFileSessionStore(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.AccessToken != "token" || got.User.ID != "u1" || !got.ExpiresAt.Equal(want.ExpiresAt) {
		t.Fatalf("unexpected session %+v", got)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
	if s, _ := store.Load(); s != nil {
		t.Fatal("expected cleared store")
	}
}

func TestMemorySessionStore_ReturnsCopies(t *testing.T) {
	store := &remote.MemorySessionStore{}
	if err := store.Save(&domain.Session{AccessToken: "a"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	s, _ := store.Load()
	s.AccessToken = "mutated"

	again, _ := store.Load()
	if again.AccessToken != "a" {
		t.Fatalf("expected stored copy to be unchanged, got %q", again.AccessToken)
	}
}
