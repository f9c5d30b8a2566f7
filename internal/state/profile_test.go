package state_test

import (
	"context"
	"errors"
	"testing"

	"github.com/msomdec/taskmate/internal/domain"
	"github.com/msomdec/taskmate/internal/testutil"
)

func strPtr(s string) *string { return &s }

func TestProfileAggregator_Defaults(t *testing.T) {
	h := newHarness(t)
	if got := h.profile.Profile(); got != domain.DefaultProfile() {
		t.Fatalf("expected default profile, got %+v", got)
	}
}

func TestProfileAggregator_FetchWithoutPrincipal(t *testing.T) {
	h := newHarness(t)
	if err := h.profile.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if n := h.remote.Calls(testutil.OpGetProfile); n != 0 {
		t.Fatalf("expected no remote call, got %d", n)
	}
}

func TestProfileAggregator_FetchMerges(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.signUp(t, "Ada", "ada@example.com")
	h.remote.SeedTask(id, "a", true)
	h.remote.SeedTask(id, "b", false)
	h.remote.SeedTask(id, "c", false)
	h.remote.PutProfile(domain.ProfileRecord{ID: id, Name: "Ada L.", Role: "Lead", AboutMe: "bio", ProfileImage: "img"})

	if err := h.profile.Fetch(ctx); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	want := domain.Profile{
		Name: "Ada L.", Role: "Lead", Bio: "bio", Avatar: "img",
		Stats: domain.ProfileStats{Total: 3, Completed: 1, Pending: 2},
	}
	if got := h.profile.Profile(); got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	// Empty fields fall back: name and avatar to the cache, role to the default.
	h.remote.PutProfile(domain.ProfileRecord{ID: id})
	if err := h.profile.Fetch(ctx); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	got := h.profile.Profile()
	if got.Name != "Ada L." || got.Avatar != "img" || got.Role != domain.DefaultRole || got.Bio != "" {
		t.Fatalf("unexpected fallback merge %+v", got)
	}
}

func TestProfileAggregator_MissingRowKeepsCache(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.remote.Fail(testutil.OpInsertProfile, errors.New("down"))
	id := h.signUp(t, "Ada", "ada@example.com")
	h.remote.SeedTask(id, "a", false)

	if err := h.profile.Fetch(ctx); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	got := h.profile.Profile()
	if got.Name != domain.DefaultProfile().Name || got.Role != domain.DefaultRole {
		t.Fatalf("expected cached fields to remain, got %+v", got)
	}
	if got.Stats.Total != 1 {
		t.Fatalf("expected stats to still refresh, got %+v", got.Stats)
	}
}

func TestProfileAggregator_CountErrorKeepsStats(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.signUp(t, "Ada", "ada@example.com")
	h.remote.SeedTask(id, "a", true)
	if err := h.profile.Fetch(ctx); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	h.remote.SeedTask(id, "b", false)
	boom := errors.New("count failed")
	h.remote.Fail(testutil.OpCountTasks, boom)
	h.remote.PutProfile(domain.ProfileRecord{ID: id, Name: "Renamed"})

	err := h.profile.Fetch(ctx)
	if !errors.Is(err, boom) {
		t.Fatalf("expected count error, got %v", err)
	}

	got := h.profile.Profile()
	if got.Stats != (domain.ProfileStats{Total: 1, Completed: 1, Pending: 0}) {
		t.Fatalf("expected cached stats, got %+v", got.Stats)
	}
	if got.Name != "Renamed" {
		t.Fatalf("expected the row to still merge, got %q", got.Name)
	}
}

func TestProfileAggregator_ClampsInconsistentCounts(t *testing.T) {
	h := newHarness(t)
	h.signUp(t, "Ada", "ada@example.com")
	h.remote.CountFunc = func(filter domain.TaskFilter) (int, error) {
		if filter.Completed != nil {
			return 6, nil
		}
		return 5, nil
	}

	if err := h.profile.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if got := h.profile.Profile().Stats; got != (domain.ProfileStats{Total: 5, Completed: 5, Pending: 0}) {
		t.Fatalf("expected clamped stats, got %+v", got)
	}
}

func TestProfileAggregator_UpdateWithoutPrincipal(t *testing.T) {
	h := newHarness(t)

	h.profile.Update(context.Background(), domain.ProfilePatch{Bio: strPtr("local")})

	if got := h.profile.Profile().Bio; got != "local" {
		t.Fatalf("expected local merge, got %q", got)
	}
	if n := h.remote.Calls(testutil.OpUpsertProfile); n != 0 {
		t.Fatalf("expected no upsert, got %d", n)
	}
}

func TestProfileAggregator_Update(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.signUp(t, "Ada", "ada@example.com")
	if err := h.profile.Fetch(ctx); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	h.profile.Update(ctx, domain.ProfilePatch{Name: strPtr("Ada Lovelace"), Role: strPtr("Engineer")})

	got := h.profile.Profile()
	if got.Name != "Ada Lovelace" || got.Role != "Engineer" {
		t.Fatalf("unexpected cache %+v", got)
	}
	rec, _ := h.remote.Profile(id)
	if rec.Name != "Ada Lovelace" || rec.Role != "Engineer" || rec.Email != "ada@example.com" {
		t.Fatalf("unexpected stored row %+v", rec)
	}
	if p := h.session.Principal(); p.Name != "Ada Lovelace" || p.Role != "Engineer" {
		t.Fatalf("expected principal to follow the edit, got %+v", p)
	}
}

func TestProfileAggregator_SwitchingAccountsResetsCache(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.signUp(t, "Ada", "ada@example.com")
	h.profile.Update(ctx, domain.ProfilePatch{
		Role:   strPtr("Lead"),
		Bio:    strPtr("ada private bio"),
		Avatar: strPtr("https://ada.example/me.png"),
	})
	h.settle()
	h.session.SignOut(ctx)

	bob := h.signUp(t, "Bob", "bob@example.com")
	h.profile.Update(ctx, domain.ProfilePatch{Name: strPtr("Bobby")})

	rec, ok := h.remote.Profile(bob)
	if !ok {
		t.Fatal("expected bob's profile row")
	}
	want := domain.ProfileRecord{
		ID: bob, Name: "Bobby", Email: "bob@example.com",
		Role: domain.DefaultRole, AboutMe: "", ProfileImage: domain.DefaultAvatar,
	}
	if rec != want {
		t.Fatalf("expected %+v, got %+v", want, rec)
	}
	if got := h.profile.Profile(); got.Bio != "" || got.Role != domain.DefaultRole || got.Avatar != domain.DefaultAvatar {
		t.Fatalf("cache still holds the previous account's fields: %+v", got)
	}
}

func TestProfileAggregator_FetchAfterSwitchDoesNotFallBackToPreviousAccount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	ada := h.signUp(t, "Ada", "ada@example.com")
	h.remote.PutProfile(domain.ProfileRecord{ID: ada, Name: "Ada", ProfileImage: "https://ada.example/me.png"})
	if err := h.profile.Fetch(ctx); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	h.session.SignOut(ctx)

	bob := h.signUp(t, "Bob", "bob@example.com")
	h.remote.PutProfile(domain.ProfileRecord{ID: bob})
	if err := h.profile.Fetch(ctx); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	got := h.profile.Profile()
	if got.Name == "Ada" || got.Avatar == "https://ada.example/me.png" {
		t.Fatalf("fetch fell back to the previous account's fields: %+v", got)
	}
}

func TestProfileAggregator_UpdateFailureRefetches(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signUp(t, "Ada", "ada@example.com")
	if err := h.profile.Fetch(ctx); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	h.remote.Fail(testutil.OpUpsertProfile, errors.New("write failed"))

	h.profile.Update(ctx, domain.ProfilePatch{Name: strPtr("Nope")})

	if got := h.profile.Profile().Name; got != "Ada" {
		t.Fatalf("expected the refetch to restore the stored name, got %q", got)
	}
	if p := h.session.Principal(); p.Name != "Ada" {
		t.Fatalf("principal must not take a failed edit, got %q", p.Name)
	}
}

func TestProfileAggregator_StaleFetchDiscarded(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.signUp(t, "Ada", "ada@example.com")
	if err := h.profile.Fetch(ctx); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	g := newGate()
	h.remote.Hook(testutil.OpGetProfile, g.hook)
	fetched := make(chan error, 1)
	go func() { fetched <- h.profile.Fetch(ctx) }()
	<-g.entered

	// The edit lands while the older fetch is in flight.
	h.profile.Update(ctx, domain.ProfilePatch{Bio: strPtr("fresh")})
	// Whatever the older fetch reads now must not replace the edit.
	h.remote.PutProfile(domain.ProfileRecord{ID: id, Name: "Ada", AboutMe: "stale"})

	g.release()
	if err := <-fetched; err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if got := h.profile.Profile().Bio; got != "fresh" {
		t.Fatalf("expected the stale fetch to be discarded, got bio %q", got)
	}
}

func TestProfileAggregator_RefreshesOnTaskChanges(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signUp(t, "Ada", "ada@example.com")

	h.tasks.Create(ctx, "one")
	h.settle()

	if got := h.profile.Profile().Stats.Total; got != 1 {
		t.Fatalf("expected stats to follow the task list, got %d", got)
	}
}
