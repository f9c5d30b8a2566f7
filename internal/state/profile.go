package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/msomdec/taskmate/internal/domain"
)

// PrincipalStore is a PrincipalSource that also accepts profile edits.
type PrincipalStore interface {
	PrincipalSource
	ApplyProfile(rec *domain.ProfileRecord)
}

// ProfileAggregator caches the principal's profile together with task
// statistics derived from remote counts.
type ProfileAggregator struct {
	principals PrincipalStore
	profiles   domain.ProfileStore
	tasks      domain.TaskStore

	mu         sync.Mutex
	profile    domain.Profile
	owner      string // principal ID the cache belongs to
	loaded     bool
	fetchSeq   uint64
	appliedSeq uint64
}

// NewProfileAggregator creates a ProfileAggregator holding the default profile.
func NewProfileAggregator(principals PrincipalStore, profiles domain.ProfileStore, tasks domain.TaskStore) *ProfileAggregator {
	return &ProfileAggregator{
		principals: principals,
		profiles:   profiles,
		tasks:      tasks,
		profile:    domain.DefaultProfile(),
	}
}

// Fetch refreshes the cache from the profile row and the task counts. Parts
// that fail to load keep their cached values. Errors are logged and returned
// joined.
func (a *ProfileAggregator) Fetch(ctx context.Context) error {
	p := a.principals.Principal()
	if p == nil {
		return nil
	}

	a.mu.Lock()
	a.switchOwnerLocked(p)
	a.fetchSeq++
	seq := a.fetchSeq
	a.mu.Unlock()

	rec, profileErr := a.profiles.GetProfile(ctx, p.ID)
	total, totalErr := a.tasks.CountTasks(ctx, domain.TaskFilter{OwnerID: p.ID})
	done := true
	completed, completedErr := a.tasks.CountTasks(ctx, domain.TaskFilter{OwnerID: p.ID, Completed: &done})

	if errors.Is(profileErr, domain.ErrNotFound) {
		profileErr = nil
		rec = nil
	}
	var errs []error
	if profileErr != nil {
		errs = append(errs, fmt.Errorf("get profile: %w", profileErr))
	}
	if totalErr != nil {
		errs = append(errs, fmt.Errorf("count tasks: %w", totalErr))
	}
	if completedErr != nil {
		errs = append(errs, fmt.Errorf("count completed tasks: %w", completedErr))
	}
	for _, err := range errs {
		slog.Error("fetch profile", "user_id", p.ID, "error", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if seq < a.appliedSeq || a.owner != p.ID {
		slog.Debug("discarding stale profile", "seq", seq, "applied", a.appliedSeq)
		return errors.Join(errs...)
	}
	a.appliedSeq = seq

	if rec != nil {
		a.profile = mergeRecord(a.profile, rec)
		a.loaded = true
	}
	if totalErr == nil && completedErr == nil {
		stats, anomaly := domain.NewProfileStats(total, completed)
		if anomaly != nil {
			slog.Warn("inconsistent task counts", "user_id", p.ID, "total", anomaly.Total, "completed", anomaly.Completed)
		}
		a.profile.Stats = stats
	}
	return errors.Join(errs...)
}

// Update applies patch to the cache at once and then persists the whole
// profile. A failed write is compensated by a fresh Fetch. Until a profile
// row has been loaded, the unpatched fields come from the principal.
func (a *ProfileAggregator) Update(ctx context.Context, patch domain.ProfilePatch) {
	p := a.principals.Principal()

	a.mu.Lock()
	if p != nil {
		a.switchOwnerLocked(p)
		if !a.loaded {
			a.profile = seedFromPrincipal(a.profile, p)
		}
	}
	a.profile = patch.Apply(a.profile)
	merged := a.profile
	// Fetches started before this edit must not overwrite it.
	a.fetchSeq++
	a.appliedSeq = a.fetchSeq
	a.mu.Unlock()

	if p == nil {
		return
	}

	rec := &domain.ProfileRecord{
		ID:           p.ID,
		Name:         merged.Name,
		Email:        p.Email,
		Role:         merged.Role,
		AboutMe:      merged.Bio,
		ProfileImage: merged.Avatar,
	}
	if err := a.profiles.UpsertProfile(ctx, rec); err != nil {
		slog.Error("update profile", "user_id", p.ID, "error", err)
		_ = a.Fetch(ctx)
		return
	}
	a.principals.ApplyProfile(rec)

	a.mu.Lock()
	if a.owner == p.ID {
		a.loaded = true
	}
	a.mu.Unlock()
}

// TasksChanged refreshes the statistics after the task set changed.
func (a *ProfileAggregator) TasksChanged(ctx context.Context) error {
	return a.Fetch(ctx)
}

// Profile returns a copy of the cached profile.
func (a *ProfileAggregator) Profile() domain.Profile {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.profile
}

// switchOwnerLocked drops the cache when it belongs to another principal.
// In-flight fetches for the previous principal are discarded.
func (a *ProfileAggregator) switchOwnerLocked(p *domain.Principal) {
	if a.owner == p.ID {
		return
	}
	a.owner = p.ID
	a.profile = domain.DefaultProfile()
	a.loaded = false
	a.fetchSeq++
	a.appliedSeq = a.fetchSeq
}

func mergeRecord(cached domain.Profile, rec *domain.ProfileRecord) domain.Profile {
	next := cached
	if rec.Name != "" {
		next.Name = rec.Name
	}
	if rec.ProfileImage != "" {
		next.Avatar = rec.ProfileImage
	}
	next.Role = rec.Role
	if next.Role == "" {
		next.Role = domain.DefaultRole
	}
	next.Bio = rec.AboutMe
	return next
}

func seedFromPrincipal(cached domain.Profile, p *domain.Principal) domain.Profile {
	next := cached
	next.Name = p.Name
	next.Role = p.Role
	if next.Role == "" {
		next.Role = domain.DefaultRole
	}
	next.Bio = p.Bio
	if p.Avatar != "" {
		next.Avatar = p.Avatar
	}
	return next
}
