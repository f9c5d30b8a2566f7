package domain

import (
	"context"
	"fmt"
)

// DefaultAvatar is shown until a profile provides its own image.
const DefaultAvatar = "https://i.pravatar.cc/300"

// ProfileRecord is a row of the profiles table.
type ProfileRecord struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email,omitempty"`
	Role         string `json:"role"`
	AboutMe      string `json:"about_me"`
	ProfileImage string `json:"profile_image,omitempty"`
}

// ProfileStore is the profiles half of the remote store.
type ProfileStore interface {
	// GetProfile returns ErrNotFound when no row has the given id.
	GetProfile(ctx context.Context, id string) (*ProfileRecord, error)
	InsertProfile(ctx context.Context, rec *ProfileRecord) error
	UpsertProfile(ctx context.Context, rec *ProfileRecord) error
}

// ProfileStats are derived task counts. They are never persisted.
type ProfileStats struct {
	Total     int `json:"tasks" yaml:"tasks"`
	Completed int `json:"completed" yaml:"completed"`
	Pending   int `json:"pending" yaml:"pending"`
}

// StatsAnomaly describes counts that violated completed <= total.
type StatsAnomaly struct {
	Total     int
	Completed int
}

func (a *StatsAnomaly) Error() string {
	return fmt.Sprintf("completed count %d exceeds total %d", a.Completed, a.Total)
}

// NewProfileStats derives stats from the two remote counts. Counts that break
// completed <= total (a stale snapshot) are clamped and reported as an
// anomaly; the returned stats always satisfy the invariant.
func NewProfileStats(total, completed int) (ProfileStats, *StatsAnomaly) {
	var anomaly *StatsAnomaly
	total = max(total, 0)
	completed = max(completed, 0)
	if completed > total {
		anomaly = &StatsAnomaly{Total: total, Completed: completed}
		completed = total
	}
	return ProfileStats{
		Total:     total,
		Completed: completed,
		Pending:   max(total-completed, 0),
	}, anomaly
}

// Profile is the aggregated profile the client shows.
type Profile struct {
	Name   string       `json:"name" yaml:"name"`
	Role   string       `json:"role" yaml:"role"`
	Avatar string       `json:"avatar" yaml:"avatar"`
	Bio    string       `json:"bio" yaml:"bio"`
	Stats  ProfileStats `json:"stats" yaml:"stats"`
}

// DefaultProfile is the profile shown before the first fetch.
func DefaultProfile() Profile {
	return Profile{
		Name:   "Loading...",
		Role:   DefaultRole,
		Avatar: DefaultAvatar,
	}
}

// ProfilePatch is a partial profile update; nil fields are left unchanged.
type ProfilePatch struct {
	Name   *string
	Role   *string
	Bio    *string
	Avatar *string
}

// Apply returns p with the patch's non-nil fields applied.
func (patch ProfilePatch) Apply(p Profile) Profile {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Role != nil {
		p.Role = *patch.Role
	}
	if patch.Bio != nil {
		p.Bio = *patch.Bio
	}
	if patch.Avatar != nil {
		p.Avatar = *patch.Avatar
	}
	return p
}

// Empty reports whether the patch changes nothing.
func (patch ProfilePatch) Empty() bool {
	return patch.Name == nil && patch.Role == nil && patch.Bio == nil && patch.Avatar == nil
}
