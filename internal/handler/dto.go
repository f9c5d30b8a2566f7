package handler

import (
	"time"

	"github.com/msomdec/taskmate/internal/domain"
)

// ErrorDTO is the body of every non-2xx response.
type ErrorDTO struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// CredentialsDTO is the body of the sign-up and password grant endpoints.
type CredentialsDTO struct {
	Email    string            `json:"email"`
	Password string            `json:"password"`
	Data     map[string]string `json:"data,omitempty"`
}

// SessionDTO is returned by sign-up and sign-in.
type SessionDTO struct {
	AccessToken string           `json:"access_token"`
	TokenType   string           `json:"token_type"`
	ExpiresIn   int64            `json:"expires_in"`
	ExpiresAt   int64            `json:"expires_at"`
	User        *domain.AuthUser `json:"user"`
}

func toSessionDTO(s *domain.Session, now time.Time) SessionDTO {
	return SessionDTO{
		AccessToken: s.AccessToken,
		TokenType:   s.TokenType,
		ExpiresIn:   int64(s.ExpiresAt.Sub(now).Seconds()),
		ExpiresAt:   s.ExpiresAt.Unix(),
		User:        s.User,
	}
}

// TaskInsertDTO is the body of POST /rest/v1/tasks.
type TaskInsertDTO struct {
	UserID      string `json:"user_id"`
	Title       string `json:"title"`
	IsCompleted bool   `json:"is_completed"`
}

// TaskPatchDTO is the body of PATCH /rest/v1/tasks.
type TaskPatchDTO struct {
	Title       *string `json:"title,omitempty"`
	IsCompleted *bool   `json:"is_completed,omitempty"`
}

func (d TaskPatchDTO) toPatch() domain.TaskPatch {
	return domain.TaskPatch{Title: d.Title, Completed: d.IsCompleted}
}
