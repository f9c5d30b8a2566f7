package remote

import (
	"time"

	"github.com/msomdec/taskmate/internal/domain"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type credentialsBody struct {
	Email    string            `json:"email"`
	Password string            `json:"password"`
	Data     map[string]string `json:"data,omitempty"`
}

type sessionBody struct {
	AccessToken string           `json:"access_token"`
	TokenType   string           `json:"token_type"`
	ExpiresIn   int64            `json:"expires_in"`
	ExpiresAt   int64            `json:"expires_at"`
	User        *domain.AuthUser `json:"user"`
}

func (b sessionBody) toSession(now time.Time) *domain.Session {
	expires := time.Unix(b.ExpiresAt, 0).UTC()
	if b.ExpiresAt == 0 && b.ExpiresIn > 0 {
		expires = now.Add(time.Duration(b.ExpiresIn) * time.Second).UTC()
	}
	return &domain.Session{
		AccessToken: b.AccessToken,
		TokenType:   b.TokenType,
		ExpiresAt:   expires,
		User:        b.User,
	}
}

type taskInsertBody struct {
	UserID      string `json:"user_id"`
	Title       string `json:"title"`
	IsCompleted bool   `json:"is_completed"`
}

type taskPatchBody struct {
	Title       *string `json:"title,omitempty"`
	IsCompleted *bool   `json:"is_completed,omitempty"`
}
