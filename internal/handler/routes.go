package handler

import (
	"net/http"

	"github.com/msomdec/taskmate/internal/domain"
	"github.com/msomdec/taskmate/internal/service"
)

// RegisterRoutes sets up all HTTP routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, auth *service.AuthService, limiter *service.TokenBucket, profiles domain.ProfileStore, tasks domain.TaskStore) {
	authHandler := NewAuthHandler(auth, limiter)
	rest := NewRestHandler(profiles, tasks)

	protect := func(h http.HandlerFunc) http.Handler {
		return RequireAuth(auth, h)
	}

	mux.HandleFunc("GET /healthz", HandleHealthz)

	// Auth
	mux.HandleFunc("POST /auth/v1/signup", authHandler.HandleSignUp)
	mux.HandleFunc("POST /auth/v1/token", authHandler.HandleToken)
	mux.Handle("POST /auth/v1/logout", protect(authHandler.HandleLogout))
	mux.Handle("GET /auth/v1/user", protect(authHandler.HandleUser))

	// Tables
	mux.Handle("GET /rest/v1/profiles", protect(rest.HandleListProfiles))
	mux.Handle("POST /rest/v1/profiles", protect(rest.HandleWriteProfile))
	mux.Handle("GET /rest/v1/tasks", protect(rest.HandleListTasks))
	mux.Handle("POST /rest/v1/tasks", protect(rest.HandleInsertTask))
	mux.Handle("PATCH /rest/v1/tasks", protect(rest.HandleUpdateTasks))
	mux.Handle("DELETE /rest/v1/tasks", protect(rest.HandleDeleteTasks))
}
