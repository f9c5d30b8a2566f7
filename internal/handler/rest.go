package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/msomdec/taskmate/internal/domain"
)

// RestHandler serves the /rest/v1 table endpoints. Every query is pinned to
// the authenticated user's own rows.
type RestHandler struct {
	profiles domain.ProfileStore
	tasks    domain.TaskStore
}

// NewRestHandler creates a new RestHandler.
func NewRestHandler(profiles domain.ProfileStore, tasks domain.TaskStore) *RestHandler {
	return &RestHandler{profiles: profiles, tasks: tasks}
}

// HandleListProfiles returns the caller's profile as a zero- or one-element array.
// GET /rest/v1/profiles?id=eq.<id>
func (h *RestHandler) HandleListProfiles(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	id := user.ID
	if raw := r.URL.Query().Get("id"); raw != "" {
		v, err := parseEq(raw)
		if err != nil {
			writeDomainError(w, "list profiles", err)
			return
		}
		id = v
	}
	if id != user.ID {
		writeDomainError(w, "list profiles", domain.ErrForbidden)
		return
	}

	rec, err := h.profiles.GetProfile(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusOK, []domain.ProfileRecord{})
			return
		}
		writeDomainError(w, "get profile", err)
		return
	}
	writeJSON(w, http.StatusOK, []domain.ProfileRecord{*rec})
}

// HandleWriteProfile inserts the caller's profile, or upserts it when the
// request carries "Prefer: resolution=merge-duplicates".
// POST /rest/v1/profiles
func (h *RestHandler) HandleWriteProfile(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var rec domain.ProfileRecord
	if err := readJSON(w, r, &rec); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "Invalid request body.")
		return
	}
	if rec.ID == "" {
		rec.ID = user.ID
	}
	if rec.ID != user.ID {
		writeDomainError(w, "write profile", domain.ErrForbidden)
		return
	}

	var err error
	if preferMergeDuplicates(r) {
		err = h.profiles.UpsertProfile(r.Context(), &rec)
	} else {
		err = h.profiles.InsertProfile(r.Context(), &rec)
	}
	if err != nil {
		writeDomainError(w, "write profile", err)
		return
	}
	writeJSON(w, http.StatusCreated, []domain.ProfileRecord{rec})
}

// HandleListTasks returns the caller's tasks, newest first. HEAD requests
// carry only the row count in Content-Range.
// GET|HEAD /rest/v1/tasks?user_id=eq.<id>[&is_completed=eq.<bool>][&order=created_at.desc]
func (h *RestHandler) HandleListTasks(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.ownedFilter(w, r, "list tasks")
	if !ok {
		return
	}

	if r.Method == http.MethodHead {
		count, err := h.tasks.CountTasks(r.Context(), filter)
		if err != nil {
			writeDomainError(w, "count tasks", err)
			return
		}
		w.Header().Set("Content-Range", "*/"+strconv.Itoa(count))
		w.WriteHeader(http.StatusOK)
		return
	}

	tasks, err := h.tasks.ListTasks(r.Context(), filter)
	if err != nil {
		writeDomainError(w, "list tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// HandleInsertTask creates a task owned by the caller.
// POST /rest/v1/tasks
func (h *RestHandler) HandleInsertTask(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var req TaskInsertDTO
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "Invalid request body.")
		return
	}
	if req.UserID != "" && req.UserID != user.ID {
		writeDomainError(w, "insert task", domain.ErrForbidden)
		return
	}

	task := &domain.Task{OwnerID: user.ID, Title: req.Title, Completed: req.IsCompleted}
	if err := h.tasks.InsertTask(r.Context(), task); err != nil {
		writeDomainError(w, "insert task", err)
		return
	}
	writeJSON(w, http.StatusCreated, []domain.Task{*task})
}

// HandleUpdateTasks applies a patch to the caller's matching tasks.
// PATCH /rest/v1/tasks?id=eq.<n>
func (h *RestHandler) HandleUpdateTasks(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.ownedFilter(w, r, "update tasks")
	if !ok {
		return
	}

	var req TaskPatchDTO
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "Invalid request body.")
		return
	}

	if err := h.tasks.UpdateTasks(r.Context(), filter, req.toPatch()); err != nil {
		writeDomainError(w, "update tasks", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDeleteTasks deletes the caller's matching tasks.
// DELETE /rest/v1/tasks?id=eq.<n>
func (h *RestHandler) HandleDeleteTasks(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.ownedFilter(w, r, "delete tasks")
	if !ok {
		return
	}

	if err := h.tasks.DeleteTasks(r.Context(), filter); err != nil {
		writeDomainError(w, "delete tasks", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RestHandler) ownedFilter(w http.ResponseWriter, r *http.Request, op string) (domain.TaskFilter, bool) {
	filter, err := parseTaskFilter(r.URL.Query())
	if err != nil {
		writeDomainError(w, op, err)
		return filter, false
	}
	if err := pinOwner(&filter, UserFromContext(r.Context()).ID); err != nil {
		writeDomainError(w, op, err)
		return filter, false
	}
	return filter, true
}

func preferMergeDuplicates(r *http.Request) bool {
	for _, v := range r.Header.Values("Prefer") {
		for _, part := range strings.Split(v, ",") {
			if strings.TrimSpace(part) == "resolution=merge-duplicates" {
				return true
			}
		}
	}
	return false
}
