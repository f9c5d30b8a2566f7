// Package testutil holds in-memory fakes shared by tests.
package testutil

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/msomdec/taskmate/internal/domain"
)

// Operation names accepted by Fail, Calls and Hook.
const (
	OpGetSession    = "GetSession"
	OpSignIn        = "SignInWithPassword"
	OpSignUp        = "SignUp"
	OpSignOut       = "SignOut"
	OpGetProfile    = "GetProfile"
	OpInsertProfile = "InsertProfile"
	OpUpsertProfile = "UpsertProfile"
	OpListTasks     = "ListTasks"
	OpInsertTask    = "InsertTask"
	OpUpdateTasks   = "UpdateTasks"
	OpDeleteTasks   = "DeleteTasks"
	OpCountTasks    = "CountTasks"
)

type fakeUser struct {
	id       string
	password string
	metadata map[string]string
}

type failure struct {
	err       error
	remaining int // negative means forever
}

// FakeRemote is an in-memory domain.RemoteStore. It is safe for concurrent
// use. Errors can be injected per operation and every call is counted.
type FakeRemote struct {
	mu       sync.Mutex
	session  *domain.Session
	users    map[string]fakeUser
	profiles map[string]domain.ProfileRecord
	tasks    []domain.Task
	nextID   int64
	epoch    time.Time
	failures map[string]*failure
	calls    map[string]int
	hooks    map[string]func(ctx context.Context)

	// CountFunc, when set, replaces CountTasks' answer.
	CountFunc func(filter domain.TaskFilter) (int, error)
}

var _ domain.RemoteStore = (*FakeRemote)(nil)

// NewFakeRemote creates an empty FakeRemote with no session.
func NewFakeRemote() *FakeRemote {
	return &FakeRemote{
		users:    make(map[string]fakeUser),
		profiles: make(map[string]domain.ProfileRecord),
		epoch:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		failures: make(map[string]*failure),
		calls:    make(map[string]int),
		hooks:    make(map[string]func(context.Context)),
	}
}

// Fail makes op return err on every call until cleared with a nil err.
func (f *FakeRemote) Fail(op string, err error) {
	f.FailN(op, err, -1)
}

// FailN makes the next n calls of op return err.
func (f *FakeRemote) FailN(op string, err error, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, op)
		return
	}
	f.failures[op] = &failure{err: err, remaining: n}
}

// Hook runs fn at the start of every call of op, outside the fake's lock.
// Tests use it to hold a call in flight.
func (f *FakeRemote) Hook(op string, fn func(ctx context.Context)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fn == nil {
		delete(f.hooks, op)
		return
	}
	f.hooks[op] = fn
}

// Calls reports how many times op was invoked.
func (f *FakeRemote) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// AddUser registers an identity and returns its ID.
func (f *FakeRemote) AddUser(email, password string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.NewString()
	f.users[strings.ToLower(email)] = fakeUser{id: id, password: password}
	return id
}

// SetSession replaces the current session; nil signs out.
func (f *FakeRemote) SetSession(s *domain.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = s
}

// PutProfile stores rec as-is.
func (f *FakeRemote) PutProfile(rec domain.ProfileRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[rec.ID] = rec
}

// Profile returns the stored row for id.
func (f *FakeRemote) Profile(id string) (domain.ProfileRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.profiles[id]
	return rec, ok
}

// SeedTask stores a task and returns it with its assigned ID.
func (f *FakeRemote) SeedTask(owner, title string, completed bool) domain.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insertLocked(domain.Task{OwnerID: owner, Title: title, Completed: completed})
}

// StoredTasks returns every task held by the fake in insertion order.
func (f *FakeRemote) StoredTasks() []domain.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.tasks)
}

func (f *FakeRemote) insertLocked(t domain.Task) domain.Task {
	f.nextID++
	t.ID = f.nextID
	t.CreatedAt = f.epoch.Add(time.Duration(f.nextID) * time.Second)
	f.tasks = append(f.tasks, t)
	return t
}

// enter counts the call, runs its hook and returns any injected error.
func (f *FakeRemote) enter(ctx context.Context, op string) error {
	f.mu.Lock()
	f.calls[op]++
	hook := f.hooks[op]
	f.mu.Unlock()

	if hook != nil {
		hook(ctx)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	fail, ok := f.failures[op]
	if !ok {
		return nil
	}
	if fail.remaining > 0 {
		fail.remaining--
		if fail.remaining == 0 {
			delete(f.failures, op)
		}
	}
	return fail.err
}

func (f *FakeRemote) GetSession(ctx context.Context) (*domain.Session, error) {
	if err := f.enter(ctx, OpGetSession); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.session == nil {
		return nil, nil
	}
	cp := *f.session
	return &cp, nil
}

func (f *FakeRemote) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	if err := f.enter(ctx, OpSignIn); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[strings.ToLower(email)]
	if !ok || u.password != password {
		return nil, &domain.AuthError{Op: "sign in", Message: "Invalid login credentials", Err: domain.ErrUnauthorized}
	}
	return f.startSessionLocked(u.id, email, u.metadata), nil
}

func (f *FakeRemote) SignUp(ctx context.Context, email, password string, metadata map[string]string) (*domain.Session, error) {
	if err := f.enter(ctx, OpSignUp); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strings.ToLower(email)
	if _, exists := f.users[key]; exists {
		return nil, &domain.AuthError{Op: "sign up", Message: "User already registered", Err: domain.ErrDuplicateEmail}
	}
	if len(password) < 8 {
		return nil, &domain.AuthError{Op: "sign up", Message: "Password should be at least 8 characters", Err: domain.ErrInvalidInput}
	}
	u := fakeUser{id: uuid.NewString(), password: password, metadata: metadata}
	f.users[key] = u
	return f.startSessionLocked(u.id, email, metadata), nil
}

func (f *FakeRemote) startSessionLocked(id, email string, metadata map[string]string) *domain.Session {
	f.session = &domain.Session{
		AccessToken: uuid.NewString(),
		TokenType:   "bearer",
		ExpiresAt:   time.Now().Add(time.Hour),
		User:        &domain.AuthUser{ID: id, Email: email, Metadata: metadata},
	}
	cp := *f.session
	return &cp
}

func (f *FakeRemote) SignOut(ctx context.Context) error {
	err := f.enter(ctx, OpSignOut)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = nil
	return err
}

func (f *FakeRemote) GetProfile(ctx context.Context, id string) (*domain.ProfileRecord, error) {
	if err := f.enter(ctx, OpGetProfile); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.profiles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (f *FakeRemote) InsertProfile(ctx context.Context, rec *domain.ProfileRecord) error {
	if err := f.enter(ctx, OpInsertProfile); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.profiles[rec.ID]; exists {
		return domain.ErrConflict
	}
	f.profiles[rec.ID] = *rec
	return nil
}

func (f *FakeRemote) UpsertProfile(ctx context.Context, rec *domain.ProfileRecord) error {
	if err := f.enter(ctx, OpUpsertProfile); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	next := *rec
	if prev, ok := f.profiles[rec.ID]; ok && next.Email == "" {
		next.Email = prev.Email
	}
	f.profiles[rec.ID] = next
	return nil
}

func matches(t domain.Task, filter domain.TaskFilter) bool {
	if filter.ID != nil && t.ID != *filter.ID {
		return false
	}
	if filter.OwnerID != "" && t.OwnerID != filter.OwnerID {
		return false
	}
	if filter.Completed != nil && t.Completed != *filter.Completed {
		return false
	}
	return true
}

func (f *FakeRemote) ListTasks(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error) {
	if err := f.enter(ctx, OpListTasks); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Task{}
	for i := len(f.tasks) - 1; i >= 0; i-- {
		if matches(f.tasks[i], filter) {
			out = append(out, f.tasks[i])
		}
	}
	return out, nil
}

func (f *FakeRemote) InsertTask(ctx context.Context, task *domain.Task) error {
	if err := f.enter(ctx, OpInsertTask); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if task.OwnerID == "" || strings.TrimSpace(task.Title) == "" {
		return domain.ErrInvalidInput
	}
	*task = f.insertLocked(*task)
	return nil
}

func (f *FakeRemote) UpdateTasks(ctx context.Context, filter domain.TaskFilter, patch domain.TaskPatch) error {
	if err := f.enter(ctx, OpUpdateTasks); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for i := range f.tasks {
		if !matches(f.tasks[i], filter) {
			continue
		}
		if patch.Title != nil {
			f.tasks[i].Title = *patch.Title
		}
		if patch.Completed != nil {
			f.tasks[i].Completed = *patch.Completed
		}
		n++
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (f *FakeRemote) DeleteTasks(ctx context.Context, filter domain.TaskFilter) error {
	if err := f.enter(ctx, OpDeleteTasks); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	before := len(f.tasks)
	f.tasks = slices.DeleteFunc(f.tasks, func(t domain.Task) bool { return matches(t, filter) })
	if len(f.tasks) == before {
		return domain.ErrNotFound
	}
	return nil
}

func (f *FakeRemote) CountTasks(ctx context.Context, filter domain.TaskFilter) (int, error) {
	if err := f.enter(ctx, OpCountTasks); err != nil {
		return 0, err
	}
	f.mu.Lock()
	countFunc := f.CountFunc
	f.mu.Unlock()
	if countFunc != nil {
		return countFunc(filter)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.tasks {
		if matches(t, filter) {
			n++
		}
	}
	return n, nil
}
