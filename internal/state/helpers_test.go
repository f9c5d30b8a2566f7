package state_test

import (
	"context"
	"sync"
	"testing"

	"github.com/msomdec/taskmate/internal/state"
	"github.com/msomdec/taskmate/internal/testutil"
)

type harness struct {
	remote     *testutil.FakeRemote
	sink       *testutil.RecordingSink
	dispatcher *state.Dispatcher
	session    *state.SessionManager
	profile    *state.ProfileAggregator
	tasks      *state.TaskRepository
}

func newHarness(t *testing.T, opts ...state.SessionOption) *harness {
	t.Helper()
	remote := testutil.NewFakeRemote()
	sink := &testutil.RecordingSink{}
	dispatcher := state.NewDispatcher()
	session := state.NewSessionManager(remote, opts...)
	profile := state.NewProfileAggregator(session, remote, remote)
	tasks := state.NewTaskRepository(session, remote, sink, profile, dispatcher)
	t.Cleanup(dispatcher.Wait)
	return &harness{
		remote:     remote,
		sink:       sink,
		dispatcher: dispatcher,
		session:    session,
		profile:    profile,
		tasks:      tasks,
	}
}

// signUp registers and signs in a fresh account and returns its ID.
func (h *harness) signUp(t *testing.T, name, email string) string {
	t.Helper()
	if err := h.session.SignUp(context.Background(), name, email, "password123"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	p := h.session.Principal()
	if p == nil {
		t.Fatal("expected a principal after sign-up")
	}
	return p.ID
}

// settle waits for all dispatched work.
func (h *harness) settle() {
	h.dispatcher.Wait()
}

// gate holds the first call that passes through it until released.
type gate struct {
	once     sync.Once
	entered  chan struct{}
	released chan struct{}
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}), released: make(chan struct{})}
}

func (g *gate) hook(ctx context.Context) {
	first := false
	g.once.Do(func() { first = true })
	if !first {
		return
	}
	close(g.entered)
	<-g.released
}

func (g *gate) release() { close(g.released) }
