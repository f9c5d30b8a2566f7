package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/msomdec/taskmate/internal/config"
	"github.com/msomdec/taskmate/internal/domain"
	"github.com/msomdec/taskmate/internal/notify"
	"github.com/msomdec/taskmate/internal/remote"
	"github.com/msomdec/taskmate/internal/state"
)

// App is the client composition root. It owns one instance of each cache
// and wires them to the HTTP remote.
type App struct {
	cfg        *config.Config
	out        io.Writer
	dispatcher *state.Dispatcher
	session    *state.SessionManager
	profile    *state.ProfileAggregator
	tasks      *state.TaskRepository
}

// NewApp builds the client from cfg. Command output goes to out; logs and
// notifications go to errOut.
func NewApp(cfg *config.Config, out, errOut io.Writer) (*App, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level})))

	client, err := remote.New(cfg.ServerURL, cfg.Timeout, remote.NewFileSessionStore(cfg.SessionPath()))
	if err != nil {
		return nil, err
	}

	dispatcher := state.NewDispatcher()
	session := state.NewSessionManager(client, state.WithProfileInsertAttempts(cfg.ProfileInsertAttempts))
	profile := state.NewProfileAggregator(session, client, client)
	tasks := state.NewTaskRepository(session, client, sinkFor(cfg.Notifications, errOut), profile, dispatcher)

	return &App{
		cfg:        cfg,
		out:        out,
		dispatcher: dispatcher,
		session:    session,
		profile:    profile,
		tasks:      tasks,
	}, nil
}

// Close waits for background work started by the command.
func (a *App) Close() {
	a.dispatcher.Wait()
}

// requireSession restores the stored session and fails when there is none.
func (a *App) requireSession(ctx context.Context) (*domain.Principal, error) {
	a.session.Initialize(ctx)
	p := a.session.Principal()
	if p == nil {
		return nil, fmt.Errorf("%w: run `taskmate login` first", domain.ErrNoSession)
	}
	return p, nil
}

func sinkFor(name string, errOut io.Writer) domain.NotificationSink {
	switch name {
	case config.NotifyLog:
		return notify.LogSink{}
	case config.NotifyOff:
		return notify.Discard{}
	case config.NotifyBoth:
		return notify.Multi{notify.NewWriterSink(errOut), notify.LogSink{}}
	default:
		return notify.NewWriterSink(errOut)
	}
}
