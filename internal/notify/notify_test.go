package notify_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/msomdec/taskmate/internal/domain"
	"github.com/msomdec/taskmate/internal/notify"
)

type failingSink struct{ err error }

func (f failingSink) Notify(context.Context, domain.Notification) error { return f.err }

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := notify.NewWriterSink(&buf)

	err := sink.Notify(context.Background(), domain.Notification{Title: "Task Completed! 🎉", Body: `You've completed "x"`})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if got := buf.String(); got != "[Task Completed! 🎉] You've completed \"x\"\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := notify.LogSink{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	if err := sink.Notify(context.Background(), domain.Notification{Title: "T", Body: "B"}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "title=T") || !strings.Contains(out, "body=B") {
		t.Fatalf("expected title and body in log, got %q", out)
	}
}

func TestMulti(t *testing.T) {
	var buf bytes.Buffer
	boom := errors.New("boom")
	sink := notify.Multi{failingSink{err: boom}, notify.NewWriterSink(&buf), notify.Discard{}}

	err := sink.Notify(context.Background(), domain.Notification{Title: "T", Body: "B"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected later sinks to still run")
	}
}
