package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
	var typed *componentLogger
	if got := OrNop(typed); got == nil {
		t.Fatal("OrNop(typed nil) returned nil")
	} else if _, ok := got.(nopLogger); !ok {
		t.Fatalf("expected nop logger, got %T", got)
	}
}

func TestFromSlogFormats(t *testing.T) {
	var buf bytes.Buffer
	logger := FromSlog(slog.New(slog.NewTextHandler(&buf, nil)))
	logger.Info("task %s finished", "task_7")
	if !strings.Contains(buf.String(), "task task_7 finished") {
		t.Errorf("formatted message missing: %q", buf.String())
	}
}

type recordingLogger struct {
	calls []string
}

func (r *recordingLogger) Debug(format string, args ...any) { r.calls = append(r.calls, "debug") }
func (r *recordingLogger) Info(format string, args ...any)  { r.calls = append(r.calls, "info") }
func (r *recordingLogger) Warn(format string, args ...any)  { r.calls = append(r.calls, "warn") }
func (r *recordingLogger) Error(format string, args ...any) { r.calls = append(r.calls, "error") }

func TestMultiFlattensAndFansOut(t *testing.T) {
	a := &recordingLogger{}
	b := &recordingLogger{}
	inner := Multi(a, nil)
	outer := Multi(inner, b)

	outer.Info("hi")
	outer.Error("bye")

	for name, rec := range map[string]*recordingLogger{"a": a, "b": b} {
		if len(rec.calls) != 2 {
			t.Errorf("%s: expected 2 calls, got %d", name, len(rec.calls))
		}
	}
}

func TestMultiEmpty(t *testing.T) {
	if _, ok := Multi(nil, nil).(nopLogger); !ok {
		t.Error("Multi with no loggers should collapse to nop")
	}
}
