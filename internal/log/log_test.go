package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"":      slog.LevelInfo,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("%q: expected %v, got %v (err=%v)", in, want, got, err)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Format: "json", Output: &buf, Component: ComponentBudget})
	l.Info("snapshot computed", FieldUserID, "u1")
	l.Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, `"component":"budget"`) || !strings.Contains(out, `"user_id":"u1"`) {
		t.Fatalf("unexpected output: %s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug record should be filtered at info level")
	}

	buf.Reset()
	l.WithComponent(ComponentWorker).Warn("x")
	if !strings.Contains(buf.String(), `"component":"worker"`) {
		t.Fatalf("expected worker component, got %s", buf.String())
	}
}

func TestContextLogger(t *testing.T) {
	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatalf("expected fallback logger")
	}
	l := New(DefaultConfig())
	ctx := WithContext(context.Background(), l)
	if FromContext(ctx) != l {
		t.Fatalf("expected stored logger")
	}
}

func TestLogFields(t *testing.T) {
	f := NewFields().
		WithUser("u1").
		WithOperation(OpSnapshot).
		WithError(nil).
		WithSnapshot("b1", 80, 2, true)
	if _, ok := f[FieldError]; ok {
		t.Fatalf("nil error must not be recorded")
	}
	f.WithError(errors.New("boom"))
	if f[FieldError] != "boom" || f[FieldHealthScore] != 80 {
		t.Fatalf("unexpected fields: %v", f)
	}
	if len(f.ToSlice()) != len(f)*2 {
		t.Fatalf("slice should hold key/value pairs")
	}
}
