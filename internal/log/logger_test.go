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
		"":      slog.LevelInfo,
		"info":  slog.LevelInfo,
		"DEBUG": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestLoggerComponentAndError(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Component: ComponentLedger, Output: &buf})

	logger.LogError(context.Background(), "Store failed", errors.New("disk full"), OpCreate,
		NewFields().WithRecord("expense", "alice", "e1"))

	out := buf.String()
	for _, want := range []string{"component=ledger", "operation=create", `error="disk full"`, "owner_id=alice", "record_id=e1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("log line missing %q: %s", want, out)
		}
	}
}

func TestContextCarriesLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, Component: ComponentHTTP}).With(FieldRequestID, "req_1")

	got := FromContext(NewContext(context.Background(), logger))
	got.Info("inside")

	if got.Component() != ComponentHTTP {
		t.Fatalf("expected http component logger, got %q", got.Component())
	}
	if !strings.Contains(buf.String(), "request_id=req_1") {
		t.Fatalf("request id not logged: %s", buf.String())
	}
	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatalf("fallback logger should report unknown component")
	}
}
