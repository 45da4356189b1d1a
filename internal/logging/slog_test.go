package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_TextLevels(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "debug", "text")
	ctx := context.Background()

	log.Debug(ctx, "probe", "attempt", 1)
	log.Info(ctx, "completed", "bytes", 2)
	log.Warn(ctx, "retrying", "attempt", 3)
	log.Error(ctx, "transfer failed", "status", "FAILED_TRANSFER")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), buf.String())
	}

	want := [][]string{
		{"level=DEBUG", "msg=probe", "attempt=1"},
		{"level=INFO", "msg=completed", "bytes=2"},
		{"level=WARN", "msg=retrying", "attempt=3"},
		{"level=ERROR", `msg="transfer failed"`, "status=FAILED_TRANSFER"},
	}
	for i, subs := range want {
		for _, sub := range subs {
			if !strings.Contains(lines[i], sub) {
				t.Fatalf("line %d: expected %q in %q", i, sub, lines[i])
			}
		}
	}
}

func TestSlogLogger_WithAddsItemAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	item := log.With("run_id", "123").With("id", "U1", "filename", "a.bam")
	item.Info(context.Background(), "skipped", "reason", "ledger")

	for _, s := range []string{"run_id=123", "id=U1", "filename=a.bam", "reason=ledger"} {
		if !strings.Contains(buf.String(), s) {
			t.Fatalf("expected %q in output, got:\n%s", s, buf.String())
		}
	}
}

func TestNew_JSONFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn", "json")
	ctx := context.Background()

	log.Info(ctx, "hidden")
	log.Warn(ctx, "shown", "id", "U1")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info must be filtered at warn level:\n%s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"id":"U1"`) {
		t.Fatalf("expected json record, got:\n%s", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestDiscard_DoesNotPanic(t *testing.T) {
	Discard().With("k", "v").Error(context.Background(), "dropped")
}
