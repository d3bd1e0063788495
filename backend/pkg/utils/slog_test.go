package utils

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLogWriter_Write(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		wantLines int
	}{
		{name: "single line", input: "Applying: 20260101000000_settings.sql\n", wantLines: 1},
		{name: "no newline", input: "Writing: ./db/schema.sql", wantLines: 1},
		{name: "empty", input: "", wantLines: 0},
		{name: "blank lines only", input: "\n \n", wantLines: 0},
		{name: "multiple lines", input: "first\nsecond\n\nthird\n", wantLines: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			w := NewSlogWriter(slog.New(slog.NewTextHandler(&buf, nil)))

			n, err := w.Write([]byte(tt.input))
			if err != nil {
				t.Fatalf("Write() error = %v", err)
			}

			if n != len(tt.input) {
				t.Errorf("Write() n = %d, want %d", n, len(tt.input))
			}

			if got := strings.Count(buf.String(), "level=INFO"); got != tt.wantLines {
				t.Errorf("logged %d records, want %d: %s", got, tt.wantLines, buf.String())
			}
		})
	}
}

func TestErrAttr(t *testing.T) {
	t.Parallel()

	err := errors.New("payload must be 16 bytes")
	attr := ErrAttr(err)

	if attr.Key != "error" {
		t.Errorf("Key = %q, want %q", attr.Key, "error")
	}

	if attr.Value.Any() != err {
		t.Errorf("Value = %v, want %v", attr.Value.Any(), err)
	}

	if ErrAttr(nil).Value.Any() != nil {
		t.Error("nil error should produce a nil value")
	}
}

func TestSlogReplacer(t *testing.T) {
	t.Parallel()

	ts := SlogReplacer(nil, slog.Time("captured", time.Date(2026, 3, 1, 7, 5, 9, 0, time.UTC)))
	if ts.Value.String() != "2026-03-01 07:05:09" {
		t.Errorf("time = %q", ts.Value.String())
	}

	d := SlogReplacer(nil, slog.Duration("elapsed", 1500*time.Millisecond))
	if d.Value.Kind() != slog.KindString || d.Value.String() != "1.5s" {
		t.Errorf("duration = %v (%v)", d.Value, d.Value.Kind())
	}

	n := SlogReplacer(nil, slog.Int("rssi", -60))
	if n.Value.Kind() != slog.KindInt64 || n.Value.Int64() != -60 {
		t.Errorf("int attr should pass through, got %v", n.Value)
	}
}

func TestLogOnError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	LogOnError(logger, func() error { return nil }, "close ok")

	if buf.Len() != 0 {
		t.Fatalf("nothing should be logged on success, got %s", buf.String())
	}

	LogOnError(logger, func() error { return errors.New("database is locked") }, "failed to close database")

	out := buf.String()
	if !strings.Contains(out, "failed to close database") || !strings.Contains(out, "database is locked") {
		t.Errorf("unexpected log output: %s", out)
	}
}
