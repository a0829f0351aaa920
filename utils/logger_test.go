package utils

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, WARN)

	l.Debug("hidden %d", 1)
	l.Info("hidden %d", 2)
	l.Warn("gate rejected %s", "gps")
	l.Error("singular step")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("below-level messages emitted:\n%s", out)
	}
	if !strings.Contains(out, "[WARN]") || !strings.Contains(out, "gate rejected gps") {
		t.Fatalf("missing warning:\n%s", out)
	}
	if !strings.Contains(out, "[ERROR]") {
		t.Fatalf("missing error:\n%s", out)
	}

	buf.Reset()
	l.SetLevel(DEBUG)
	l.Debug("now visible")
	if !strings.Contains(buf.String(), "[DEBUG]") {
		t.Fatalf("debug not emitted after SetLevel: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"Warn", WARN},
		{"error", ERROR},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil || got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if LogLevel(42).String() != "UNKNOWN" {
		t.Fatal("out-of-range level should stringify as UNKNOWN")
	}
}

func TestElapsedSeconds(t *testing.T) {
	if got := ElapsedSeconds(1_000_000_000, 3_500_000_000); got != 2.5 {
		t.Fatalf("ElapsedSeconds = %v, want 2.5", got)
	}
	if got := ElapsedSeconds(0, 5); got != 0 {
		t.Fatalf("ElapsedSeconds with unset start = %v, want 0", got)
	}
}
