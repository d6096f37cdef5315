package logbook

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAppendAndTail(t *testing.T) {
	lb, err := New(filepath.Join(t.TempDir(), "logs", "engine.log"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	lb.Info("drafted %s v%d", "doc-1", 1)
	lb.Warn("cache write failed for %s", "abc123")
	lb.Error("generator unreachable")

	lines, total := lb.Tail(2)
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	if !strings.Contains(lines[0], "WARN") || !strings.Contains(lines[0], "cache write failed") {
		t.Fatalf("first tailed line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "ERROR") {
		t.Fatalf("second tailed line = %q", lines[1])
	}
}

func TestTailLargerThanFile(t *testing.T) {
	lb, err := New(filepath.Join(t.TempDir(), "engine.log"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	lb.Info("only entry")
	lines, total := lb.Tail(50)
	if total != 1 || len(lines) != 1 {
		t.Fatalf("tail = (%d lines, %d total)", len(lines), total)
	}
}

func TestTailMissingFileIsEmpty(t *testing.T) {
	lb, err := New(filepath.Join(t.TempDir(), "never-written.log"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	lines, total := lb.Tail(10)
	if lines != nil || total != 0 {
		t.Fatalf("tail of missing file = (%v, %d)", lines, total)
	}
}

func TestNilLogbookDiscards(t *testing.T) {
	var lb *Logbook
	lb.Info("dropped")
	lb.Warn("dropped")
	lb.Error("dropped")
	if lines, total := lb.Tail(10); lines != nil || total != 0 {
		t.Fatalf("nil tail = (%v, %d)", lines, total)
	}
	if lb.Path() != "" {
		t.Fatalf("nil path = %q", lb.Path())
	}
}

func TestAppendCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.log")
	lb, err := New(path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	lb.Append(LevelInfo, "  padded message  ")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	line := string(data)
	if !strings.HasSuffix(line, "padded message\n") {
		t.Fatalf("entry = %q, want trimmed message with trailing newline", line)
	}
	if !strings.Contains(line, "INFO") {
		t.Fatalf("entry = %q, want level tag", line)
	}
}
