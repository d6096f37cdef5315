package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPutGetRoundTrip(t *testing.T) {
	c := New(t.TempDir(), time.Hour)
	if _, ok := c.Get("draft", "some input", "model-a"); ok {
		t.Fatalf("expected miss on empty cache")
	}
	c.Put("draft", "some input", "model-a", "the result")
	got, ok := c.Get("draft", "some input", "model-a")
	if !ok || got != "the result" {
		t.Fatalf("get = (%q, %v), want hit", got, ok)
	}
}

func TestFingerprintIsWhitespaceInsensitive(t *testing.T) {
	if Fingerprint("op", "hello   world\n", "m") != Fingerprint("op", " hello world ", "m") {
		t.Fatalf("whitespace variants must share a fingerprint")
	}
	if Fingerprint("op", "input", "m1") == Fingerprint("op", "input", "m2") {
		t.Fatalf("different models must not share a fingerprint")
	}
	if Fingerprint("op1", "input", "m") == Fingerprint("op2", "input", "m") {
		t.Fatalf("different operations must not share a fingerprint")
	}
}

func TestSharedStorageAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	writer := New(dir, time.Hour)
	writer.Put("questions", "spec text", "model-a", "payload")

	reader := New(dir, time.Hour)
	got, ok := reader.Get("questions", "spec text", "model-a")
	if !ok || got != "payload" {
		t.Fatalf("second instance must see persisted entry, got (%q, %v)", got, ok)
	}
}

func TestTTLExpiryIsLazy(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	c := New(t.TempDir(), time.Hour, WithClock(clock))
	c.Put("draft", "input", "m", "payload")

	now = now.Add(time.Hour - time.Second)
	if _, ok := c.Get("draft", "input", "m"); !ok {
		t.Fatalf("entry must be valid just before TTL")
	}
	now = now.Add(2 * time.Second)
	if _, ok := c.Get("draft", "input", "m"); ok {
		t.Fatalf("entry must be absent just after TTL")
	}
}

func TestReconfiguredTTLReinterpretsEntries(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	New(dir, time.Minute, WithClock(clock)).Put("draft", "input", "m", "payload")
	now = now.Add(30 * time.Minute)

	if _, ok := New(dir, time.Minute, WithClock(clock)).Get("draft", "input", "m"); ok {
		t.Fatalf("entry must be expired under the short TTL")
	}
	if _, ok := New(dir, time.Hour, WithClock(clock)).Get("draft", "input", "m"); !ok {
		t.Fatalf("longer TTL must revalidate the same stored entry")
	}
}

func TestCorruptEntryIsTreatedAsMiss(t *testing.T) {
	dir := t.TempDir()
	c := New(dir, time.Hour)
	c.Put("draft", "input", "m", "payload")

	path := filepath.Join(dir, Fingerprint("draft", "input", "m")+".json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("draft", "input", "m"); ok {
		t.Fatalf("corrupt entry must read as a miss")
	}
}

func TestPutOverwritesLastWriteWins(t *testing.T) {
	c := New(t.TempDir(), time.Hour)
	c.Put("draft", "input", "m", "first")
	c.Put("draft", "input", "m", "second")
	got, ok := c.Get("draft", "input", "m")
	if !ok || got != "second" {
		t.Fatalf("get = (%q, %v), want second", got, ok)
	}
}

func TestZeroTTLNeverExpires(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	c := New(t.TempDir(), 0, WithClock(clock))
	c.Put("draft", "input", "m", "payload")
	now = now.Add(1000 * time.Hour)
	if _, ok := c.Get("draft", "input", "m"); !ok {
		t.Fatalf("zero TTL entries must not expire")
	}
}
