// Package cache memoizes expensive collaborator calls behind a
// content-addressed disk cache with lazy TTL expiry. The cache is strictly
// best-effort: correctness never depends on it, so every I/O failure is
// absorbed as a miss or a skipped write and reported to the logbook only.

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mknox/specforge/internal/logbook"
)

// Cache maps a deterministic fingerprint of (operation, input, model) to a
// previously produced result, persisted one JSON file per fingerprint so
// entries survive restarts and are shared across processes.
type Cache struct {
	root string
	ttl  time.Duration
	log  *logbook.Logbook
	now  func() time.Time
}

// Option customizes a Cache during construction.
type Option func(*Cache)

// WithClock overrides the clock used for TTL checks and entry timestamps.
func WithClock(clock func() time.Time) Option {
	return func(c *Cache) {
		if clock != nil {
			c.now = clock
		}
	}
}

// WithLogbook routes absorbed I/O failures to the given logbook.
func WithLogbook(log *logbook.Logbook) Option {
	return func(c *Cache) {
		c.log = log
	}
}

// New builds a cache rooted at the given directory. TTL is held by the
// service object, not baked into stored entries, so constructing with a
// different TTL retroactively reinterprets existing entries' validity. A TTL
// of zero or less means entries never expire.
func New(root string, ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		root: root,
		ttl:  ttl,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// entry is the stored representation of one memoized result.
type entry struct {
	Fingerprint string    `json:"fingerprint"`
	Operation   string    `json:"operation"`
	Model       string    `json:"model"`
	Payload     string    `json:"payload"`
	CreatedAt   time.Time `json:"created_at"`
}

// Fingerprint derives the deterministic cache key for an operation. Input
// text is normalized to be whitespace-insensitive so identical requests
// against identical document states collide across processes.
func Fingerprint(operation, input, model string) string {
	normalized := strings.Join(strings.Fields(input), " ")
	h := sha256.New()
	h.Write([]byte(operation))
	h.Write([]byte{0})
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(normalized))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached payload for the triple, or ok=false when no valid
// entry exists. Expired and unreadable entries are both reported as absent;
// callers must always be prepared to recompute.
func (c *Cache) Get(operation, input, model string) (string, bool) {
	fingerprint := Fingerprint(operation, input, model)
	data, err := os.ReadFile(c.entryPath(fingerprint))
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.Warn("cache: read %s: %v", fingerprint, err)
		}
		return "", false
	}
	var stored entry
	if err := json.Unmarshal(data, &stored); err != nil {
		c.log.Warn("cache: decode %s: %v", fingerprint, err)
		return "", false
	}
	if c.ttl > 0 && c.now().Sub(stored.CreatedAt) >= c.ttl {
		return "", false
	}
	return stored.Payload, true
}

// Put stores the payload for the triple, overwriting any prior entry.
// Last write wins; concurrent writers for the same fingerprint are safe
// because the content is reproducible from the same input. Failures are
// logged and swallowed.
func (c *Cache) Put(operation, input, model, payload string) {
	fingerprint := Fingerprint(operation, input, model)
	stored := entry{
		Fingerprint: fingerprint,
		Operation:   operation,
		Model:       model,
		Payload:     payload,
		CreatedAt:   c.now().UTC(),
	}
	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		c.log.Warn("cache: encode %s: %v", fingerprint, err)
		return
	}
	if err := os.MkdirAll(c.root, 0o755); err != nil {
		c.log.Warn("cache: ensure dir: %v", err)
		return
	}
	path := c.entryPath(fingerprint)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		c.log.Warn("cache: write %s: %v", fingerprint, err)
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		c.log.Warn("cache: commit %s: %v", fingerprint, err)
	}
}

func (c *Cache) entryPath(fingerprint string) string {
	return filepath.Join(c.root, fingerprint+".json")
}
