package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewAtDefaultsWhenConfigMissing(t *testing.T) {
	root := t.TempDir()
	cfg, err := NewAt(root)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if cfg.Model != "gemini-2.0-flash" {
		t.Fatalf("model = %q", cfg.Model)
	}
	if cfg.CacheTTL != 7*24*time.Hour {
		t.Fatalf("cache ttl = %s", cfg.CacheTTL)
	}
	if cfg.DocumentsDir() != filepath.Join(root, "documents") {
		t.Fatalf("documents dir = %q", cfg.DocumentsDir())
	}
	if cfg.CacheDir() != filepath.Join(root, "cache") {
		t.Fatalf("cache dir = %q", cfg.CacheDir())
	}
	if cfg.LogbookPath() != filepath.Join(root, "logs", "specforge.log") {
		t.Fatalf("logbook path = %q", cfg.LogbookPath())
	}
}

func TestNewAtReadsConfigFile(t *testing.T) {
	root := t.TempDir()
	content := `version: 1
model: gemini-2.5-pro
cache_ttl: 30m
paths:
  documents: docs
  cache: /var/cache/forge
`
	if err := os.WriteFile(filepath.Join(root, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := NewAt(root)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if cfg.Model != "gemini-2.5-pro" {
		t.Fatalf("model = %q", cfg.Model)
	}
	if cfg.CacheTTL != 30*time.Minute {
		t.Fatalf("cache ttl = %s", cfg.CacheTTL)
	}
	if cfg.DocumentsDir() != filepath.Join(root, "docs") {
		t.Fatalf("relative documents path = %q", cfg.DocumentsDir())
	}
	if cfg.CacheDir() != filepath.Clean("/var/cache/forge") {
		t.Fatalf("absolute cache path = %q", cfg.CacheDir())
	}
	if cfg.LogsDir() != filepath.Join(root, "logs") {
		t.Fatalf("unset logs path must fall back, got %q", cfg.LogsDir())
	}
}

func TestNewAtRejectsBadCacheTTL(t *testing.T) {
	root := t.TempDir()
	content := "version: 1\ncache_ttl: one week\n"
	if err := os.WriteFile(filepath.Join(root, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := NewAt(root)
	if err == nil || !strings.Contains(err.Error(), "cache_ttl") {
		t.Fatalf("err = %v, want cache_ttl validation failure", err)
	}
}

func TestNewAtRejectsMalformedYAML(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "config.yaml"), []byte("model: [unterminated"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := NewAt(root); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestInitDataDirCreatesStructureOnce(t *testing.T) {
	root := filepath.Join(t.TempDir(), "forge-home")
	if err := InitDataDir(root); err != nil {
		t.Fatalf("init: %v", err)
	}
	for _, dir := range []string{"documents", "cache", "logs"} {
		info, err := os.Stat(filepath.Join(root, dir))
		if err != nil || !info.IsDir() {
			t.Fatalf("missing %s: %v", dir, err)
		}
	}

	// A second init must not clobber an edited config.
	custom := []byte("version: 1\nmodel: custom\n")
	if err := os.WriteFile(filepath.Join(root, "config.yaml"), custom, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := InitDataDir(root); err != nil {
		t.Fatalf("reinit: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(root, "config.yaml"))
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if string(data) != string(custom) {
		t.Fatalf("config was overwritten: %q", data)
	}

	cfg, err := NewAt(root)
	if err != nil {
		t.Fatalf("new after init: %v", err)
	}
	if cfg.Model != "custom" {
		t.Fatalf("model = %q", cfg.Model)
	}
}

func TestNewHonorsEnvOverride(t *testing.T) {
	root := t.TempDir()
	t.Setenv(EnvDataRoot, root)
	cfg, err := New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if cfg.Root != root {
		t.Fatalf("root = %q, want %q", cfg.Root, root)
	}
}
