// Package config handles the specforge data directory and config.yaml.
// Every run works against a data root (~/.specforge by default) that holds
// the documents, cache, and logs trees.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DataDirName is the directory created in the user's home by default.
	DataDirName = ".specforge"
	// EnvDataRoot overrides the data root location.
	EnvDataRoot = "SPECFORGE_HOME"

	defaultModel    = "gemini-2.0-flash"
	defaultCacheTTL = 7 * 24 * time.Hour
)

const defaultConfigYAML = `# specforge configuration
version: 1

# Model identifier passed to the external generator.
model: gemini-2.0-flash

# How long cached generator results stay valid. Parsed as a Go duration.
cache_ttl: 168h
`

// FileConfig models config.yaml.
type FileConfig struct {
	Version  int    `yaml:"version"`
	Model    string `yaml:"model"`
	CacheTTL string `yaml:"cache_ttl"`
	Paths    struct {
		Documents string `yaml:"documents,omitempty"`
		Cache     string `yaml:"cache,omitempty"`
		Logs      string `yaml:"logs,omitempty"`
	} `yaml:"paths,omitempty"`
}

// Config holds the runtime configuration consumed by the engine.
type Config struct {
	// Root is the data directory everything lives under.
	Root string

	Model    string
	CacheTTL time.Duration

	documentsDir string
	cacheDir     string
	logsDir      string
}

// New resolves the data root from SPECFORGE_HOME or the user's home
// directory and loads config.yaml if present.
func New() (*Config, error) {
	root := os.Getenv(EnvDataRoot)
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("config: resolve home directory: %w", err)
		}
		root = filepath.Join(home, DataDirName)
	}
	return NewAt(root)
}

// NewAt loads configuration for an explicit data root.
func NewAt(root string) (*Config, error) {
	cfg := &Config{
		Root:     root,
		Model:    defaultModel,
		CacheTTL: defaultCacheTTL,
	}
	if err := cfg.loadFile(); err != nil {
		return nil, err
	}
	cfg.resolvePaths()
	return cfg, nil
}

// InitDataDir creates the data directory structure and a default config.yaml.
//
// Structure created:
//
//	<root>/
//	├── config.yaml
//	├── documents/   <- one directory per document id
//	├── cache/       <- one JSON file per fingerprint
//	└── logs/        <- engine logbook
func InitDataDir(root string) error {
	for _, dir := range []string{
		filepath.Join(root, "documents"),
		filepath.Join(root, "cache"),
		filepath.Join(root, "logs"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	path := filepath.Join(root, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// DocumentsDir returns the version store root.
func (c *Config) DocumentsDir() string {
	return c.documentsDir
}

// CacheDir returns the fingerprint cache root.
func (c *Config) CacheDir() string {
	return c.cacheDir
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return c.logsDir
}

// LogbookPath returns the engine logbook file.
func (c *Config) LogbookPath() string {
	return filepath.Join(c.logsDir, "specforge.log")
}

// ConfigPath returns the on-disk location of config.yaml.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.Root, "config.yaml")
}

func (c *Config) loadFile() error {
	path := c.ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	var parsed FileConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	parsed.applyDefaults()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.Model = parsed.Model
	if parsed.CacheTTL != "" {
		ttl, err := time.ParseDuration(parsed.CacheTTL)
		if err != nil {
			return fmt.Errorf("config: parse cache_ttl: %w", err)
		}
		c.CacheTTL = ttl
	}
	c.documentsDir = resolvePath(c.Root, parsed.Paths.Documents)
	c.cacheDir = resolvePath(c.Root, parsed.Paths.Cache)
	c.logsDir = resolvePath(c.Root, parsed.Paths.Logs)
	return nil
}

func (c *Config) resolvePaths() {
	if c.documentsDir == "" {
		c.documentsDir = filepath.Join(c.Root, "documents")
	}
	if c.cacheDir == "" {
		c.cacheDir = filepath.Join(c.Root, "cache")
	}
	if c.logsDir == "" {
		c.logsDir = filepath.Join(c.Root, "logs")
	}
}

func (fc *FileConfig) applyDefaults() {
	if fc.Version == 0 {
		fc.Version = 1
	}
	fc.Model = strings.TrimSpace(fc.Model)
	if fc.Model == "" {
		fc.Model = defaultModel
	}
	fc.CacheTTL = strings.TrimSpace(fc.CacheTTL)
}

func (fc *FileConfig) validate() error {
	if fc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if fc.CacheTTL != "" {
		if _, err := time.ParseDuration(fc.CacheTTL); err != nil {
			return fmt.Errorf("cache_ttl %q is not a valid duration", fc.CacheTTL)
		}
	}
	return nil
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}
