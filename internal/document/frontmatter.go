package document

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingFrontMatter indicates the file did not start with a YAML fence.
	ErrMissingFrontMatter = errors.New("document: missing frontmatter")
	// ErrMalformedFrontMatter indicates the YAML block could not be parsed.
	ErrMalformedFrontMatter = errors.New("document: malformed frontmatter")
)

// FrontMatter is the provenance block written at the top of every persisted
// Markdown version.
type FrontMatter struct {
	DocumentID string
	Version    int
	Title      string
	Model      string
	CreatedAt  time.Time
	Checksum   string
}

// ParseFrontMatter extracts the metadata block and body from a version file
// that starts with `---` YAML fences.
func ParseFrontMatter(content []byte) (FrontMatter, []byte, error) {
	if len(content) == 0 {
		return FrontMatter{}, nil, ErrMissingFrontMatter
	}
	normalized := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return FrontMatter{}, nil, ErrMissingFrontMatter
	}
	parts := bytes.SplitN(normalized[4:], []byte("\n---\n"), 2)
	if len(parts) < 2 {
		return FrontMatter{}, nil, ErrMalformedFrontMatter
	}
	var envelope forgeEnvelope
	if err := yaml.Unmarshal(parts[0], &envelope); err != nil {
		return FrontMatter{}, nil, fmt.Errorf("document: parse frontmatter: %w", err)
	}
	meta, err := envelope.toFrontMatter()
	if err != nil {
		return FrontMatter{}, nil, err
	}
	return meta, parts[1], nil
}

// WriteFrontMatter renders the metadata block and body with YAML fences.
func WriteFrontMatter(meta FrontMatter, body []byte) ([]byte, error) {
	if meta.DocumentID == "" {
		return nil, fmt.Errorf("document: frontmatter missing document id")
	}
	if meta.Version < 1 {
		return nil, fmt.Errorf("document: frontmatter version must be >= 1, got %d", meta.Version)
	}
	envelope := forgeEnvelope{}
	envelope.fromFrontMatter(meta)
	data, err := yaml.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("document: encode frontmatter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(bytes.TrimRight(data, "\n"))
	buf.WriteString("\n---\n")
	buf.Write(body)
	return buf.Bytes(), nil
}

type forgeEnvelope struct {
	Specforge forgeMetadata `yaml:"specforge"`
}

type forgeMetadata struct {
	Document string `yaml:"document"`
	Version  int    `yaml:"version"`
	Title    string `yaml:"title,omitempty"`
	Model    string `yaml:"model,omitempty"`
	Created  string `yaml:"created"`
	Checksum string `yaml:"checksum,omitempty"`
}

func (e forgeEnvelope) toFrontMatter() (FrontMatter, error) {
	if e.Specforge.Document == "" || e.Specforge.Version < 1 {
		return FrontMatter{}, ErrMalformedFrontMatter
	}
	created, err := parseTimestamp(e.Specforge.Created)
	if err != nil {
		return FrontMatter{}, fmt.Errorf("document: parse created timestamp: %w", err)
	}
	return FrontMatter{
		DocumentID: e.Specforge.Document,
		Version:    e.Specforge.Version,
		Title:      e.Specforge.Title,
		Model:      e.Specforge.Model,
		CreatedAt:  created,
		Checksum:   e.Specforge.Checksum,
	}, nil
}

func (e *forgeEnvelope) fromFrontMatter(meta FrontMatter) {
	e.Specforge.Document = meta.DocumentID
	e.Specforge.Version = meta.Version
	e.Specforge.Title = meta.Title
	e.Specforge.Model = meta.Model
	e.Specforge.Created = meta.CreatedAt.UTC().Format(timeLayout)
	e.Specforge.Checksum = meta.Checksum
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

func parseTimestamp(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, fmt.Errorf("document: empty created timestamp")
	}
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
