// Package document defines the core value types the refinement engine
// exchanges: document metadata, immutable versions, question records, and the
// section model used for the structured representation of Markdown content.

package document

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Importance grades how much a question matters to the document. The set is
// closed; anything the collaborator invents outside it collapses to Medium.
type Importance string

const (
	ImportanceCritical Importance = "Critical"
	ImportanceHigh     Importance = "High"
	ImportanceMedium   Importance = "Medium"
)

// ParseImportance normalizes free-form importance text from the collaborator.
func ParseImportance(value string) Importance {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "critical":
		return ImportanceCritical
	case "high":
		return ImportanceHigh
	default:
		return ImportanceMedium
	}
}

// QuestionRecord is a single clarifying question attached to a document. It
// belongs to the document, not a version, so answer history survives
// revisions. An empty Answer means the question is still open.
type QuestionRecord struct {
	ID         string     `yaml:"id"`
	Section    string     `yaml:"section"`
	Text       string     `yaml:"question"`
	Importance Importance `yaml:"importance"`
	Rationale  string     `yaml:"rationale,omitempty"`
	Answer     string     `yaml:"answer,omitempty"`
}

// NewQuestion builds a record with its stable identity-derived ID.
func NewQuestion(section, text string, importance Importance, rationale string) QuestionRecord {
	return QuestionRecord{
		ID:         QuestionID(section, text),
		Section:    strings.TrimSpace(section),
		Text:       strings.TrimSpace(text),
		Importance: importance,
		Rationale:  strings.TrimSpace(rationale),
	}
}

// Answered reports whether an answer has been recorded.
func (q QuestionRecord) Answered() bool {
	return strings.TrimSpace(q.Answer) != ""
}

// IdentityKey reduces (section, question text) to the normalized form that
// determines question identity: case-insensitive, whitespace-insensitive.
func IdentityKey(section, text string) string {
	joined := section + "\n" + text
	return strings.ToLower(strings.Join(strings.Fields(joined), " "))
}

// QuestionID derives the stable short identifier for a question identity.
func QuestionID(section, text string) string {
	sum := sha256.Sum256([]byte(IdentityKey(section, text)))
	return hex.EncodeToString(sum[:])[:12]
}

// Meta is the per-document record persisted as document.yaml.
type Meta struct {
	ID        string    `yaml:"id"`
	Title     string    `yaml:"title,omitempty"`
	Slug      string    `yaml:"slug,omitempty"`
	CreatedAt time.Time `yaml:"created"`
}

// Version is one immutable committed revision of a document. Content is the
// full Markdown text; Sections is the structured form derived from it, and
// Questions is the ledger snapshot taken at commit time.
type Version struct {
	DocumentID string
	Number     int
	Title      string
	Model      string
	CreatedAt  time.Time
	Content    string
	Sections   []Section
	Questions  []QuestionRecord
}

// Slugify derives a filesystem-friendly slug from a document title.
func Slugify(title string) string {
	fields := strings.Fields(strings.ToLower(title))
	var parts []string
	for _, field := range fields {
		var b strings.Builder
		for _, r := range field {
			if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
				b.WriteRune(r)
			}
		}
		if b.Len() > 0 {
			parts = append(parts, b.String())
		}
	}
	return strings.Join(parts, "_")
}
