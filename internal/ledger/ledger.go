// Package ledger keeps the ordered, deduplicated record of clarifying
// questions raised for a document, and which of them have been answered. The
// ledger is pure in-memory state; the version store owns its persistence.

package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mknox/specforge/internal/document"
)

// ErrNotFound indicates an Answer call referenced an unknown question id.
var ErrNotFound = errors.New("ledger: question not found")

// Ledger holds question records in insertion order with an identity index.
type Ledger struct {
	records []document.QuestionRecord
	index   map[string]int
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{index: map[string]int{}}
}

// FromRecords rebuilds a ledger from persisted records, preserving order and
// collapsing any duplicate identities that slipped into storage.
func FromRecords(records []document.QuestionRecord) *Ledger {
	l := New()
	l.Merge(records)
	return l
}

// Merge adds the candidates whose normalized (section, text) identity is not
// already present, answered or not, and returns the records actually added.
// This filter is the authoritative dedup guarantee; the collaborator being
// told about answered questions is only a hint.
func (l *Ledger) Merge(candidates []document.QuestionRecord) []document.QuestionRecord {
	var added []document.QuestionRecord
	for _, candidate := range candidates {
		if strings.TrimSpace(candidate.Text) == "" {
			continue
		}
		key := document.IdentityKey(candidate.Section, candidate.Text)
		if _, exists := l.index[key]; exists {
			continue
		}
		record := candidate
		if record.ID == "" {
			record.ID = document.QuestionID(record.Section, record.Text)
		}
		if record.Importance == "" {
			record.Importance = document.ImportanceMedium
		}
		l.index[key] = len(l.records)
		l.records = append(l.records, record)
		added = append(added, record)
	}
	return added
}

// Answer records an answer for the question with the given id. Answering an
// already-answered question overwrites the prior answer.
func (l *Ledger) Answer(id, answer string) error {
	for i := range l.records {
		if l.records[i].ID == id {
			l.records[i].Answer = answer
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Unanswered returns open questions as a stable filter over insertion order.
func (l *Ledger) Unanswered() []document.QuestionRecord {
	return l.filter(false)
}

// Answered returns closed questions in insertion order.
func (l *Ledger) Answered() []document.QuestionRecord {
	return l.filter(true)
}

// All returns a copy of every record in insertion order.
func (l *Ledger) All() []document.QuestionRecord {
	out := make([]document.QuestionRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Len reports the total number of records.
func (l *Ledger) Len() int {
	return len(l.records)
}

func (l *Ledger) filter(answered bool) []document.QuestionRecord {
	var out []document.QuestionRecord
	for _, record := range l.records {
		if record.Answered() == answered {
			out = append(out, record)
		}
	}
	return out
}
