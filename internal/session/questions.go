package session

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/mknox/specforge/internal/document"
)

// errUnparseable is wrapped into a GenerationError by the caller; the
// collaborator's output never crashes the engine.
var errUnparseable = errors.New("response is not a question array")

// parseQuestions turns raw collaborator output into strict QuestionRecord
// candidates at the boundary. An empty JSON array is a valid "no more
// questions" signal, not an error. Non-JSON output falls back to the line
// heuristic; only output neither path can read is an error.
func parseQuestions(raw string) ([]document.QuestionRecord, error) {
	payload := extractJSONArray(raw)
	if payload != "" && gjson.Valid(payload) {
		parsed := gjson.Parse(payload)
		if parsed.IsArray() {
			records := make([]document.QuestionRecord, 0, len(parsed.Array()))
			for _, item := range parsed.Array() {
				text := strings.TrimSpace(item.Get("question").String())
				if text == "" {
					continue
				}
				section := strings.TrimSpace(item.Get("section").String())
				if section == "" {
					section = "General"
				}
				records = append(records, document.NewQuestion(
					section,
					text,
					document.ParseImportance(item.Get("importance").String()),
					item.Get("rationale").String(),
				))
			}
			return records, nil
		}
	}
	if records := extractQuestionsFromText(raw); len(records) > 0 {
		return records, nil
	}
	return nil, errUnparseable
}

// extractJSONArray strips code fences and surrounding prose, returning the
// outermost bracketed array if one exists.
func extractJSONArray(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}
	start := strings.Index(trimmed, "[")
	end := strings.LastIndex(trimmed, "]")
	if start < 0 || end <= start {
		return ""
	}
	return trimmed[start : end+1]
}

// extractQuestionsFromText is the salvage path for collaborators that ignore
// the JSON instruction: scan for section headers and question-mark lines,
// keeping at most one recovered question so a chatty response cannot flood
// the ledger.
func extractQuestionsFromText(raw string) []document.QuestionRecord {
	section := "General"
	var records []document.QuestionRecord
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasSuffix(line, ":") && !strings.HasPrefix(line, `"`) && len(line) < 50 {
			section = strings.TrimSpace(strings.TrimSuffix(line, ":"))
			continue
		}
		if !strings.Contains(line, "?") || len(line) <= 10 {
			continue
		}
		line = strings.Trim(line, `",`)
		records = append(records, document.NewQuestion(section, line, document.ImportanceMedium, ""))
		if len(records) == 1 {
			break
		}
	}
	return records
}
