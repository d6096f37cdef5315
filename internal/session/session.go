// Package session orchestrates the refinement loop for a single document:
// consult the cache, fall back to the external generator on a miss, fold the
// result into the question ledger or commit it as a new version.

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mknox/specforge/internal/cache"
	"github.com/mknox/specforge/internal/document"
	"github.com/mknox/specforge/internal/ledger"
	"github.com/mknox/specforge/internal/logbook"
	"github.com/mknox/specforge/internal/store"
)

// Step names one generation operation of the refinement protocol.
type Step string

const (
	StepDraft              Step = "draft"
	StepGenerateQuestions  Step = "generate-questions"
	StepIncorporateAnswers Step = "incorporate-answers"
	StepFinalize           Step = "finalize"
	stepSuggestTitle       Step = "suggest-title"
)

// Phase is the resumable state of the interactive refinement loop. Control
// returns to the caller between phases; the caller resumes via Answer or the
// next step call.
type Phase string

const (
	PhaseAwaitingQuestions Phase = "awaiting-questions"
	PhaseAwaitingAnswers   Phase = "awaiting-answers"
	PhaseComplete          Phase = "complete"
)

// idleRoundsToComplete is how many consecutive question rounds may add zero
// net-new questions before the loop reports completion instead of spinning.
const idleRoundsToComplete = 2

// Generator is the external collaborator boundary. Implementations may be
// slow, rate-limited, or return malformed text; the session defends against
// all three.
type Generator interface {
	Generate(ctx context.Context, prompt, model string) (string, error)
}

// GenerationError reports a recoverable collaborator failure. No version was
// committed, so the caller may retry the same step deterministically.
type GenerationError struct {
	DocumentID string
	Step       Step
	Model      string
	Err        error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("session: %s %s with %s: %v", e.Step, e.DocumentID, e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Config carries the injected settings the session needs.
type Config struct {
	Model   string
	Timeout time.Duration
	Logbook *logbook.Logbook
}

// Session drives one document through the refinement protocol. One active
// session per document; sessions for different documents may share the same
// cache and store.
type Session struct {
	store *store.Store
	cache *cache.Cache
	gen   Generator
	model string

	timeout time.Duration
	log     *logbook.Logbook

	docID      string
	phase      Phase
	idleRounds int
}

// New wires a session to its store, cache, and generator collaborator.
func New(st *store.Store, c *cache.Cache, gen Generator, cfg Config) (*Session, error) {
	if st == nil {
		return nil, fmt.Errorf("session: store is required")
	}
	if c == nil {
		return nil, fmt.Errorf("session: cache is required")
	}
	if gen == nil {
		return nil, fmt.Errorf("session: generator is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("session: model identifier is required")
	}
	return &Session{
		store:   st,
		cache:   c,
		gen:     gen,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		log:     cfg.Logbook,
		phase:   PhaseAwaitingQuestions,
	}, nil
}

// DocumentID returns the document this session is bound to, if any.
func (s *Session) DocumentID() string {
	return s.docID
}

// Phase returns the current loop state.
func (s *Session) Phase() Phase {
	return s.phase
}

// Open binds the session to an existing document and derives the loop phase
// from the persisted ledger, so an interrupted session can resume.
func (s *Session) Open(documentID string) error {
	if _, err := s.store.Latest(documentID); err != nil {
		return err
	}
	records, err := s.store.LoadLedger(documentID)
	if err != nil {
		return err
	}
	s.docID = documentID
	s.idleRounds = 0
	if len(ledger.FromRecords(records).Unanswered()) > 0 {
		s.phase = PhaseAwaitingAnswers
	} else {
		s.phase = PhaseAwaitingQuestions
	}
	return nil
}

// Run dispatches one protocol step and returns the committed version number.
// GenerateQuestions commits nothing and returns the current latest version.
// For StepDraft, input is the product description; other steps ignore it.
func (s *Session) Run(ctx context.Context, documentID string, step Step, input string) (int, error) {
	if step == StepDraft {
		_, version, err := s.Draft(ctx, documentID, input)
		return version, err
	}
	if s.docID != documentID {
		if err := s.Open(documentID); err != nil {
			return 0, err
		}
	}
	switch step {
	case StepGenerateQuestions:
		if _, err := s.GenerateQuestions(ctx); err != nil {
			return 0, err
		}
		latest, err := s.store.Latest(s.docID)
		if err != nil {
			return 0, err
		}
		return latest.Number, nil
	case StepIncorporateAnswers:
		return s.IncorporateAnswers(ctx)
	case StepFinalize:
		return s.Finalize(ctx)
	default:
		return 0, fmt.Errorf("session: unknown step %q", step)
	}
}

// Draft creates the document on its first request and commits version 1 from
// the generated initial content. A documentID of "" assigns a fresh id.
func (s *Session) Draft(ctx context.Context, documentID, description string) (string, int, error) {
	if strings.TrimSpace(description) == "" {
		return "", 0, fmt.Errorf("session: draft description is required")
	}
	if documentID == "" {
		documentID = uuid.NewString()
	}
	content, err := s.generate(ctx, documentID, StepDraft, draftPrompt(description))
	if err != nil {
		return "", 0, err
	}
	version, err := s.store.Commit(store.CommitInput{
		DocumentID: documentID,
		Model:      s.model,
		Content:    content,
	})
	if err != nil {
		return "", 0, err
	}
	s.docID = documentID
	s.phase = PhaseAwaitingQuestions
	s.idleRounds = 0
	s.log.Info("session: drafted %s v%d", documentID, version)
	return documentID, version, nil
}

// GenerateQuestions asks the collaborator for clarifying questions, merges
// the candidates into the ledger, and returns the records actually added.
// Already-answered questions are passed as negative context, but the ledger
// merge filter is the authoritative guarantee they never reappear. Two
// consecutive rounds with zero net-new questions complete the loop.
func (s *Session) GenerateQuestions(ctx context.Context) ([]document.QuestionRecord, error) {
	if err := s.requireDocument(); err != nil {
		return nil, err
	}
	latest, err := s.store.Latest(s.docID)
	if err != nil {
		return nil, err
	}
	records, err := s.store.LoadLedger(s.docID)
	if err != nil {
		return nil, err
	}
	led := ledger.FromRecords(records)

	prompt := questionsPrompt(latest.Content, answeredContext(led.Answered()))
	raw, err := s.generate(ctx, s.docID, StepGenerateQuestions, prompt)
	if err != nil {
		return nil, err
	}
	candidates, err := parseQuestions(raw)
	if err != nil {
		return nil, &GenerationError{DocumentID: s.docID, Step: StepGenerateQuestions, Model: s.model, Err: err}
	}

	added := led.Merge(candidates)
	if err := s.store.SaveLedger(s.docID, led.All()); err != nil {
		return nil, err
	}

	if len(added) == 0 {
		s.idleRounds++
	} else {
		s.idleRounds = 0
	}
	switch {
	case s.idleRounds >= idleRoundsToComplete:
		s.phase = PhaseComplete
	case len(led.Unanswered()) > 0:
		s.phase = PhaseAwaitingAnswers
	default:
		s.phase = PhaseAwaitingQuestions
	}
	s.log.Info("session: %s merged %d of %d candidate questions", s.docID, len(added), len(candidates))
	return added, nil
}

// Answer records the caller's answer for a ledger question and persists the
// ledger. This is the resume point after control returned to the caller for
// human input.
func (s *Session) Answer(questionID, answer string) error {
	if err := s.requireDocument(); err != nil {
		return err
	}
	if strings.TrimSpace(answer) == "" {
		return fmt.Errorf("session: answer text is required")
	}
	records, err := s.store.LoadLedger(s.docID)
	if err != nil {
		return err
	}
	led := ledger.FromRecords(records)
	if err := led.Answer(questionID, answer); err != nil {
		return err
	}
	if err := s.store.SaveLedger(s.docID, led.All()); err != nil {
		return err
	}
	if s.phase == PhaseAwaitingAnswers && len(led.Unanswered()) == 0 {
		s.phase = PhaseAwaitingQuestions
	}
	return nil
}

// IncorporateAnswers rewrites the document with the answered questions folded
// in and commits the result as a new version carrying the ledger snapshot.
func (s *Session) IncorporateAnswers(ctx context.Context) (int, error) {
	if err := s.requireDocument(); err != nil {
		return 0, err
	}
	latest, err := s.store.Latest(s.docID)
	if err != nil {
		return 0, err
	}
	records, err := s.store.LoadLedger(s.docID)
	if err != nil {
		return 0, err
	}
	led := ledger.FromRecords(records)
	answered := led.Answered()
	if len(answered) == 0 {
		return 0, fmt.Errorf("session: %s has no answered questions to incorporate", s.docID)
	}
	content, err := s.generate(ctx, s.docID, StepIncorporateAnswers,
		incorporatePrompt(latest.Content, answeredContext(answered)))
	if err != nil {
		return 0, err
	}
	return s.commit(latest, content, led.All())
}

// Finalize polishes the document into its final form and completes the loop.
func (s *Session) Finalize(ctx context.Context) (int, error) {
	if err := s.requireDocument(); err != nil {
		return 0, err
	}
	latest, err := s.store.Latest(s.docID)
	if err != nil {
		return 0, err
	}
	records, err := s.store.LoadLedger(s.docID)
	if err != nil {
		return 0, err
	}
	content, err := s.generate(ctx, s.docID, StepFinalize, finalizePrompt(latest.Content))
	if err != nil {
		return 0, err
	}
	version, err := s.commit(latest, content, records)
	if err != nil {
		return 0, err
	}
	s.phase = PhaseComplete
	return version, nil
}

// SuggestTitle asks the collaborator for a short document title and stores it
// with its derived slug in the document metadata.
func (s *Session) SuggestTitle(ctx context.Context) (string, error) {
	if err := s.requireDocument(); err != nil {
		return "", err
	}
	latest, err := s.store.Latest(s.docID)
	if err != nil {
		return "", err
	}
	raw, err := s.generate(ctx, s.docID, stepSuggestTitle, titlePrompt(latest.Content))
	if err != nil {
		return "", err
	}
	title := firstLine(raw)
	if title == "" {
		return "", &GenerationError{DocumentID: s.docID, Step: stepSuggestTitle, Model: s.model,
			Err: errors.New("empty title suggestion")}
	}
	if err := s.store.SetTitle(s.docID, title); err != nil {
		return "", err
	}
	return title, nil
}

func (s *Session) commit(latest document.Version, content string, snapshot []document.QuestionRecord) (int, error) {
	version, err := s.store.Commit(store.CommitInput{
		DocumentID: s.docID,
		Title:      latest.Title,
		Model:      s.model,
		Content:    content,
		Questions:  snapshot,
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("session: committed %s v%d", s.docID, version)
	return version, nil
}

// generate resolves one collaborator call through the cache. The caller's
// context is wrapped with the configured timeout; a call that outlives it is
// abandoned, not cancelled, and reported as a GenerationError. Retries are a
// caller policy.
func (s *Session) generate(ctx context.Context, documentID string, step Step, prompt string) (string, error) {
	if payload, ok := s.cache.Get(string(step), prompt, s.model); ok {
		return payload, nil
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		text, err := s.gen.Generate(ctx, prompt, s.model)
		done <- outcome{text: text, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return "", &GenerationError{DocumentID: documentID, Step: step, Model: s.model, Err: res.err}
		}
		text := strings.TrimSpace(res.text)
		if text == "" {
			return "", &GenerationError{DocumentID: documentID, Step: step, Model: s.model,
				Err: errors.New("empty response")}
		}
		s.cache.Put(string(step), prompt, s.model, text)
		return text, nil
	case <-ctx.Done():
		s.log.Warn("session: %s %s abandoned: %v", step, documentID, ctx.Err())
		return "", &GenerationError{DocumentID: documentID, Step: step, Model: s.model, Err: ctx.Err()}
	}
}

func (s *Session) requireDocument() error {
	if s.docID == "" {
		return fmt.Errorf("session: no document bound; call Draft or Open first")
	}
	return nil
}

func firstLine(text string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	return strings.Trim(strings.TrimSpace(line), `"#*`)
}
