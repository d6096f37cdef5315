// Package store persists document revisions as paired Markdown + structured
// YAML files with monotonic version numbers, plus the per-document question
// ledger. Commits take a per-document critical section so version numbers
// stay contiguous; unrelated documents never block each other.

package store

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mknox/specforge/internal/document"
)

// ErrNotFound indicates a missing document, version, or metadata record.
var ErrNotFound = errors.New("store: not found")

// StorageError wraps an I/O failure on persist or read. It is fatal for the
// current operation; a commit that fails with it has written nothing visible.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Store manages version and ledger IO rooted at the documents directory.
type Store struct {
	root  string
	now   func() time.Time
	locks sync.Map // document id -> *sync.Mutex
}

// Option customizes a Store during construction.
type Option func(*Store)

// WithClock overrides the clock used for commit timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.now = clock
		}
	}
}

// New builds a store rooted at the given directory.
func New(root string, opts ...Option) *Store {
	s := &Store{
		root: root,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CommitInput carries everything a commit persists: the full Markdown
// content, document metadata, and the ledger snapshot taken at commit time.
// The structured section form is derived from the content so the two
// representations can never drift.
type CommitInput struct {
	DocumentID string
	Title      string
	Model      string
	Content    string
	Questions  []document.QuestionRecord
}

// Commit assigns the next contiguous version number for the document and
// persists both representations. The Markdown file is renamed into place
// last, acting as the commit point: a failure part-way never leaves a
// readable partial version.
func (s *Store) Commit(in CommitInput) (int, error) {
	if in.DocumentID == "" {
		return 0, fmt.Errorf("store: document id is required")
	}
	lock := s.lock(in.DocumentID)
	lock.Lock()
	defer lock.Unlock()

	dir := s.documentDir(in.DocumentID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, &StorageError{Op: "ensure dir", Path: dir, Err: err}
	}
	if err := s.ensureMeta(in.DocumentID, in.Title); err != nil {
		return 0, err
	}

	number, err := s.nextVersion(dir)
	if err != nil {
		return 0, err
	}
	created := s.now().UTC()

	structured := versionFile{
		Document:  in.DocumentID,
		Version:   number,
		Title:     in.Title,
		Model:     in.Model,
		Created:   created.Format(timeLayout),
		Sections:  document.SplitSections(in.Content),
		Questions: in.Questions,
	}
	structuredData, err := yaml.Marshal(structured)
	if err != nil {
		return 0, &StorageError{Op: "encode", Path: s.structuredPath(dir, number), Err: err}
	}

	sum := sha256.Sum256([]byte(in.Content))
	markdown, err := document.WriteFrontMatter(document.FrontMatter{
		DocumentID: in.DocumentID,
		Version:    number,
		Title:      in.Title,
		Model:      in.Model,
		CreatedAt:  created,
		Checksum:   hex.EncodeToString(sum[:]),
	}, []byte(in.Content))
	if err != nil {
		return 0, err
	}

	if err := writeAtomic(s.structuredPath(dir, number), structuredData); err != nil {
		return 0, err
	}
	if err := writeAtomic(s.markdownPath(dir, number), markdown); err != nil {
		return 0, err
	}
	return number, nil
}

// Read loads one committed version by number.
func (s *Store) Read(documentID string, version int) (document.Version, error) {
	dir := s.documentDir(documentID)
	data, err := os.ReadFile(s.structuredPath(dir, version))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return document.Version{}, fmt.Errorf("%w: %s v%d", ErrNotFound, documentID, version)
		}
		return document.Version{}, &StorageError{Op: "read", Path: s.structuredPath(dir, version), Err: err}
	}
	var stored versionFile
	if err := yaml.Unmarshal(data, &stored); err != nil {
		return document.Version{}, &StorageError{Op: "decode", Path: s.structuredPath(dir, version), Err: err}
	}
	created, err := time.Parse(timeLayout, stored.Created)
	if err != nil {
		return document.Version{}, &StorageError{Op: "decode", Path: s.structuredPath(dir, version), Err: err}
	}
	return document.Version{
		DocumentID: stored.Document,
		Number:     stored.Version,
		Title:      stored.Title,
		Model:      stored.Model,
		CreatedAt:  created.UTC(),
		Content:    document.JoinSections(stored.Sections),
		Sections:   stored.Sections,
		Questions:  stored.Questions,
	}, nil
}

// Latest resolves the highest committed version number at call time.
func (s *Store) Latest(documentID string) (document.Version, error) {
	numbers, err := s.versionNumbers(s.documentDir(documentID))
	if err != nil {
		return document.Version{}, err
	}
	if len(numbers) == 0 {
		return document.Version{}, fmt.Errorf("%w: %s has no versions", ErrNotFound, documentID)
	}
	return s.Read(documentID, numbers[len(numbers)-1])
}

// VersionInfo is the listing metadata for one committed version.
type VersionInfo struct {
	Number    int
	Title     string
	Model     string
	CreatedAt time.Time
}

// List returns metadata for every committed version in ascending order.
func (s *Store) List(documentID string) ([]VersionInfo, error) {
	dir := s.documentDir(documentID)
	numbers, err := s.versionNumbers(dir)
	if err != nil {
		return nil, err
	}
	if len(numbers) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, documentID)
	}
	infos := make([]VersionInfo, 0, len(numbers))
	for _, number := range numbers {
		data, err := os.ReadFile(s.markdownPath(dir, number))
		if err != nil {
			return nil, &StorageError{Op: "read", Path: s.markdownPath(dir, number), Err: err}
		}
		meta, _, err := document.ParseFrontMatter(data)
		if err != nil {
			return nil, &StorageError{Op: "decode", Path: s.markdownPath(dir, number), Err: err}
		}
		infos = append(infos, VersionInfo{
			Number:    meta.Version,
			Title:     meta.Title,
			Model:     meta.Model,
			CreatedAt: meta.CreatedAt,
		})
	}
	return infos, nil
}

// Documents returns metadata for every document under the store root.
func (s *Store) Documents() ([]document.Meta, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &StorageError{Op: "read dir", Path: s.root, Err: err}
	}
	var metas []document.Meta
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Meta(entry.Name())
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		metas = append(metas, meta)
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].ID < metas[j].ID })
	return metas, nil
}

// Meta loads the document metadata record.
func (s *Store) Meta(documentID string) (document.Meta, error) {
	path := s.metaPath(documentID)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return document.Meta{}, fmt.Errorf("%w: %s", ErrNotFound, documentID)
		}
		return document.Meta{}, &StorageError{Op: "read", Path: path, Err: err}
	}
	var meta document.Meta
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return document.Meta{}, &StorageError{Op: "decode", Path: path, Err: err}
	}
	return meta, nil
}

// SetTitle updates the document title and derived slug.
func (s *Store) SetTitle(documentID, title string) error {
	lock := s.lock(documentID)
	lock.Lock()
	defer lock.Unlock()

	meta, err := s.Meta(documentID)
	if err != nil {
		return err
	}
	meta.Title = title
	meta.Slug = document.Slugify(title)
	return s.writeMeta(meta)
}

// SaveLedger persists the full question ledger for a document.
func (s *Store) SaveLedger(documentID string, records []document.QuestionRecord) error {
	dir := s.documentDir(documentID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &StorageError{Op: "ensure dir", Path: dir, Err: err}
	}
	data, err := yaml.Marshal(ledgerFile{Document: documentID, Questions: records})
	if err != nil {
		return &StorageError{Op: "encode", Path: s.ledgerPath(documentID), Err: err}
	}
	return writeAtomic(s.ledgerPath(documentID), data)
}

// LoadLedger reads the question ledger for a document. A missing ledger file
// is an empty ledger, not an error.
func (s *Store) LoadLedger(documentID string) ([]document.QuestionRecord, error) {
	data, err := os.ReadFile(s.ledgerPath(documentID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &StorageError{Op: "read", Path: s.ledgerPath(documentID), Err: err}
	}
	var stored ledgerFile
	if err := yaml.Unmarshal(data, &stored); err != nil {
		return nil, &StorageError{Op: "decode", Path: s.ledgerPath(documentID), Err: err}
	}
	return stored.Questions, nil
}

type versionFile struct {
	Document  string                    `yaml:"document"`
	Version   int                       `yaml:"version"`
	Title     string                    `yaml:"title,omitempty"`
	Model     string                    `yaml:"model,omitempty"`
	Created   string                    `yaml:"created"`
	Sections  []document.Section        `yaml:"sections"`
	Questions []document.QuestionRecord `yaml:"questions,omitempty"`
}

type ledgerFile struct {
	Document  string                    `yaml:"document"`
	Questions []document.QuestionRecord `yaml:"questions"`
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

var markdownName = regexp.MustCompile(`^v(\d+)\.md$`)

func (s *Store) lock(documentID string) *sync.Mutex {
	actual, _ := s.locks.LoadOrStore(documentID, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

func (s *Store) documentDir(documentID string) string {
	return filepath.Join(s.root, documentID)
}

func (s *Store) metaPath(documentID string) string {
	return filepath.Join(s.documentDir(documentID), "document.yaml")
}

func (s *Store) ledgerPath(documentID string) string {
	return filepath.Join(s.documentDir(documentID), "ledger.yaml")
}

func (s *Store) markdownPath(dir string, version int) string {
	return filepath.Join(dir, fmt.Sprintf("v%d.md", version))
}

func (s *Store) structuredPath(dir string, version int) string {
	return filepath.Join(dir, fmt.Sprintf("v%d.yaml", version))
}

// versionNumbers lists committed version numbers in ascending order, keyed on
// the Markdown files since those are the commit point.
func (s *Store) versionNumbers(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &StorageError{Op: "read dir", Path: dir, Err: err}
	}
	var numbers []int
	for _, entry := range entries {
		match := markdownName.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		number, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		numbers = append(numbers, number)
	}
	sort.Ints(numbers)
	return numbers, nil
}

func (s *Store) nextVersion(dir string) (int, error) {
	numbers, err := s.versionNumbers(dir)
	if err != nil {
		return 0, err
	}
	if len(numbers) == 0 {
		return 1, nil
	}
	return numbers[len(numbers)-1] + 1, nil
}

func (s *Store) ensureMeta(documentID, title string) error {
	_, err := s.Meta(documentID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	return s.writeMeta(document.Meta{
		ID:        documentID,
		Title:     title,
		Slug:      document.Slugify(title),
		CreatedAt: s.now().UTC(),
	})
}

func (s *Store) writeMeta(meta document.Meta) error {
	data, err := yaml.Marshal(meta)
	if err != nil {
		return &StorageError{Op: "encode", Path: s.metaPath(meta.ID), Err: err}
	}
	return writeAtomic(s.metaPath(meta.ID), data)
}

// writeAtomic stages to a temp file and renames into place so readers never
// observe a half-written file.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		return &StorageError{Op: "commit", Path: path, Err: err}
	}
	return nil
}
