package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/bassista/go_gym/internal/logger"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// WriteOutcome reports what happened to a best-effort local write.
type WriteOutcome int

const (
	Written WriteOutcome = iota
	// Ignored means the write failed and was dropped; memory and remote stay authoritative.
	Ignored
)

func (o WriteOutcome) String() string {
	if o == Written {
		return "written"
	}
	return "ignored"
}

// LocalStore keeps a fallback copy of the progress document on local disk.
// Errors never cross this boundary: reads degrade to an empty document and
// writes degrade to Ignored.
type LocalStore struct {
	path      string
	dir       string
	base      string
	validator *validator.Validate
	log       *logrus.Entry
	mu        sync.Mutex
}

// NewLocalStore creates a store for the given JSON file path.
func NewLocalStore(path string) (*LocalStore, error) {
	if path == "" {
		return nil, errors.New("local data file path is required")
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if dir == "" || dir == "." {
		dir = "."
	}

	return &LocalStore{
		path:      path,
		dir:       dir,
		base:      base,
		validator: NewValidator(),
		log:       logger.WithComponent("local-store"),
	}, nil
}

// Path returns the file backing the store.
func (s *LocalStore) Path() string {
	return s.path
}

// Read returns the stored document, or an empty one if the file is missing,
// unreadable, malformed or fails validation.
func (s *LocalStore) Read() ProgressDocument {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readUnlocked()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Debugf("no local data file at %s", s.path)
		} else {
			s.log.Warnf("ignoring local data file: %v", err)
		}
		return NewProgressDocument()
	}
	return doc
}

// readUnlocked reads the JSON file without acquiring the lock (caller must hold it).
func (s *LocalStore) readUnlocked() (ProgressDocument, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	defer file.Close()

	var doc ProgressDocument
	if err := json.NewDecoder(file).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode data file: %w", err)
	}
	if doc == nil {
		// a literal "null" in the file
		return NewProgressDocument(), nil
	}
	if err := doc.Validate(s.validator); err != nil {
		return nil, fmt.Errorf("validate data file: %w", err)
	}
	return doc, nil
}

// Write stores doc atomically. Failures are logged and reported as Ignored.
func (s *LocalStore) Write(doc ProgressDocument) WriteOutcome {
	if doc == nil {
		doc = NewProgressDocument()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeUnlocked(doc); err != nil {
		s.log.Warnf("local write ignored: %v", err)
		return Ignored
	}
	return Written
}

// writeUnlocked writes the document without acquiring the lock (caller must hold it).
func (s *LocalStore) writeUnlocked(doc ProgressDocument) error {
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal data: %w", err)
	}

	tmpFile, err := os.CreateTemp(s.dir, s.base+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
	}()

	if _, err := tmpFile.Write(payload); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpFile.Name(), s.path); err != nil {
		return fmt.Errorf("replace data file: %w", err)
	}

	return nil
}
