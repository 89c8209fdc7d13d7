package cache

import (
	"context"
	"sync"

	"github.com/bassista/go_gym/internal/repository"
)

// Entry is what the session keeps: the merged document and the remote
// revision it was last seen at (empty if unknown or not created yet).
type Entry struct {
	Document repository.ProgressDocument
	Revision string
	// Detached is set when the document came from the local fallback because
	// the remote could not be read. Revision is meaningless until it is cleared.
	Detached bool
}

// Loader produces the initial entry for an empty session.
type Loader func(ctx context.Context) (Entry, error)

// Session keeps an in-memory copy of the progress document for one session.
// Documents are deep-copied on the way in and out so callers never share
// slices with the cache.
type Session struct {
	mu        sync.Mutex
	entry     Entry
	populated bool
}

// NewSession creates an empty session cache.
func NewSession() *Session {
	return &Session{}
}

// GetOrInit returns the cached entry, or runs load once, stores and returns
// its result. The lock is held while load runs, so concurrent callers wait
// for the first load instead of starting their own. load must not call back
// into the session. A failed load leaves the slot empty.
func (s *Session) GetOrInit(ctx context.Context, load Loader) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.populated {
		return cloneEntry(s.entry), nil
	}

	entry, err := load(ctx)
	if err != nil {
		return Entry{}, err
	}
	if entry.Document == nil {
		entry.Document = repository.NewProgressDocument()
	}

	s.entry = cloneEntry(entry)
	s.populated = true
	return cloneEntry(s.entry), nil
}

// Set replaces the cached entry.
func (s *Session) Set(entry Entry) {
	if entry.Document == nil {
		entry.Document = repository.NewProgressDocument()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry = cloneEntry(entry)
	s.populated = true
}

// Invalidate clears the slot so the next GetOrInit reloads.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry = Entry{}
	s.populated = false
}

// Populated reports whether the slot currently holds an entry.
func (s *Session) Populated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.populated
}

func cloneEntry(e Entry) Entry {
	return Entry{Document: e.Document.Clone(), Revision: e.Revision, Detached: e.Detached}
}
