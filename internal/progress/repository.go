package progress

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bassista/go_gym/internal/cache"
	"github.com/bassista/go_gym/internal/logger"
	"github.com/bassista/go_gym/internal/metrics"
	"github.com/bassista/go_gym/internal/remote"
	"github.com/bassista/go_gym/internal/repository"
	"github.com/containerd/errdefs"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

var (
	// ErrSyncFailed is wrapped by AppendRecord when the record was kept in
	// memory and in the local file but the remote commit did not complete.
	ErrSyncFailed = errors.New("remote sync failed")

	// ErrRemoteUnconfigured is joined with ErrSyncFailed in local-only mode.
	ErrRemoteUnconfigured = errors.New("remote store is not configured")

	ErrInvalidRecord = errors.New("invalid exercise record")
)

// RemoteStore is the remote side of the repository. remote.Client implements it.
type RemoteStore interface {
	Fetch(ctx context.Context) (remote.Snapshot, error)
	Commit(ctx context.Context, doc repository.ProgressDocument, revision, message string) (string, error)
}

// Repository is the record-oriented facade over the session cache, the local
// fallback file and the remote store. Remote wins over local wins over empty.
type Repository struct {
	remote    RemoteStore
	local     repository.FallbackStore
	session   cache.SessionStore
	metrics   *metrics.Manager
	validator *validator.Validate
	log       *logrus.Entry

	// mu serializes appends so one session behaves as a single thread of control.
	mu sync.Mutex
	// pending holds records appended while the cached entry was detached,
	// oldest first. They are replayed onto the remote document once it can be read.
	pending []pendingRecord
}

type pendingRecord struct {
	exercise string
	record   repository.ExerciseRecord
}

// NewRepository wires the three tiers together. rs may be nil, in which case
// the repository runs in local-only mode and every append reports a sync failure.
func NewRepository(rs RemoteStore, local repository.FallbackStore, session cache.SessionStore, m *metrics.Manager) (*Repository, error) {
	if local == nil {
		return nil, errors.New("local store is nil")
	}
	if session == nil {
		return nil, errors.New("session cache is nil")
	}
	if m == nil {
		return nil, errors.New("metrics manager is nil")
	}

	r := &Repository{
		remote:    rs,
		local:     local,
		session:   session,
		metrics:   m,
		validator: repository.NewValidator(),
		log:       logger.WithComponent("progress"),
	}
	if rs == nil {
		r.log.Warn("remote sync is not configured; records are kept locally only")
	}
	return r, nil
}

// RemoteConfigured reports whether a remote store is wired in.
func (r *Repository) RemoteConfigured() bool {
	return r.remote != nil
}

// InitialLoad reads the remote document, falling back to the local file when
// the remote is missing, unreachable or unconfigured, and to an empty document
// after that. It never fails.
func (r *Repository) InitialLoad(ctx context.Context) (cache.Entry, error) {
	entry, _ := r.load(ctx)
	return entry, nil
}

// load is InitialLoad that also reports why an unreachable remote was skipped.
// The returned error is nil when the remote was read or does not exist yet.
func (r *Repository) load(ctx context.Context) (cache.Entry, error) {
	var fetchErr error
	if r.remote != nil {
		snap, err := r.remote.Fetch(ctx)
		switch {
		case err == nil:
			r.log.Infof("loaded %d records from remote", snap.Document.Count())
			return cache.Entry{Document: snap.Document, Revision: snap.Revision}, nil
		case errdefs.IsNotFound(err):
			r.log.Info("remote document does not exist yet, falling back to local file")
		default:
			r.log.Warnf("remote fetch failed, falling back to local file: %v", err)
			fetchErr = err
		}
	}

	doc := r.local.Read()
	r.log.Debugf("loaded %d records from local file", doc.Count())
	return cache.Entry{Document: doc, Detached: fetchErr != nil}, fetchErr
}

// reattach reads the remote again for a detached entry. On success the
// pending records are replayed onto the remote document, which then replaces
// the fallback copy. On failure the entry is returned unchanged.
func (r *Repository) reattach(ctx context.Context, entry cache.Entry) (cache.Entry, error) {
	snap, err := r.remote.Fetch(ctx)
	switch {
	case err == nil:
		doc := snap.Document
		if doc == nil {
			doc = repository.NewProgressDocument()
		}
		for _, p := range r.pending {
			doc.Append(p.exercise, p.record)
		}
		r.log.Infof("remote readable again at revision %s, replayed %d pending records", snap.Revision, len(r.pending))
		r.pending = nil
		return cache.Entry{Document: doc, Revision: snap.Revision}, nil
	case errdefs.IsNotFound(err):
		// nothing to rebase onto; the fallback document becomes the first commit
		r.pending = nil
		return cache.Entry{Document: entry.Document}, nil
	default:
		return entry, err
	}
}

// AppendRecord logs weight for exercise on date (YYYY-MM-DD).
//
// The record always lands in the session cache and, best effort, in the local
// file. A nil return means the remote commit succeeded as well. Otherwise the
// error wraps ErrSyncFailed and the caller should tell the user that only the
// remote step failed.
//
// When the session was loaded from the fallback because the remote could not
// be read, the remote is read again before committing so the write is based
// on its current revision instead of the fallback copy.
func (r *Repository) AppendRecord(ctx context.Context, exercise string, weight float64, date string) error {
	exercise = strings.TrimSpace(exercise)
	rec := repository.ExerciseRecord{Date: date, Weight: weight}
	if exercise == "" {
		return fmt.Errorf("%w: exercise name is required", ErrInvalidRecord)
	}
	if err := r.validator.Struct(&rec); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// fetchErr is set when this call loaded the session and the remote was unreadable
	var fetchErr error
	entry, err := r.session.GetOrInit(ctx, func(ctx context.Context) (cache.Entry, error) {
		var e cache.Entry
		e, fetchErr = r.load(ctx)
		return e, nil
	})
	if err != nil {
		return fmt.Errorf("load progress: %w", err)
	}
	if entry.Detached && fetchErr == nil {
		entry, fetchErr = r.reattach(ctx, entry)
	}

	entry.Document.Append(exercise, rec)
	if entry.Detached {
		r.pending = append(r.pending, pendingRecord{exercise: exercise, record: rec})
	}
	// the cache reflects the new record whatever the remote says;
	// the revision stays the last one actually observed
	r.session.Set(entry)

	outcome := r.local.Write(entry.Document)
	r.metrics.CounterLocalWrites.WithLabelValues(outcome.String()).Inc()

	if r.remote == nil {
		r.metrics.CounterRecords.WithLabelValues("false").Inc()
		return errors.Join(ErrSyncFailed, ErrRemoteUnconfigured)
	}
	if entry.Detached {
		r.metrics.CounterRecords.WithLabelValues("false").Inc()
		r.log.Warnf("record for %q kept locally, remote unreadable (%d pending): %v", exercise, len(r.pending), fetchErr)
		return fmt.Errorf("%w: %w", ErrSyncFailed, fetchErr)
	}

	newRevision, err := r.remote.Commit(ctx, entry.Document, entry.Revision, commitMessage(exercise, weight, date))
	if err != nil {
		r.metrics.CounterRecords.WithLabelValues("false").Inc()
		r.log.Warnf("record for %q kept locally, remote sync failed: %v", exercise, err)
		return fmt.Errorf("%w: %w", ErrSyncFailed, err)
	}

	r.session.Set(cache.Entry{Document: entry.Document, Revision: newRevision})
	r.metrics.CounterRecords.WithLabelValues("true").Inc()
	r.log.Infof("record for %q synced at revision %s", exercise, newRevision)
	return nil
}

// QueryRecords returns the records for exercise, oldest first. It reads the
// session cache and only loads when the cache is empty.
func (r *Repository) QueryRecords(ctx context.Context, exercise string) ([]repository.ExerciseRecord, error) {
	entry, err := r.session.GetOrInit(ctx, r.InitialLoad)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	return entry.Document.Records(exercise), nil
}

// Document returns a copy of the whole cached document.
func (r *Repository) Document(ctx context.Context) (repository.ProgressDocument, error) {
	entry, err := r.session.GetOrInit(ctx, r.InitialLoad)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	return entry.Document, nil
}

// ForceRefresh drops the session cache; the next access runs InitialLoad again.
func (r *Repository) ForceRefresh() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session.Invalidate()
	if len(r.pending) > 0 {
		r.log.Warnf("dropping %d records that never reached the remote", len(r.pending))
		r.pending = nil
	}
	r.log.Info("session cache invalidated")
}

func commitMessage(exercise string, weight float64, date string) string {
	return fmt.Sprintf("Add/update record: %s %s @ %s", exercise, strconv.FormatFloat(weight, 'f', -1, 64), date)
}

// Today formats t as a record date.
func Today(t time.Time) string {
	return t.Format(repository.DateLayout)
}
