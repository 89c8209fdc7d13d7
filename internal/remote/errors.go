package remote

import (
	"fmt"

	"github.com/containerd/errdefs"
)

var (
	// ErrNotFound means the document has not been created yet. It is an
	// expected outcome, not a failure; the first commit creates the file.
	ErrNotFound = fmt.Errorf("remote progress document: %w", errdefs.ErrNotFound)

	// ErrConflict means the revision token was stale, even after the single retry.
	ErrConflict = fmt.Errorf("remote revision is stale: %w", errdefs.ErrConflict)
)

// TransportError covers network failures, timeouts and unexpected statuses.
// It classifies as errdefs.ErrUnavailable.
type TransportError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("remote %s failed: %v", e.Op, e.Err)
	case e.Body != "":
		return fmt.Sprintf("remote %s failed: HTTP %d: %s", e.Op, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("remote %s failed: HTTP %d", e.Op, e.StatusCode)
	}
}

func (e *TransportError) Unwrap() []error {
	if e.Err == nil {
		return []error{errdefs.ErrUnavailable}
	}
	return []error{e.Err, errdefs.ErrUnavailable}
}
