package cache

import "context"

// SessionStore is the cache API the progress repository depends on.
// Session implements it; presentation code never touches it directly.
type SessionStore interface {
	GetOrInit(ctx context.Context, load Loader) (Entry, error)
	Set(entry Entry)
	Invalidate()
	Populated() bool
}
