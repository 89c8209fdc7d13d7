package repository

// FallbackStore is the local copy used when the remote store is unreachable or unconfigured.
// LocalStore implements this interface.
type FallbackStore interface {
	Read() ProgressDocument
	Write(doc ProgressDocument) WriteOutcome
}
