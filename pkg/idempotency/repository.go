package idempotency

import "context"

// KeyRepository persists Records keyed by (service, user, key)
type KeyRepository interface {
	// AcquireLock atomically returns the existing record or inserts candidate
	// locked. created reports which of the two happened.
	AcquireLock(ctx context.Context, candidate *Record) (stored *Record, created bool, err error)

	// ReleaseLock frees a record whose request failed so the client may retry
	ReleaseLock(ctx context.Context, keyID string) error

	// StoreResponse completes a record, ErrNotFound if it no longer exists
	StoreResponse(ctx context.Context, keyID string, responseCode int, responseBody []byte, headers map[string]string) error
}
