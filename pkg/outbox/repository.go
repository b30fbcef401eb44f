package outbox

import "context"

// Repository stores messages until the publisher confirms delivery.
// SaveAll must join the caller's transaction when ctx carries a session.
type Repository interface {
	SaveAll(ctx context.Context, messages []*Message) error

	// FindUnpublished returns up to limit pending messages, oldest first
	FindUnpublished(ctx context.Context, limit int) ([]*Message, error)
	CountUnpublished(ctx context.Context) (int64, error)

	MarkPublished(ctx context.Context, id string) error
	IncrementRetry(ctx context.Context, id string, lastError string) error
}
