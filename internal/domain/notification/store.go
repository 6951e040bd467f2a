package notification

import "context"

// NotificationStore defines the contract for persisting notification records.
// Implementations live in infra/store/ (memory, Supabase, Redis) and must be
// safe for concurrent use across different ids.
type NotificationStore interface {
	// Create inserts a new notification log. Returns a *common.DuplicateError
	// if the id already exists.
	Create(ctx context.Context, log *NotificationLog) (*NotificationLog, error)

	// Update applies a partial update and returns the updated record.
	// Returns a *common.NotFoundError if the id is unknown.
	Update(ctx context.Context, id string, patch Patch) (*NotificationLog, error)

	// GetByID retrieves a notification log by its ID.
	// Returns a *common.NotFoundError if the id is unknown.
	GetByID(ctx context.Context, id string) (*NotificationLog, error)

	// List retrieves notification logs newest-created first, along with the
	// total number of matches before pagination.
	List(ctx context.Context, filter ListFilter) ([]*NotificationLog, int, error)
}
