package driving

import (
	"context"

	"github.com/phisch84/domain-repository/internal/core/domain"
)

// ObjectSource identifies where a change notification came from.
type ObjectSource interface {
	Name() string
}

// Repository is the identity cache and state machine for one object type.
type Repository[T domain.Object] interface {
	ObjectSource

	// CreateObject returns a new detached object carrying the next
	// virtual ID. The object is not cached until it is added.
	CreateObject() (T, error)

	// Get returns the object with the given ID, loading it from the store
	// on a cache miss. Returns domain.ErrNotFound if the store has no such
	// record.
	Get(ctx context.Context, id int) (T, error)

	// GetAll returns every known object ordered by ID.
	GetAll(ctx context.Context) ([]T, error)

	// Add registers obj for creation. Re-adding a cached object is a no-op.
	Add(obj T) error

	// Remove registers obj for deletion, or forgets it if it was never
	// persisted.
	Remove(obj T) error

	// SetModified registers obj for update. No-op unless obj is Unchanged.
	SetModified(obj T) error

	// Reload discards pending changes and rebuilds the cache from the store.
	Reload(ctx context.Context) error

	// Reset clears listeners and the cache.
	Reset()

	AddChangeListener(listener ChangeListener)
	RemoveChangeListener(listener ChangeListener)
}
