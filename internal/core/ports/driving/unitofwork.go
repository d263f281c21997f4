package driving

import "context"

// PendingChanges summarises the change log of one tracked repository.
type PendingChanges struct {
	Source   string
	ToAdd    int
	ToUpdate int
	ToRemove int
}

// Total returns the number of pending changes.
func (p PendingChanges) Total() int {
	return p.ToAdd + p.ToUpdate + p.ToRemove
}

// UnitOfWork batches changes of one or more repositories and commits or
// rolls them back as a group.
type UnitOfWork interface {
	ChangeListener

	// Commit persists pending deletes, creates and updates of every
	// tracked repository in binding order. Commit is not atomic: a failure
	// leaves earlier phases and repositories committed.
	Commit(ctx context.Context) error

	// Rollback undoes pending adds and removes. Pending updates keep their
	// in-memory values and stay Modified.
	Rollback() error

	AddListener(listener UnitOfWorkListener) error
	RemoveListener(listener UnitOfWorkListener) error

	// Pending reports the change log sizes per tracked repository.
	Pending() []PendingChanges

	// Close rolls back and stops tracking every repository.
	Close() error
}
