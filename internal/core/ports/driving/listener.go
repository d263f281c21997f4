package driving

import "github.com/phisch84/domain-repository/internal/core/domain"

// ChangeListener observes a repository. Errors returned by a listener are
// logged by the repository and never fail the triggering operation.
type ChangeListener interface {
	OnObjectAdded(src ObjectSource, obj domain.Object) error
	OnObjectRemoved(src ObjectSource, obj domain.Object) error
	OnObjectModified(src ObjectSource, obj domain.Object) error

	// OnReload is called before src rebuilds its cache.
	OnReload(src ObjectSource) error
}

// UnitOfWorkListener observes a unit of work. Each callback receives the
// batch of objects affected by one phase.
type UnitOfWorkListener interface {
	AfterPersistNew(objs []domain.Object) error
	AfterPersistExisting(objs []domain.Object) error
	AfterDelete(objs []domain.Object) error
	AfterRollback(objs []domain.Object) error
	AfterReload(objs []domain.Object) error
}
