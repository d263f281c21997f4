package services

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/phisch84/domain-repository/internal/core/domain"
	"github.com/phisch84/domain-repository/internal/core/ports/driving"
	"github.com/phisch84/domain-repository/internal/logger"
)

// Ensure UnitOfWork implements the interface.
var _ driving.UnitOfWork = (*UnitOfWork)(nil)

// UnitOfWork collects the changes reported by its repositories and commits
// or rolls them back per repository, in binding order.
//
// Change log locks are never held while calling into a repository:
// phases work on a snapshot and drop what they handled afterwards.
type UnitOfWork struct {
	mu        sync.Mutex
	tracked   []Tracked
	logs      map[driving.ObjectSource]*changeLog
	listeners []driving.UnitOfWorkListener
	observer  domain.ErrorObserver
}

// NewUnitOfWork creates a unit of work tracking repos and registers it as
// a change listener on each. nil entries are skipped.
func NewUnitOfWork(repos ...Tracked) *UnitOfWork {
	u := &UnitOfWork{logs: make(map[driving.ObjectSource]*changeLog, len(repos))}
	for _, repo := range repos {
		if repo == nil {
			continue
		}
		if _, ok := u.logs[repo]; ok {
			continue
		}
		u.tracked = append(u.tracked, repo)
		u.logs[repo] = newChangeLog()
		repo.AddChangeListener(u)
	}
	return u
}

// SetErrorObserver sets the observer notified of domain errors.
func (u *UnitOfWork) SetErrorObserver(observer domain.ErrorObserver) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.observer = observer
}

func (u *UnitOfWork) logFor(src driving.ObjectSource) *changeLog {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.logs[src]
}

func (u *UnitOfWork) trackedRepos() []Tracked {
	u.mu.Lock()
	defer u.mu.Unlock()
	return slices.Clone(u.tracked)
}

// OnObjectAdded schedules obj for creation.
func (u *UnitOfWork) OnObjectAdded(src driving.ObjectSource, obj domain.Object) error {
	if l := u.logFor(src); l != nil && !domain.IsNil(obj) {
		l.added(obj)
	}
	return nil
}

// OnObjectRemoved schedules obj for deletion if it was persisted and
// forgets any pending add or update.
func (u *UnitOfWork) OnObjectRemoved(src driving.ObjectSource, obj domain.Object) error {
	if l := u.logFor(src); l != nil && !domain.IsNil(obj) {
		l.removed(obj)
	}
	return nil
}

// OnObjectModified schedules obj for update.
func (u *UnitOfWork) OnObjectModified(src driving.ObjectSource, obj domain.Object) error {
	if l := u.logFor(src); l != nil && !domain.IsNil(obj) {
		l.modified(obj)
	}
	return nil
}

// OnReload drops the pending changes of src. Objects that were pending
// creation or deletion become Detached and are reported to AfterReload.
func (u *UnitOfWork) OnReload(src driving.ObjectSource) error {
	l := u.logFor(src)
	if l == nil {
		return nil
	}

	detached := l.takeAll()
	for _, obj := range detached {
		obj.SetState(domain.StateDetached)
	}
	u.notify("after reload", detached, driving.UnitOfWorkListener.AfterReload)
	return nil
}

// Commit persists the pending changes of every tracked repository: first
// deletes, then creates, then updates. A failure stops the commit and
// leaves earlier phases and repositories committed.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	for _, repo := range u.trackedRepos() {
		l := u.logFor(repo)
		if l == nil {
			continue
		}
		logger.Debug("unit of work: committing %s", repo.Name())

		if err := u.commitDeletes(ctx, repo, l); err != nil {
			return u.fail("commit "+repo.Name(), err)
		}
		if err := u.commitSaves(ctx, repo, l, pickAdd, "after persist new", driving.UnitOfWorkListener.AfterPersistNew); err != nil {
			return u.fail("commit "+repo.Name(), err)
		}
		if err := u.commitSaves(ctx, repo, l, pickUpdate, "after persist existing", driving.UnitOfWorkListener.AfterPersistExisting); err != nil {
			return u.fail("commit "+repo.Name(), err)
		}
		repo.resetVirtualID()
	}
	return nil
}

func (u *UnitOfWork) commitDeletes(ctx context.Context, repo Tracked, l *changeLog) error {
	objs := l.snapshot(pickRemove)
	if len(objs) == 0 {
		return nil
	}
	logger.Debug("unit of work: deleting %d from %s", len(objs), repo.Name())

	if err := repo.deleteObjects(ctx, objs); err != nil {
		return err
	}
	for _, obj := range objs {
		obj.SetState(domain.StateDetached)
	}
	l.drop(pickRemove, objs)
	u.notify("after delete", objs, driving.UnitOfWorkListener.AfterDelete)
	return nil
}

func (u *UnitOfWork) commitSaves(
	ctx context.Context,
	repo Tracked,
	l *changeLog,
	pick func(*changeLog) *objectSet,
	event string,
	callback func(driving.UnitOfWorkListener, []domain.Object) error,
) error {
	objs := l.snapshot(pick)
	if len(objs) == 0 {
		return nil
	}
	logger.Debug("unit of work: saving %d to %s", len(objs), repo.Name())

	if err := repo.persistObjects(ctx, objs); err != nil {
		return err
	}
	l.drop(pick, objs)
	u.notify(event, objs, callback)
	return nil
}

// Rollback re-caches objects pending deletion and detaches objects pending
// creation. A removed object that was modified before is restored as
// Modified and scheduled for update again; pending updates are left alone.
// Affected objects are reported to AfterRollback in one batch.
func (u *UnitOfWork) Rollback() error {
	var affected []domain.Object
	for _, repo := range u.trackedRepos() {
		l := u.logFor(repo)
		if l == nil {
			continue
		}

		removes, adds := l.takeRollback()
		for _, obj := range removes {
			state, err := repo.restore(obj)
			if err != nil {
				return u.fail("rollback "+repo.Name(), err)
			}
			if state == domain.StateModified {
				l.modified(obj)
			}
		}
		for _, obj := range adds {
			if err := repo.discard(obj); err != nil {
				return u.fail("rollback "+repo.Name(), err)
			}
		}
		affected = append(affected, removes...)
		affected = append(affected, adds...)
	}

	if len(affected) > 0 {
		u.notify("after rollback", affected, driving.UnitOfWorkListener.AfterRollback)
	}
	return nil
}

// Pending reports the change log sizes per tracked repository.
func (u *UnitOfWork) Pending() []driving.PendingChanges {
	var out []driving.PendingChanges
	for _, repo := range u.trackedRepos() {
		l := u.logFor(repo)
		if l == nil {
			continue
		}
		add, update, remove := l.counts()
		out = append(out, driving.PendingChanges{
			Source:   repo.Name(),
			ToAdd:    add,
			ToUpdate: update,
			ToRemove: remove,
		})
	}
	return out
}

// AddListener registers listener. Duplicates are ignored.
func (u *UnitOfWork) AddListener(listener driving.UnitOfWorkListener) error {
	if listener == nil {
		return fmt.Errorf("%w: listener is nil", domain.ErrInvalidArgument)
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if !slices.Contains(u.listeners, listener) {
		u.listeners = append(u.listeners, listener)
	}
	return nil
}

// RemoveListener deregisters listener.
func (u *UnitOfWork) RemoveListener(listener driving.UnitOfWorkListener) error {
	if listener == nil {
		return fmt.Errorf("%w: listener is nil", domain.ErrInvalidArgument)
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.listeners = slices.DeleteFunc(u.listeners, func(l driving.UnitOfWorkListener) bool { return l == listener })
	return nil
}

// Close rolls back pending adds and removes and stops tracking every
// repository. The rollback error, if any, is returned after deregistering.
func (u *UnitOfWork) Close() error {
	err := u.Rollback()

	u.mu.Lock()
	repos := u.tracked
	u.tracked = nil
	u.logs = make(map[driving.ObjectSource]*changeLog)
	u.mu.Unlock()

	for _, repo := range repos {
		repo.RemoveChangeListener(u)
	}
	return err
}

func (u *UnitOfWork) notify(
	event string,
	objs []domain.Object,
	callback func(driving.UnitOfWorkListener, []domain.Object) error,
) {
	u.mu.Lock()
	listeners := slices.Clone(u.listeners)
	u.mu.Unlock()

	for _, l := range listeners {
		u.callListener(event, l, objs, callback)
	}
}

func (u *UnitOfWork) callListener(
	event string,
	l driving.UnitOfWorkListener,
	objs []domain.Object,
	callback func(driving.UnitOfWorkListener, []domain.Object) error,
) {
	defer func() {
		if p := recover(); p != nil {
			logger.Warn("unit of work: %s listener panicked: %v", event, p)
		}
	}()
	if err := callback(l, slices.Clone(objs)); err != nil {
		logger.Warn("unit of work: %s listener failed: %v", event, err)
	}
}

func (u *UnitOfWork) fail(op string, err error) error {
	u.mu.Lock()
	obs := u.observer
	u.mu.Unlock()
	return wrapFailure(obs, op, err)
}
