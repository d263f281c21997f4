package services

import (
	"context"
	"fmt"

	"github.com/phisch84/domain-repository/internal/core/domain"
	"github.com/phisch84/domain-repository/internal/core/ports/driving"
)

// Tracked is a repository a UnitOfWork can commit and roll back. It is
// implemented by Repository for any type pair.
type Tracked interface {
	driving.ObjectSource
	AddChangeListener(listener driving.ChangeListener)
	RemoveChangeListener(listener driving.ChangeListener)

	// deleteObjects deletes the records of objs from the store.
	deleteObjects(ctx context.Context, objs []domain.Object) error

	// persistObjects saves objs and writes store-assigned values back into
	// them. Saved objects end up Unchanged and cached under their IDs.
	persistObjects(ctx context.Context, objs []domain.Object) error

	// resetVirtualID recomputes the next virtual ID from the cache.
	resetVirtualID()

	// restore re-caches obj in the state it had before it was removed,
	// Unchanged or Modified, without notifying listeners. It returns that
	// state.
	restore(obj domain.Object) (domain.State, error)

	// discard drops obj from the cache as Detached without notifying
	// listeners.
	discard(obj domain.Object) error
}

func (r *Repository[T, D, E]) typed(objs []domain.Object) ([]T, error) {
	out := make([]T, 0, len(objs))
	for _, obj := range objs {
		t, ok := obj.(T)
		if !ok {
			return nil, fmt.Errorf("repository %s cannot handle %T", r.name, obj)
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *Repository[T, D, E]) records(ctx context.Context, objs []T) ([]D, error) {
	recs := make([]D, 0, len(objs))
	for _, obj := range objs {
		rec, err := r.toRecord(ctx, obj)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (r *Repository[T, D, E]) deleteObjects(ctx context.Context, objs []domain.Object) error {
	ts, err := r.typed(objs)
	if err != nil {
		return err
	}
	recs, err := r.records(ctx, ts)
	if err != nil {
		return err
	}
	if err := r.dao.Delete(ctx, recs...); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, obj := range ts {
		delete(r.removed, obj.ID())
	}
	return nil
}

func (r *Repository[T, D, E]) persistObjects(ctx context.Context, objs []domain.Object) error {
	ts, err := r.typed(objs)
	if err != nil {
		return err
	}
	recs, err := r.records(ctx, ts)
	if err != nil {
		return err
	}
	if err := r.dao.Save(ctx, recs...); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i, rec := range recs {
		obj, err := r.fromRecordLocked(rec, ts[i])
		if err != nil {
			return err
		}
		r.cache.put(obj.ID(), obj)
	}
	return nil
}

func (r *Repository[T, D, E]) resetVirtualID() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetVirtualIDLocked()
}

func (r *Repository[T, D, E]) restore(obj domain.Object) (domain.State, error) {
	ts, err := r.typed([]domain.Object{obj})
	if err != nil {
		return domain.StateDetached, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	state := domain.StateUnchanged
	if prior, ok := r.removed[obj.ID()]; ok && prior == domain.StateModified {
		state = prior
	}
	ts[0].SetState(state)
	r.cache.put(ts[0].ID(), ts[0])
	delete(r.removed, ts[0].ID())
	return state, nil
}

func (r *Repository[T, D, E]) discard(obj domain.Object) error {
	ts, err := r.typed([]domain.Object{obj})
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.cache.get(obj.ID()); ok && cached.Ref() == obj.Ref() {
		r.cache.remove(obj.ID())
	}
	ts[0].SetState(domain.StateDetached)
	return nil
}
