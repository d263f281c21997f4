package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/phisch84/domain-repository/internal/core/domain"
	"github.com/phisch84/domain-repository/internal/core/ports/driven"
	"github.com/phisch84/domain-repository/internal/core/ports/driving"
	"github.com/phisch84/domain-repository/internal/logger"
)

// Ensure Repository implements the interfaces.
var (
	_ driving.Repository[*domain.Note] = (*Repository[*domain.Note, *domain.NoteRecord, domain.Note])(nil)
	_ Tracked                          = (*Repository[*domain.Note, *domain.NoteRecord, domain.Note])(nil)
)

// RepositoryOption configures a Repository.
type RepositoryOption func(*repositoryConfig)

type repositoryConfig struct {
	name     string
	capacity int
	observer domain.ErrorObserver
	fromHook any
	toHook   any
}

// WithName sets the name the repository reports as driving.ObjectSource
// and uses in log lines. Defaults to the object type name.
func WithName(name string) RepositoryOption {
	return func(c *repositoryConfig) { c.name = name }
}

// WithCacheCapacity bounds the number of unchanged objects kept in the
// identity cache. Zero means unbounded.
func WithCacheCapacity(capacity int) RepositoryOption {
	return func(c *repositoryConfig) { c.capacity = capacity }
}

// WithErrorObserver sets the observer notified of domain errors.
func WithErrorObserver(observer domain.ErrorObserver) RepositoryOption {
	return func(c *repositoryConfig) { c.observer = observer }
}

// WithFromRecordHook sets a hook run after a record has been converted into
// an object. It handles fields excluded from automatic conversion.
func WithFromRecordHook[T domain.Object, D domain.Record](hook func(rec D, obj T) error) RepositoryOption {
	return func(c *repositoryConfig) { c.fromHook = hook }
}

// WithToRecordHook sets a hook run after an object has been converted into
// a record.
func WithToRecordHook[T domain.Object, D domain.Record](hook func(obj T, rec D) error) RepositoryOption {
	return func(c *repositoryConfig) { c.toHook = hook }
}

// Repository is the identity cache and state machine for objects of type
// T persisted as records of type D.
type Repository[T domain.ObjectPointer[E], D domain.Record, E any] struct {
	name      string
	dao       driven.DataAccessObject[D]
	converter *Converter
	newObject func() T
	fromHook  func(rec D, obj T) error
	toHook    func(obj T, rec D) error
	observer  domain.ErrorObserver

	// reloadMu is held exclusively by Reload and shared by the operations
	// that report changes, so no change slips in between the reload
	// notification and the rebuild of the cache.
	reloadMu sync.RWMutex

	// mu guards cache, removed and lastVirtualID.
	mu            sync.Mutex
	cache         *identityCache[T, E]
	removed       map[int]domain.State // persisted IDs removed but not yet deleted, with their prior state
	lastVirtualID int

	listenersMu sync.Mutex
	listeners   []driving.ChangeListener
}

// NewRepository creates a repository over dao. newObject constructs empty
// objects; it must not return nil.
func NewRepository[T domain.ObjectPointer[E], D domain.Record, E any](
	dao driven.DataAccessObject[D],
	converter *Converter,
	newObject func() T,
	opts ...RepositoryOption,
) (*Repository[T, D, E], error) {
	if dao == nil || converter == nil || newObject == nil {
		return nil, fmt.Errorf("%w: repository needs a data access object, a converter and a constructor", domain.ErrInvalidArgument)
	}

	var cfg repositoryConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Repository[T, D, E]{
		name:          cfg.name,
		dao:           dao,
		converter:     converter,
		newObject:     newObject,
		observer:      cfg.observer,
		removed:       make(map[int]domain.State),
		lastVirtualID: -1,
	}
	if r.name == "" {
		var zero T
		r.name = strings.TrimPrefix(fmt.Sprintf("%T", zero), "*")
	}

	if cfg.fromHook != nil {
		hook, ok := cfg.fromHook.(func(D, T) error)
		if !ok {
			return nil, fmt.Errorf("%w: from-record hook has type %T", domain.ErrInvalidArgument, cfg.fromHook)
		}
		r.fromHook = hook
	}
	if cfg.toHook != nil {
		hook, ok := cfg.toHook.(func(T, D) error)
		if !ok {
			return nil, fmt.Errorf("%w: to-record hook has type %T", domain.ErrInvalidArgument, cfg.toHook)
		}
		r.toHook = hook
	}

	cache, err := newIdentityCache[T, E](cfg.capacity)
	if err != nil {
		return nil, fmt.Errorf("%w: cache capacity %d: %v", domain.ErrInvalidArgument, cfg.capacity, err)
	}
	r.cache = cache
	return r, nil
}

// Name returns the repository name.
func (r *Repository[T, D, E]) Name() string {
	return r.name
}

// CreateObject returns a new detached object with the next virtual ID.
func (r *Repository[T, D, E]) CreateObject() (T, error) {
	obj := r.newObject()
	if domain.IsNil(obj) {
		var zero T
		return zero, r.fail("create object", errors.New("constructor returned nil"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	obj.SetID(r.nextVirtualID())
	obj.SetState(domain.StateDetached)
	return obj, nil
}

// Get returns the object with the given ID.
func (r *Repository[T, D, E]) Get(ctx context.Context, id int) (T, error) {
	var zero T

	r.mu.Lock()
	defer r.mu.Unlock()

	if obj, ok := r.cache.get(id); ok {
		return obj, nil
	}
	if _, gone := r.removed[id]; gone || id <= 0 {
		return zero, fmt.Errorf("%w: %s %d", domain.ErrNotFound, r.name, id)
	}

	logger.Debug("repository %s: cache miss for %d", r.name, id)
	rec, err := r.dao.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && (domain.IsNil(rec) || rec.IsDeleted())) {
		return zero, fmt.Errorf("%w: %s %d", domain.ErrNotFound, r.name, id)
	}
	if err != nil {
		return zero, r.fail("get", err)
	}

	obj, err := r.fromRecordLocked(rec, zero)
	if err != nil {
		return zero, r.fail("get", err)
	}
	r.cache.put(obj.ID(), obj)
	return obj, nil
}

// GetAll pulls every record from the store and returns them together with
// every other cached object, ordered by ID. Unknown records become new
// objects and unchanged objects are refreshed; objects with pending changes
// keep their local values.
func (r *Repository[T, D, E]) GetAll(ctx context.Context) ([]T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	recs, err := r.dao.GetAll(ctx)
	if err != nil {
		return nil, r.fail("get all", err)
	}

	found := make(map[int]T, len(recs))
	for _, rec := range recs {
		if domain.IsNil(rec) || rec.IsDeleted() {
			continue
		}
		if _, gone := r.removed[rec.ID()]; gone {
			continue
		}
		cached, ok := r.cache.get(rec.ID())
		if ok && cached.State() != domain.StateUnchanged {
			found[cached.ID()] = cached
			continue
		}
		obj, err := r.fromRecordLocked(rec, cached)
		if err != nil {
			return nil, r.fail("get all", err)
		}
		r.cache.put(obj.ID(), obj)
		found[obj.ID()] = obj
	}
	for id, obj := range r.cache.entries() {
		if _, ok := found[id]; !ok {
			found[id] = obj
		}
	}

	out := make([]T, 0, len(found))
	for _, obj := range found {
		out = append(out, obj)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

// Add registers obj for creation. An object with ID 0 receives the next
// virtual ID.
func (r *Repository[T, D, E]) Add(obj T) error {
	if domain.IsNil(obj) {
		return fmt.Errorf("%w: object is nil", domain.ErrInvalidArgument)
	}
	r.reloadMu.RLock()
	defer r.reloadMu.RUnlock()

	r.mu.Lock()
	state := obj.State()
	if state != domain.StateDetached && state != domain.StateAdded {
		r.mu.Unlock()
		return fmt.Errorf("%w: cannot add %s object %d", domain.ErrIllegalState, state, obj.ID())
	}
	if obj.ID() == 0 {
		obj.SetID(r.nextVirtualID())
	}
	if r.cache.contains(obj.ID()) {
		r.mu.Unlock()
		return nil
	}
	r.cache.put(obj.ID(), obj)
	obj.SetState(domain.StateAdded)
	r.mu.Unlock()

	r.notify("added", func(l driving.ChangeListener) error { return l.OnObjectAdded(r, obj) })
	return nil
}

// Remove registers obj for deletion. Objects that were never persisted are
// simply forgotten.
func (r *Repository[T, D, E]) Remove(obj T) error {
	if domain.IsNil(obj) {
		return fmt.Errorf("%w: object is nil", domain.ErrInvalidArgument)
	}
	r.reloadMu.RLock()
	defer r.reloadMu.RUnlock()

	r.mu.Lock()
	id := obj.ID()
	if !r.cache.contains(id) {
		obj.SetState(domain.StateDetached)
		r.mu.Unlock()
		return nil
	}

	r.cache.remove(id)
	switch state := obj.State(); state {
	case domain.StateUnchanged, domain.StateModified:
		obj.SetState(domain.StateDeleted)
		if id > 0 {
			r.removed[id] = state
		}
	case domain.StateAdded:
		obj.SetState(domain.StateDetached)
	}
	r.mu.Unlock()

	r.notify("removed", func(l driving.ChangeListener) error { return l.OnObjectRemoved(r, obj) })
	return nil
}

// SetModified registers obj for update.
func (r *Repository[T, D, E]) SetModified(obj T) error {
	if domain.IsNil(obj) {
		return fmt.Errorf("%w: object is nil", domain.ErrInvalidArgument)
	}
	r.reloadMu.RLock()
	defer r.reloadMu.RUnlock()

	r.mu.Lock()
	if obj.State() != domain.StateUnchanged {
		r.mu.Unlock()
		return nil
	}
	obj.SetState(domain.StateModified)
	if cached, ok := r.cache.get(obj.ID()); ok && cached.Ref() == obj.Ref() {
		// Pending objects are held, not tracked weakly.
		r.cache.put(obj.ID(), obj)
	}
	r.mu.Unlock()

	r.notify("modified", func(l driving.ChangeListener) error { return l.OnObjectModified(r, obj) })
	return nil
}

// Reload rebuilds the cache from the store. Listeners are told first so
// they can drop pending changes. Objects found in the store end up
// Unchanged; every other cached object ends up Detached and is dropped.
//
// Add, Remove and SetModified wait for a running Reload, so a listener must
// not call them from OnReload.
func (r *Repository[T, D, E]) Reload(ctx context.Context) error {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	r.notify("reload", func(l driving.ChangeListener) error { return l.OnReload(r) })

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, obj := range r.cache.entries() {
		obj.SetState(domain.StateDetached)
	}
	clear(r.removed)

	recs, err := r.dao.ReloadAll(ctx)
	if err != nil {
		return r.fail("reload", err)
	}

	for _, rec := range recs {
		if domain.IsNil(rec) || rec.IsDeleted() {
			continue
		}
		cached, _ := r.cache.get(rec.ID())
		obj, err := r.fromRecordLocked(rec, cached)
		if err != nil {
			return r.fail("reload", err)
		}
		r.cache.put(obj.ID(), obj)
	}

	for id, obj := range r.cache.entries() {
		if obj.State() == domain.StateDetached {
			r.cache.remove(id)
		}
	}
	logger.Debug("repository %s: reloaded %d records", r.name, len(recs))
	return nil
}

// Reset clears listeners, the cache and pending removals.
func (r *Repository[T, D, E]) Reset() {
	r.listenersMu.Lock()
	r.listeners = nil
	r.listenersMu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.purge()
	clear(r.removed)
	r.resetVirtualIDLocked()
}

// AddChangeListener registers listener. nil and duplicates are ignored.
func (r *Repository[T, D, E]) AddChangeListener(listener driving.ChangeListener) {
	if listener == nil {
		return
	}
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()
	if slices.Contains(r.listeners, listener) {
		return
	}
	r.listeners = append(r.listeners, listener)
}

// RemoveChangeListener deregisters listener.
func (r *Repository[T, D, E]) RemoveChangeListener(listener driving.ChangeListener) {
	if listener == nil {
		return
	}
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()
	r.listeners = slices.DeleteFunc(r.listeners, func(l driving.ChangeListener) bool { return l == listener })
}

// notify calls fn for every listener registered at the time of the call.
func (r *Repository[T, D, E]) notify(event string, fn func(driving.ChangeListener) error) {
	r.listenersMu.Lock()
	listeners := slices.Clone(r.listeners)
	r.listenersMu.Unlock()

	for _, l := range listeners {
		r.callListener(event, l, fn)
	}
}

func (r *Repository[T, D, E]) callListener(event string, l driving.ChangeListener, fn func(driving.ChangeListener) error) {
	defer func() {
		if p := recover(); p != nil {
			logger.Warn("repository %s: %s listener panicked: %v", r.name, event, p)
		}
	}()
	if err := fn(l); err != nil {
		logger.Warn("repository %s: %s listener failed: %v", r.name, event, err)
	}
}

func (r *Repository[T, D, E]) fail(op string, err error) error {
	return wrapFailure(r.observer, r.name+": "+op, err)
}

func (r *Repository[T, D, E]) nextVirtualID() int {
	id := r.lastVirtualID
	r.lastVirtualID--
	return id
}

// resetVirtualIDLocked skips past virtual IDs still cached. The counter
// never moves back up: objects created but not yet added keep theirs.
func (r *Repository[T, D, E]) resetVirtualIDLocked() {
	r.lastVirtualID = min(r.lastVirtualID, r.cache.minID()-1)
}

// fromRecordLocked converts rec into obj, creating obj if it is nil. The
// object takes the record ID and becomes Unchanged. If the object was
// cached under its previous ID it is re-cached under the new one.
func (r *Repository[T, D, E]) fromRecordLocked(rec D, obj T) (T, error) {
	if domain.IsNil(obj) {
		obj = r.newObject()
		if domain.IsNil(obj) {
			return obj, errors.New("constructor returned nil")
		}
	}

	if err := r.converter.Convert(rec, obj); err != nil {
		return obj, err
	}
	if r.fromHook != nil {
		if err := r.fromHook(rec, obj); err != nil {
			return obj, err
		}
	}

	oldID := obj.ID()
	cached, existed := r.cache.get(oldID)
	existed = existed && cached.Ref() == obj.Ref()
	if existed {
		r.cache.remove(oldID)
	}
	obj.SetID(rec.ID())
	obj.SetState(domain.StateUnchanged)
	if existed {
		r.cache.put(obj.ID(), obj)
	}
	return obj, nil
}

// toRecord converts obj into a record. Objects persisted before are
// converted into their stored record; new ones into a fresh record.
func (r *Repository[T, D, E]) toRecord(ctx context.Context, obj T) (D, error) {
	var (
		rec D
		err error
	)
	if obj.ID() > 0 && obj.State() != domain.StateAdded {
		rec, err = r.dao.Get(ctx, obj.ID())
		if errors.Is(err, domain.ErrNotFound) {
			return rec, reportError(r.observer, &domain.DataObjectNilError{DAO: r.name})
		}
	} else {
		rec, err = r.dao.CreateDataObject()
	}
	if err != nil {
		return rec, err
	}
	if domain.IsNil(rec) {
		return rec, reportError(r.observer, &domain.DataObjectNilError{DAO: r.name})
	}

	rec.SetID(obj.ID())
	rec.SetDeleted(false)
	if err := r.converter.Convert(obj, rec); err != nil {
		return rec, err
	}
	if r.toHook != nil {
		if err := r.toHook(obj, rec); err != nil {
			return rec, err
		}
	}
	return rec, nil
}
