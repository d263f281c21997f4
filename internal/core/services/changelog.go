package services

import (
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/phisch84/domain-repository/internal/core/domain"
)

// objectSet is an insertion-ordered set of objects keyed by Ref, so an
// object stays the same member while its ID changes.
type objectSet struct {
	items map[uuid.UUID]domain.Object
	order []uuid.UUID
}

func newObjectSet() objectSet {
	return objectSet{items: make(map[uuid.UUID]domain.Object)}
}

func (s *objectSet) add(obj domain.Object) {
	ref := obj.Ref()
	if _, ok := s.items[ref]; ok {
		return
	}
	s.items[ref] = obj
	s.order = append(s.order, ref)
}

func (s *objectSet) remove(obj domain.Object) {
	ref := obj.Ref()
	if _, ok := s.items[ref]; !ok {
		return
	}
	delete(s.items, ref)
	s.order = slices.DeleteFunc(s.order, func(r uuid.UUID) bool { return r == ref })
}

func (s *objectSet) list() []domain.Object {
	out := make([]domain.Object, 0, len(s.order))
	for _, ref := range s.order {
		out = append(out, s.items[ref])
	}
	return out
}

func (s *objectSet) len() int {
	return len(s.order)
}

func (s *objectSet) clear() {
	clear(s.items)
	s.order = s.order[:0]
}

// changeLog holds the pending changes of one tracked repository.
type changeLog struct {
	mu       sync.Mutex
	toAdd    objectSet
	toUpdate objectSet
	toRemove objectSet
}

func newChangeLog() *changeLog {
	return &changeLog{
		toAdd:    newObjectSet(),
		toUpdate: newObjectSet(),
		toRemove: newObjectSet(),
	}
}

func (l *changeLog) added(obj domain.Object) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.toAdd.add(obj)
}

// removed forgets pending adds and updates of obj. Only objects that were
// persisted before are scheduled for deletion.
func (l *changeLog) removed(obj domain.Object) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.toUpdate.remove(obj)
	l.toAdd.remove(obj)
	if obj.ID() > 0 {
		l.toRemove.add(obj)
	}
}

func (l *changeLog) modified(obj domain.Object) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.toUpdate.add(obj)
}

// snapshot returns the members of the set selected by pick.
func (l *changeLog) snapshot(pick func(*changeLog) *objectSet) []domain.Object {
	l.mu.Lock()
	defer l.mu.Unlock()
	return pick(l).list()
}

// drop removes objs from the set selected by pick. Objects that joined
// the set after the snapshot was taken stay.
func (l *changeLog) drop(pick func(*changeLog) *objectSet, objs []domain.Object) {
	l.mu.Lock()
	defer l.mu.Unlock()
	set := pick(l)
	for _, obj := range objs {
		set.remove(obj)
	}
}

// takeRollback empties the remove and add sets and returns their members.
func (l *changeLog) takeRollback() (removes, adds []domain.Object) {
	l.mu.Lock()
	defer l.mu.Unlock()
	removes, adds = l.toRemove.list(), l.toAdd.list()
	l.toRemove.clear()
	l.toAdd.clear()
	return removes, adds
}

// takeAll empties all three sets and returns the members of the remove and
// add sets.
func (l *changeLog) takeAll() []domain.Object {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := append(l.toRemove.list(), l.toAdd.list()...)
	l.toRemove.clear()
	l.toAdd.clear()
	l.toUpdate.clear()
	return out
}

func (l *changeLog) counts() (add, update, remove int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.toAdd.len(), l.toUpdate.len(), l.toRemove.len()
}

func pickAdd(l *changeLog) *objectSet    { return &l.toAdd }
func pickUpdate(l *changeLog) *objectSet { return &l.toUpdate }
func pickRemove(l *changeLog) *objectSet { return &l.toRemove }
