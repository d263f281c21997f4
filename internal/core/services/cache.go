package services

import (
	"weak"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/phisch84/domain-repository/internal/core/domain"
)

// identityCache maps IDs to objects for one repository.
//
// Unchanged objects live in a bounded LRU. One pushed out of the LRU is
// only tracked weakly: while a caller still holds it, the same instance is
// found again by ID; once it has been collected, its ID is a cache miss
// and the object is reloaded from the store. Objects with pending changes
// or virtual IDs must never be lost, so an evicted one is moved to the held
// map instead. With capacity 0 every object is held.
//
// identityCache is not safe for concurrent use; the owning repository
// serialises access.
type identityCache[T domain.ObjectPointer[E], E any] struct {
	recent  *lru.Cache[int, T]
	held    map[int]T
	evicted map[int]weak.Pointer[E]

	// dropping suppresses the spill into held while entries are removed
	// on purpose, since the LRU reports explicit removals as evictions too.
	dropping bool
}

func newIdentityCache[T domain.ObjectPointer[E], E any](capacity int) (*identityCache[T, E], error) {
	c := &identityCache[T, E]{
		held:    make(map[int]T),
		evicted: make(map[int]weak.Pointer[E]),
	}
	if capacity <= 0 {
		return c, nil
	}

	recent, err := lru.NewWithEvict[int, T](capacity, c.onEvict)
	if err != nil {
		return nil, err
	}
	c.recent = recent
	return c, nil
}

func (c *identityCache[T, E]) onEvict(id int, obj T) {
	if c.dropping {
		return
	}
	if id < 0 || obj.State() != domain.StateUnchanged {
		c.held[id] = obj
		return
	}
	c.evicted[id] = weak.Make((*E)(obj))
}

func (c *identityCache[T, E]) get(id int) (T, bool) {
	if obj, ok := c.held[id]; ok {
		if c.recent != nil && id > 0 && obj.State() == domain.StateUnchanged {
			delete(c.held, id)
			c.recent.Add(id, obj)
		}
		return obj, true
	}
	if c.recent == nil {
		var zero T
		return zero, false
	}
	if obj, ok := c.recent.Get(id); ok {
		return obj, true
	}
	return c.revive(id)
}

// revive moves an evicted object that is still alive back into the LRU.
func (c *identityCache[T, E]) revive(id int) (T, bool) {
	var zero T
	ptr, ok := c.evicted[id]
	if !ok {
		return zero, false
	}
	delete(c.evicted, id)
	p := ptr.Value()
	if p == nil {
		return zero, false
	}
	obj := T(p)
	c.recent.Add(id, obj)
	return obj, true
}

func (c *identityCache[T, E]) contains(id int) bool {
	if _, ok := c.held[id]; ok {
		return true
	}
	if c.recent == nil {
		return false
	}
	if c.recent.Contains(id) {
		return true
	}
	ptr, ok := c.evicted[id]
	if ok && ptr.Value() == nil {
		delete(c.evicted, id)
		return false
	}
	return ok
}

func (c *identityCache[T, E]) put(id int, obj T) {
	if c.recent == nil {
		c.held[id] = obj
		return
	}
	delete(c.held, id)
	delete(c.evicted, id)
	c.recent.Add(id, obj)
}

func (c *identityCache[T, E]) remove(id int) {
	delete(c.held, id)
	delete(c.evicted, id)
	if c.recent != nil {
		c.dropping = true
		c.recent.Remove(id)
		c.dropping = false
	}
}

func (c *identityCache[T, E]) purge() {
	c.held = make(map[int]T)
	c.evicted = make(map[int]weak.Pointer[E])
	if c.recent != nil {
		c.dropping = true
		c.recent.Purge()
		c.dropping = false
	}
}

// len returns the number of objects the cache keeps alive.
func (c *identityCache[T, E]) len() int {
	n := len(c.held)
	if c.recent != nil {
		n += c.recent.Len()
	}
	return n
}

// entries returns every cached object, evicted ones that are still alive
// included, without touching LRU recency. Collected entries are dropped.
func (c *identityCache[T, E]) entries() map[int]T {
	out := make(map[int]T, c.len()+len(c.evicted))
	if c.recent != nil {
		for _, id := range c.recent.Keys() {
			if obj, ok := c.recent.Peek(id); ok {
				out[id] = obj
			}
		}
	}
	for id, obj := range c.held {
		out[id] = obj
	}
	for id, ptr := range c.evicted {
		if p := ptr.Value(); p != nil {
			out[id] = T(p)
		} else {
			delete(c.evicted, id)
		}
	}
	return out
}

// minID returns the smallest cached ID, or 0 if no cached ID is negative.
func (c *identityCache[T, E]) minID() int {
	lowest := 0
	for id := range c.entries() {
		lowest = min(lowest, id)
	}
	return lowest
}
