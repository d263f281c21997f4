package domain

import (
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// Object is a domain object managed by a repository.
type Object interface {
	// ID returns the store-facing identity (see package doc).
	ID() int

	// SetID sets the store-facing identity. Only repositories and units of
	// work are supposed to call it.
	SetID(id int)

	// State returns the lifecycle state.
	State() State

	// SetState sets the lifecycle state. Only repositories and units of
	// work are supposed to call it.
	SetState(state State)

	// Ref returns the slot identity. It never changes once assigned.
	Ref() uuid.UUID
}

// ObjectPointer is an Object implemented by a pointer to E. Repositories
// track objects through their element type.
type ObjectPointer[E any] interface {
	*E
	Object
}

// Entity is the embeddable base of every domain object.
// The zero value is ready to use: id 0, state Detached.
type Entity struct {
	mu    sync.RWMutex
	id    int
	state State
	ref   uuid.UUID
}

// ID returns the store-facing identity.
func (e *Entity) ID() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.id
}

// SetID sets the store-facing identity.
func (e *Entity) SetID(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.id = id
}

// State returns the lifecycle state.
func (e *Entity) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// SetState sets the lifecycle state.
func (e *Entity) SetState(state State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = state
}

// Ref returns the slot identity, assigning it on first use.
func (e *Entity) Ref() uuid.UUID {
	e.mu.RLock()
	ref := e.ref
	e.mu.RUnlock()
	if ref != uuid.Nil {
		return ref
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ref == uuid.Nil {
		e.ref = uuid.New()
	}
	return e.ref
}

// SameIdentity reports whether two objects are equal in the domain sense:
// same concrete type and same id.
func SameIdentity(a, b Object) bool {
	if IsNil(a) || IsNil(b) {
		return IsNil(a) && IsNil(b)
	}
	return reflect.TypeOf(a) == reflect.TypeOf(b) && a.ID() == b.ID()
}

// IsNil reports whether v is nil or an interface holding a nil pointer.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
