// Package factory provides the instance factory the converter uses to
// create getter owners.
package factory

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/phisch84/domain-repository/internal/core/domain"
	"github.com/phisch84/domain-repository/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.InstanceFactory = (*Registry)(nil)

// Constructor creates a new instance.
type Constructor func() (any, error)

// Registry creates instances by type or by registered name.
type Registry struct {
	mu           sync.RWMutex
	byName       map[string]Constructor
	constructors map[reflect.Type]Constructor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:       make(map[string]Constructor),
		constructors: make(map[reflect.Type]Constructor),
	}
}

// NewDefaultRegistry creates a registry knowing the helper types of the
// domain package.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.RegisterType(domain.NoteSchemaName, domain.NoteSchema{})
	return r
}

// Register adds a named constructor, replacing any earlier one.
func (r *Registry) Register(name string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[name] = ctor
}

// RegisterType registers the type of sample under name. Instances are
// created like New does.
func (r *Registry) RegisterType(name string, sample any) {
	t := reflect.TypeOf(sample)
	r.Register(name, func() (any, error) { return r.New(t) })
}

// RegisterConstructor sets the constructor New uses for the type of
// sample instead of allocating a zero value.
func (r *Registry) RegisterConstructor(sample any, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[reflect.TypeOf(sample)] = ctor
}

// New returns a new instance of t. Struct types yield a pointer to a zero
// value, so methods with pointer receivers are callable.
func (r *Registry) New(t reflect.Type) (any, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: type is nil", domain.ErrInvalidArgument)
	}

	r.mu.RLock()
	ctor, ok := r.constructors[t]
	r.mu.RUnlock()
	if ok {
		return ctor()
	}

	switch t.Kind() {
	case reflect.Pointer:
		return reflect.New(t.Elem()).Interface(), nil
	case reflect.Interface, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return nil, fmt.Errorf("%w: cannot instantiate %s", domain.ErrInvalidArgument, t)
	default:
		return reflect.New(t).Interface(), nil
	}
}

// NewNamed returns a new instance of the type registered under name.
func (r *Registry) NewNamed(name string) (any, error) {
	r.mu.RLock()
	ctor, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no type registered as %q", domain.ErrNotFound, name)
	}
	return ctor()
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
