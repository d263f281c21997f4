package services

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/phisch84/domain-repository/internal/core/domain"
	"github.com/phisch84/domain-repository/internal/core/ports/driven"
	"github.com/phisch84/domain-repository/internal/logger"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// pairKey identifies a conversion table. Tables are keyed by both the
// source and the destination type so one source type can feed several
// destination types.
type pairKey struct {
	src reflect.Type
	dst reflect.Type
}

// binding pairs one destination setter with the getter feeding it.
type binding struct {
	setter string
	getter string
	// owner is the object the getter is invoked on.
	// nil means the conversion source.
	owner any
	// convertTo is set when the getter result must be converted before
	// it is passed to the setter.
	convertTo reflect.Type
}

type conversionTable struct {
	bindings []binding
}

// Converter copies values from a source to a destination by calling the
// getters and setters paired up by domain.AutoSet markers.
//
// The destination type declares its markers by implementing
// domain.AutoConvertible; additional markers can be registered per type
// pair with Register. The table for a pair is built on first use and
// replayed afterwards.
type Converter struct {
	factory  driven.InstanceFactory
	observer domain.ErrorObserver

	mu         sync.RWMutex
	tables     map[pairKey]*conversionTable
	registered map[pairKey][]domain.AutoSet
}

// NewConverter creates a converter. factory is consulted for getter owners
// other than the conversion source and may be nil if no marker names one.
func NewConverter(factory driven.InstanceFactory, observer domain.ErrorObserver) *Converter {
	return &Converter{
		factory:    factory,
		observer:   observer,
		tables:     make(map[pairKey]*conversionTable),
		registered: make(map[pairKey][]domain.AutoSet),
	}
}

// Register adds markers for conversions from the type of src into the type
// of dst. Any table already built for the pair is dropped.
func (c *Converter) Register(src, dst any, markers ...domain.AutoSet) {
	key := pairKey{src: reflect.TypeOf(src), dst: reflect.TypeOf(dst)}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.registered[key] = append(c.registered[key], markers...)
	delete(c.tables, key)
}

// Forget drops every built table. Registered markers are kept.
func (c *Converter) Forget() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables = make(map[pairKey]*conversionTable)
}

// Convert copies the marked values from src into dst. It is a no-op if
// either argument is nil.
func (c *Converter) Convert(src, dst any) error {
	if domain.IsNil(src) || domain.IsNil(dst) {
		return nil
	}

	table, err := c.table(src, dst)
	if err != nil {
		return err
	}

	for _, b := range table.bindings {
		invoker := b.owner
		if invoker == nil {
			invoker = src
		}

		value, err := c.invokeGetter(invoker, b.getter)
		if err != nil {
			return err
		}
		if b.convertTo != nil {
			value = value.Convert(b.convertTo)
		}
		if err := c.invokeSetter(dst, b.setter, value); err != nil {
			return err
		}
	}
	return nil
}

func (c *Converter) table(src, dst any) (*conversionTable, error) {
	key := pairKey{src: reflect.TypeOf(src), dst: reflect.TypeOf(dst)}

	c.mu.RLock()
	table, ok := c.tables[key]
	c.mu.RUnlock()
	if ok {
		return table, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if table, ok := c.tables[key]; ok {
		return table, nil
	}

	markers := append([]domain.AutoSet(nil), c.registered[key]...)
	if ac, ok := dst.(domain.AutoConvertible); ok {
		markers = append(markers, ac.AutoSetMarkers()...)
	}

	table, err := c.build(key, markers)
	if err != nil {
		return nil, err
	}
	c.tables[key] = table
	logger.Debug("converter: built table %s -> %s with %d bindings", key.src, key.dst, len(table.bindings))
	return table, nil
}

func (c *Converter) build(key pairKey, markers []domain.AutoSet) (*conversionTable, error) {
	table := &conversionTable{}
	seen := make(map[string]bool, len(markers))
	owners := make(map[string]any)

	for _, m := range markers {
		if seen[m.Setter] {
			continue
		}
		seen[m.Setter] = true

		setter, ok := key.dst.MethodByName(m.Setter)
		if !ok {
			return nil, c.buildError(key, fmt.Errorf("%s has no method %s", key.dst, m.Setter))
		}
		argType, err := setterArg(setter)
		if err != nil {
			return nil, c.buildError(key, err)
		}

		owner, err := c.owner(m, owners)
		if err != nil {
			return nil, c.buildError(key, err)
		}
		ownerType := key.src
		if owner != nil {
			ownerType = reflect.TypeOf(owner)
		}

		getterName, getter, err := resolveGetter(ownerType, m)
		if err != nil {
			return nil, c.buildError(key, err)
		}
		resultType, err := getterResult(getter)
		if err != nil {
			return nil, c.buildError(key, err)
		}

		b := binding{setter: m.Setter, getter: getterName, owner: owner}
		switch {
		case resultType.AssignableTo(argType):
		case resultType.ConvertibleTo(argType):
			b.convertTo = argType
		default:
			return nil, c.buildError(key, fmt.Errorf("%s.%s returns %s, %s.%s takes %s",
				ownerType, getterName, resultType, key.dst, m.Setter, argType))
		}
		table.bindings = append(table.bindings, b)
	}
	return table, nil
}

// owner creates the getter owner named by m, once per table. It returns
// nil when the getter belongs to the conversion source.
func (c *Converter) owner(m domain.AutoSet, cache map[string]any) (any, error) {
	var key string
	switch {
	case m.Owner != nil:
		key = "type:" + m.Owner.String()
	case m.OwnerName != "":
		key = "name:" + m.OwnerName
	default:
		return nil, nil
	}
	if o, ok := cache[key]; ok {
		return o, nil
	}
	if c.factory == nil {
		return nil, fmt.Errorf("no instance factory to create owner of %s", m.Setter)
	}

	var (
		o   any
		err error
	)
	if m.Owner != nil {
		o, err = c.factory.New(m.Owner)
	} else {
		o, err = c.factory.NewNamed(m.OwnerName)
	}
	if err != nil {
		return nil, fmt.Errorf("creating owner of %s: %w", m.Setter, err)
	}
	if domain.IsNil(o) {
		return nil, fmt.Errorf("instance factory returned nil owner for %s", m.Setter)
	}
	cache[key] = o
	return o, nil
}

func (c *Converter) buildError(key pairKey, err error) error {
	return reportError(c.observer, &domain.DomainError{
		Op:  fmt.Sprintf("convert %s to %s", key.src, key.dst),
		Err: err,
	})
}

func (c *Converter) invokeGetter(target any, name string) (value reflect.Value, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = c.invocationError(target, name, fmt.Errorf("panic: %v", p))
		}
	}()

	out := reflect.ValueOf(target).MethodByName(name).Call(nil)
	if len(out) == 2 && !out[1].IsNil() {
		return reflect.Value{}, c.invocationError(target, name, out[1].Interface().(error))
	}
	return out[0], nil
}

func (c *Converter) invokeSetter(target any, name string, value reflect.Value) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = c.invocationError(target, name, fmt.Errorf("panic: %v", p))
		}
	}()

	out := reflect.ValueOf(target).MethodByName(name).Call([]reflect.Value{value})
	if len(out) == 1 && !out[0].IsNil() {
		return c.invocationError(target, name, out[0].Interface().(error))
	}
	return nil
}

func (c *Converter) invocationError(target any, method string, cause error) error {
	return reportError(c.observer, &domain.InvocationError{Target: target, Method: method, Err: cause})
}

// resolveGetter finds the getter for m on ownerType. An explicit method
// name wins; otherwise "SetX" resolves to "X", then "GetX".
func resolveGetter(ownerType reflect.Type, m domain.AutoSet) (string, reflect.Method, error) {
	var candidates []string
	switch {
	case m.Method != "":
		candidates = []string{m.Method}
	case strings.HasPrefix(m.Setter, "Set") && len(m.Setter) > len("Set"):
		x := strings.TrimPrefix(m.Setter, "Set")
		candidates = []string{x, "Get" + x}
	default:
		candidates = []string{m.Setter}
	}

	for _, name := range candidates {
		if method, ok := ownerType.MethodByName(name); ok {
			return name, method, nil
		}
	}
	return "", reflect.Method{}, fmt.Errorf("%s has no getter %s", ownerType, strings.Join(candidates, " or "))
}

// setterArg checks the shape func(V) or func(V) error and returns V.
// Method types obtained from a reflect.Type include the receiver.
func setterArg(m reflect.Method) (reflect.Type, error) {
	t := m.Type
	if t.NumIn() != 2 || t.IsVariadic() {
		return nil, fmt.Errorf("setter %s must take exactly one argument", m.Name)
	}
	if t.NumOut() > 1 || (t.NumOut() == 1 && t.Out(0) != errorType) {
		return nil, fmt.Errorf("setter %s may only return an error", m.Name)
	}
	return t.In(1), nil
}

// getterResult checks the shape func() V or func() (V, error) and
// returns V.
func getterResult(m reflect.Method) (reflect.Type, error) {
	t := m.Type
	if t.NumIn() != 1 {
		return nil, fmt.Errorf("getter %s must not take arguments", m.Name)
	}
	switch {
	case t.NumOut() == 1 && t.Out(0) != errorType:
		return t.Out(0), nil
	case t.NumOut() == 2 && t.Out(1) == errorType:
		return t.Out(0), nil
	default:
		return nil, fmt.Errorf("getter %s must return a value and optionally an error", m.Name)
	}
}
