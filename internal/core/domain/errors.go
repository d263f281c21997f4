package domain

import (
	"errors"
	"fmt"
)

// Precondition and lookup errors. They are returned as-is (possibly with
// added context via %w) and are never wrapped into a DomainError.
var (
	// ErrNotFound indicates a requested object or record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument indicates a required argument was absent.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrIllegalState indicates an object is in the wrong state for the
	// requested transition.
	ErrIllegalState = errors.New("illegal state")

	// ErrNotImplemented indicates functionality is not available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedBackend indicates an unknown storage backend name.
	ErrUnsupportedBackend = errors.New("unsupported storage backend")
)

// StoreError is a failure of the storage layer. Repositories and units of
// work pass it through unchanged so callers can tell storage problems from
// domain-logic problems.
type StoreError struct {
	Op  string
	Err error
}

// NewStoreError wraps err as a store failure of op. It returns nil for a
// nil err and err itself if it already is a store failure.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// DomainError is the generic failure of the domain layer. Any unexpected
// error crossing a repository or unit of work boundary is wrapped in it.
type DomainError struct {
	Op  string
	Err error
}

func (e *DomainError) Error() string {
	if e.Err == nil {
		return "domain: " + e.Op
	}
	return fmt.Sprintf("domain: %s: %v", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// InvocationError is a failure while invoking a getter or setter during
// conversion. Target is the object the method was invoked on.
type InvocationError struct {
	Target any
	Method string
	Err    error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("domain: invoking %T.%s: %v", e.Target, e.Method, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// DataObjectNilError indicates a data access object produced no record
// where one was required.
type DataObjectNilError struct {
	DAO string
}

func (e *DataObjectNilError) Error() string {
	return fmt.Sprintf("domain: data access object %s returned no record", e.DAO)
}

// IsStoreError reports whether err is or wraps a StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// IsPrecondition reports whether err is a precondition violation.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrIllegalState)
}

// IsDomainFamily reports whether err already belongs to the domain error
// family and must not be wrapped again.
func IsDomainFamily(err error) bool {
	var de *DomainError
	var ie *InvocationError
	var ne *DataObjectNilError
	return errors.As(err, &de) || errors.As(err, &ie) || errors.As(err, &ne)
}

// ErrorObserver is notified of every domain-family error constructed by
// the repository layer.
type ErrorObserver interface {
	OnDomainError(err error)
}

// ErrorObserverFunc adapts a function to ErrorObserver.
type ErrorObserverFunc func(err error)

// OnDomainError calls f(err).
func (f ErrorObserverFunc) OnDomainError(err error) { f(err) }
