package driven

import "reflect"

// InstanceFactory creates objects on behalf of the converter. It is used to
// obtain owners of getters that are bound to something other than the
// conversion source.
type InstanceFactory interface {
	// New returns a new instance of t. For a struct type the result is a
	// pointer to a zero value.
	New(t reflect.Type) (any, error)

	// NewNamed returns a new instance of the type registered under name.
	// Returns domain.ErrNotFound if nothing is registered under name.
	NewNamed(name string) (any, error)
}
