package domain

import "reflect"

// AutoSet marks a setter for automatic conversion. The converter calls the
// getter resolved from the marker and passes its result to the setter.
//
// Owner resolution: Owner > OwnerName > the conversion source itself.
// Getter resolution: Method > inferred from the setter name ("SetTitle"
// resolves to "Title", then "GetTitle"; names without the "Set" prefix
// resolve to themselves).
type AutoSet struct {
	// Setter is the name of the marked method on the destination.
	Setter string

	// Owner is the type whose instance provides the getter.
	Owner reflect.Type

	// OwnerName is the registered name of the type providing the getter.
	// Ignored when Owner is set.
	OwnerName string

	// Method is the explicit getter name.
	Method string
}

// AutoConvertible is implemented by destination types that declare which
// of their setters take part in automatic conversion.
type AutoConvertible interface {
	AutoSetMarkers() []AutoSet
}

// Mark returns a marker for setter with every other field left to
// inference.
func Mark(setter string) AutoSet {
	return AutoSet{Setter: setter}
}

// From returns a copy of the marker using method as the getter.
func (a AutoSet) From(method string) AutoSet {
	a.Method = method
	return a
}

// On returns a copy of the marker whose getter is owned by an instance of
// the type of sample.
func (a AutoSet) On(sample any) AutoSet {
	a.Owner = reflect.TypeOf(sample)
	return a
}

// OnNamed returns a copy of the marker whose getter is owned by an
// instance of the type registered under name.
func (a AutoSet) OnNamed(name string) AutoSet {
	a.OwnerName = name
	return a
}
