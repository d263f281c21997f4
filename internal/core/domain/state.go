package domain

// State is the lifecycle state of a domain object relative to the store.
// The zero value is StateDetached so a freshly constructed object is
// outside of every repository.
type State int

const (
	// StateDetached means the object is not regarded by any repository.
	StateDetached State = iota

	// StateUnchanged means the object matches its persisted record.
	StateUnchanged

	// StateAdded means the object was added but not persisted yet.
	StateAdded

	// StateModified means the object was persisted and changed since.
	StateModified

	// StateDeleted means the object was persisted and is pending deletion.
	StateDeleted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDetached:
		return "Detached"
	case StateUnchanged:
		return "Unchanged"
	case StateAdded:
		return "Added"
	case StateModified:
		return "Modified"
	case StateDeleted:
		return "Deleted"
	default:
		return "Unknown"
	}
}

// IsPending returns true if the state carries a change not yet committed.
func (s State) IsPending() bool {
	return s == StateAdded || s == StateModified || s == StateDeleted
}
