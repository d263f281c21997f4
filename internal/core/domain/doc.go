// Package domain defines the core types of the repository layer.
//
// This package is part of the hexagonal architecture's innermost layer.
// It defines the fundamental types every other package builds on:
//
//   - Object / Entity: an identity-and-state-bearing domain object
//   - Record / DataObject: the store-facing representation of an object
//   - State: the lifecycle state of an object relative to the store
//   - AutoSet: a declarative marker pairing a setter with a getter
//   - Note / NoteRecord: the note aggregate managed by the CLI
//
// # Identity
//
// An object's ID is the store-facing identity: 0 means never added to a
// repository, a negative value is a virtual id handed out by a repository
// before the object is persisted, and a positive value is assigned by the
// store. Because the ID changes on commit, every object also carries a Ref,
// a slot identity that never changes and is used wherever objects are held
// in sets.
//
// # Import Rules
//
//   - Can Import: Standard library, github.com/google/uuid
//   - Cannot Import: Any internal/ package
package domain
