// Package services implements the driving port interfaces.
//
// It holds the three core pieces of the repository layer: the Converter
// that copies values between objects and records from declarative markers,
// the generic Repository that owns the identity cache and state machine of
// one object type, and the UnitOfWork that batches repository changes and
// commits or rolls them back.
//
// Services talk to storage only through driven ports.
package services
