package driven

import (
	"context"

	"github.com/phisch84/domain-repository/internal/core/domain"
)

// DataAccessObject persists records of type D.
//
// Failures of the underlying store are returned as *domain.StoreError so
// callers can tell them from domain-logic failures.
type DataAccessObject[D domain.Record] interface {
	// CreateDataObject returns a new, empty record.
	CreateDataObject() (D, error)

	// Get retrieves a record by ID.
	// Returns domain.ErrNotFound if no live record has that ID.
	Get(ctx context.Context, id int) (D, error)

	// GetAll returns every live record.
	GetAll(ctx context.Context) ([]D, error)

	// ReloadAll drops any state held by the DAO and returns every live
	// record as found in the backing store.
	ReloadAll(ctx context.Context) ([]D, error)

	// Save stores records. Records with an ID <= 0 are assigned a fresh
	// positive ID in place.
	Save(ctx context.Context, records ...D) error

	// Delete removes records.
	Delete(ctx context.Context, records ...D) error
}
