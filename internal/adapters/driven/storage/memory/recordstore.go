package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/phisch84/domain-repository/internal/core/domain"
	"github.com/phisch84/domain-repository/internal/core/ports/driven"
)

// Ensure RecordStore implements the interface.
var _ driven.DataAccessObject[*domain.NoteRecord] = (*RecordStore[*domain.NoteRecord])(nil)

// RecordStore is an in-memory implementation of driven.DataAccessObject.
// Records are stored encoded, so callers never share state with the store.
type RecordStore[D domain.Record] struct {
	newRecord func() D

	mu      sync.RWMutex
	records map[int][]byte
	nextID  int
}

// NewRecordStore creates a new in-memory record store. newRecord returns
// an empty record.
func NewRecordStore[D domain.Record](newRecord func() D) *RecordStore[D] {
	return &RecordStore[D]{
		newRecord: newRecord,
		records:   make(map[int][]byte),
		nextID:    1,
	}
}

// CreateDataObject returns a new, empty record.
func (s *RecordStore[D]) CreateDataObject() (D, error) {
	return s.newRecord(), nil
}

// Get retrieves a record by ID.
func (s *RecordStore[D]) Get(_ context.Context, id int) (D, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.records[id]
	if !ok {
		var zero D
		return zero, domain.ErrNotFound
	}
	return s.decode("get", data)
}

// GetAll returns every record ordered by ID.
func (s *RecordStore[D]) GetAll(_ context.Context) ([]D, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]D, 0, len(ids))
	for _, id := range ids {
		rec, err := s.decode("get all", s.records[id])
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// ReloadAll returns every record. The memory store holds no state apart
// from the records themselves.
func (s *RecordStore[D]) ReloadAll(ctx context.Context) ([]D, error) {
	return s.GetAll(ctx)
}

// Save stores records, assigning IDs to new ones. Every record is encoded
// before any is stored, so a failing record leaves the store untouched.
func (s *RecordStore[D]) Save(_ context.Context, records ...D) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.nextID
	for _, rec := range records {
		if !domain.IsNil(rec) {
			next = max(next, rec.ID()+1)
		}
	}

	staged := make(map[int][]byte, len(records))
	for _, rec := range records {
		if domain.IsNil(rec) {
			continue
		}
		id := rec.ID()
		if id <= 0 {
			id = next
			next++
		}
		rec.SetID(id)
		rec.SetDeleted(false)

		data, err := json.Marshal(rec)
		if err != nil {
			return domain.NewStoreError("save", err)
		}
		staged[id] = data
	}

	for id, data := range staged {
		s.records[id] = data
	}
	s.nextID = next
	return nil
}

// Delete removes records.
func (s *RecordStore[D]) Delete(_ context.Context, records ...D) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		if domain.IsNil(rec) {
			continue
		}
		delete(s.records, rec.ID())
	}
	return nil
}

// Len returns the number of stored records.
func (s *RecordStore[D]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *RecordStore[D]) decode(op string, data []byte) (D, error) {
	rec := s.newRecord()
	if err := json.Unmarshal(data, rec); err != nil {
		var zero D
		return zero, domain.NewStoreError(op, err)
	}
	return rec, nil
}
