package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/phisch84/domain-repository/internal/core/domain"
	"github.com/phisch84/domain-repository/internal/core/ports/driven"
)

// Ensure RecordStore implements the interface.
var _ driven.DataAccessObject[*domain.NoteRecord] = (*RecordStore[*domain.NoteRecord])(nil)

// RecordStore is the data access object for one collection of a Store.
type RecordStore[D domain.Record] struct {
	store      *Store
	collection string
	newRecord  func() D
}

// NewRecordStore returns the data access object for collection. newRecord
// returns an empty record.
func NewRecordStore[D domain.Record](store *Store, collection string, newRecord func() D) *RecordStore[D] {
	return &RecordStore[D]{
		store:      store,
		collection: collection,
		newRecord:  newRecord,
	}
}

// CreateDataObject returns a new, empty record.
func (r *RecordStore[D]) CreateDataObject() (D, error) {
	return r.newRecord(), nil
}

// Get retrieves a live record by ID.
func (r *RecordStore[D]) Get(ctx context.Context, id int) (D, error) {
	var zero D
	var payload string
	err := r.store.db.QueryRowContext(ctx,
		"SELECT payload FROM records WHERE collection = ? AND id = ? AND is_deleted = 0",
		r.collection, id,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, domain.ErrNotFound
	}
	if err != nil {
		return zero, domain.NewStoreError("sqlite get", err)
	}
	return r.decode("sqlite get", payload)
}

// GetAll returns every live record ordered by ID.
func (r *RecordStore[D]) GetAll(ctx context.Context) ([]D, error) {
	rows, err := r.store.db.QueryContext(ctx,
		"SELECT payload FROM records WHERE collection = ? AND is_deleted = 0 ORDER BY id",
		r.collection,
	)
	if err != nil {
		return nil, domain.NewStoreError("sqlite get all", err)
	}
	defer rows.Close()

	var out []D
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, domain.NewStoreError("sqlite get all", err)
		}
		rec, err := r.decode("sqlite get all", payload)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("sqlite get all", err)
	}
	return out, nil
}

// ReloadAll returns every live record. The store holds no state beyond
// the database.
func (r *RecordStore[D]) ReloadAll(ctx context.Context) ([]D, error) {
	return r.GetAll(ctx)
}

// Save stores records in one transaction. New records get the next ID of
// the collection, counting deleted rows.
func (r *RecordStore[D]) Save(ctx context.Context, records ...D) error {
	r.store.writeMu.Lock()
	defer r.store.writeMu.Unlock()

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewStoreError("sqlite save", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	// IDs are applied to the records only once the transaction commits.
	assigned := make(map[int]int)
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for i, rec := range records {
		if domain.IsNil(rec) {
			continue
		}
		id := rec.ID()
		if id <= 0 {
			if err := tx.QueryRowContext(ctx,
				"SELECT COALESCE(MAX(id), 0) + 1 FROM records WHERE collection = ?",
				r.collection,
			).Scan(&id); err != nil {
				return domain.NewStoreError("sqlite save", err)
			}
			assigned[i] = id
		}

		payload, err := r.encode(rec, id)
		if err != nil {
			return domain.NewStoreError("sqlite save", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO records (collection, id, payload, is_deleted, created_at, updated_at)
			VALUES (?, ?, ?, 0, ?, ?)
			ON CONFLICT(collection, id) DO UPDATE SET
				payload = excluded.payload,
				is_deleted = 0,
				updated_at = excluded.updated_at
		`, r.collection, id, payload, now, now)
		if err != nil {
			return domain.NewStoreError("sqlite save", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.NewStoreError("sqlite save", err)
	}
	for i, id := range assigned {
		records[i].SetID(id)
	}
	for _, rec := range records {
		if !domain.IsNil(rec) {
			rec.SetDeleted(false)
		}
	}
	return nil
}

// Delete marks records deleted.
func (r *RecordStore[D]) Delete(ctx context.Context, records ...D) error {
	r.store.writeMu.Lock()
	defer r.store.writeMu.Unlock()

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewStoreError("sqlite delete", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, rec := range records {
		if domain.IsNil(rec) {
			continue
		}
		_, err := tx.ExecContext(ctx,
			"UPDATE records SET is_deleted = 1, updated_at = ? WHERE collection = ? AND id = ?",
			now, r.collection, rec.ID(),
		)
		if err != nil {
			return domain.NewStoreError("sqlite delete", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.NewStoreError("sqlite delete", err)
	}
	for _, rec := range records {
		if !domain.IsNil(rec) {
			rec.SetDeleted(true)
		}
	}
	return nil
}

// encode renders rec as stored under id. The record itself is not
// touched, so a failed transaction leaves it unchanged.
func (r *RecordStore[D]) encode(rec D, id int) (string, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", err
	}
	fields["id"] = id
	delete(fields, "deleted")

	data, err = json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (r *RecordStore[D]) decode(op string, payload string) (D, error) {
	rec := r.newRecord()
	if err := json.Unmarshal([]byte(payload), rec); err != nil {
		var zero D
		return zero, domain.NewStoreError(op, fmt.Errorf("decoding %s record: %w", r.collection, err))
	}
	return rec, nil
}
