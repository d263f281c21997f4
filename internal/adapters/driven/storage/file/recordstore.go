package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/phisch84/domain-repository/internal/core/domain"
	"github.com/phisch84/domain-repository/internal/core/ports/driven"
)

// Ensure RecordStore implements the interface.
var _ driven.DataAccessObject[*domain.NoteRecord] = (*RecordStore[*domain.NoteRecord])(nil)

const (
	recordExt    = ".yaml"
	sequenceFile = ".sequence"
)

// RecordStore keeps one YAML file per record in a directory.
type RecordStore[D domain.Record] struct {
	dir       string
	newRecord func() D

	mu sync.Mutex
}

// NewRecordStore creates a record store in dir, creating the directory if
// needed. newRecord returns an empty record.
func NewRecordStore[D domain.Record](dir string, newRecord func() D) (*RecordStore[D], error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating record directory: %w", err)
	}
	return &RecordStore[D]{dir: dir, newRecord: newRecord}, nil
}

// Dir returns the collection directory.
func (s *RecordStore[D]) Dir() string {
	return s.dir
}

// CreateDataObject returns a new, empty record.
func (s *RecordStore[D]) CreateDataObject() (D, error) {
	return s.newRecord(), nil
}

// Get reads the record with the given ID.
func (s *RecordStore[D]) Get(_ context.Context, id int) (D, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(id)
}

// GetAll reads every record ordered by ID.
func (s *RecordStore[D]) GetAll(ctx context.Context) ([]D, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.ids()
	if err != nil {
		return nil, err
	}

	out := make([]D, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, domain.NewStoreError("file get all", err)
		}
		rec, err := s.read(id)
		if errors.Is(err, domain.ErrNotFound) {
			// Removed between listing and reading.
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// ReloadAll reads every record from disk.
func (s *RecordStore[D]) ReloadAll(ctx context.Context) ([]D, error) {
	return s.GetAll(ctx)
}

// Save writes records, assigning IDs to new ones. Every record is encoded
// before the first file is written; if a write fails, the files this call
// created are removed again.
func (s *RecordStore[D]) Save(ctx context.Context, records ...D) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return domain.NewStoreError("file save", err)
	}

	type staged struct {
		id      int
		data    []byte
		created bool
	}

	highest := 0
	for _, rec := range records {
		if !domain.IsNil(rec) {
			highest = max(highest, rec.ID())
		}
	}

	last := -1 // read on the first new record
	batch := make([]staged, 0, len(records))
	for _, rec := range records {
		if domain.IsNil(rec) {
			continue
		}
		id, created := rec.ID(), false
		if id <= 0 {
			if last < 0 {
				stored, err := s.lastID()
				if err != nil {
					return domain.NewStoreError("file save", err)
				}
				last = max(stored, highest)
			}
			last++
			id, created = last, true
		}
		rec.SetID(id)
		rec.SetDeleted(false)

		data, err := yaml.Marshal(rec)
		if err != nil {
			return domain.NewStoreError("file save", err)
		}
		batch = append(batch, staged{id: id, data: data, created: created})
	}

	if err := ctx.Err(); err != nil {
		return domain.NewStoreError("file save", err)
	}
	if last > 0 {
		if err := writeAtomic(filepath.Join(s.dir, sequenceFile), []byte(strconv.Itoa(last))); err != nil {
			return domain.NewStoreError("file save", err)
		}
	}
	for i, st := range batch {
		if err := writeAtomic(s.path(st.id), st.data); err != nil {
			for _, done := range batch[:i] {
				if done.created {
					os.Remove(s.path(done.id)) //nolint:errcheck // best effort
				}
			}
			return domain.NewStoreError("file save", err)
		}
	}
	return nil
}

// Delete removes the files of records. Missing files are ignored.
func (s *RecordStore[D]) Delete(_ context.Context, records ...D) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		if domain.IsNil(rec) {
			continue
		}
		if err := os.Remove(s.path(rec.ID())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return domain.NewStoreError("file delete", err)
		}
		rec.SetDeleted(true)
	}
	return nil
}

func (s *RecordStore[D]) path(id int) string {
	return filepath.Join(s.dir, strconv.Itoa(id)+recordExt)
}

func (s *RecordStore[D]) read(id int) (D, error) {
	var zero D
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return zero, domain.ErrNotFound
	}
	if err != nil {
		return zero, domain.NewStoreError("file read", err)
	}

	rec := s.newRecord()
	if err := yaml.Unmarshal(data, rec); err != nil {
		return zero, domain.NewStoreError("file read", fmt.Errorf("decoding %s: %w", s.path(id), err))
	}
	// The file name is authoritative.
	rec.SetID(id)
	return rec, nil
}

// ids lists the IDs of the record files in ascending order.
func (s *RecordStore[D]) ids() ([]int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, domain.NewStoreError("file list", err)
	}

	var ids []int
	for _, entry := range entries {
		if id, ok := recordID(entry.Name()); ok && !entry.IsDir() {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

// lastID returns the highest ID handed out so far: the sequence file or
// the highest record file, whichever is larger.
func (s *RecordStore[D]) lastID() (int, error) {
	last := 0
	data, err := os.ReadFile(filepath.Join(s.dir, sequenceFile))
	switch {
	case err == nil:
		last, err = strconv.Atoi(strings.TrimSpace(string(data)))
		if err != nil {
			return 0, fmt.Errorf("parsing sequence file: %w", err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return 0, err
	}

	ids, err := s.ids()
	if err != nil {
		return 0, err
	}
	if len(ids) > 0 {
		last = max(last, ids[len(ids)-1])
	}
	return last, nil
}

// recordID parses a record file name. Hidden and temporary files are not
// records.
func recordID(name string) (int, bool) {
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, recordExt) {
		return 0, false
	}
	id, err := strconv.Atoi(strings.TrimSuffix(name, recordExt))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// writeAtomic replaces path with data through a hidden temporary file.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // already renamed on success

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
