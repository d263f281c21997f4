package services

import (
	"bytes"
	"context"
	"os"
	"reflect"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/phisch84/domain-repository/internal/core/domain"
	"github.com/phisch84/domain-repository/internal/core/ports/driving"
	"github.com/phisch84/domain-repository/internal/logger"
)

// testFactory creates getter owners by reflection.
type testFactory struct {
	mu    sync.Mutex
	named map[string]reflect.Type
	calls int
	err   error
}

func newTestFactory() *testFactory {
	return &testFactory{named: map[string]reflect.Type{
		domain.NoteSchemaName: reflect.TypeOf(domain.NoteSchema{}),
	}}
}

func (f *testFactory) New(t reflect.Type) (any, error) {
	f.mu.Lock()
	f.calls++
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if t.Kind() == reflect.Pointer {
		return reflect.New(t.Elem()).Interface(), nil
	}
	return reflect.New(t).Interface(), nil
}

func (f *testFactory) NewNamed(name string) (any, error) {
	t, ok := f.named[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return f.New(t)
}

func (f *testFactory) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeDAO stores copies of note records and can be told to fail.
type fakeDAO struct {
	mu      sync.Mutex
	records map[int]domain.NoteRecord
	nextID  int

	failGet    error
	failGetAll error
	failSave   error
	failDelete error
	nilCreate  bool

	gets    int
	saves   int
	deletes int
	// journal records the calls of every fakeDAO sharing it.
	journal *[]string
	name    string
}

func newFakeDAO() *fakeDAO {
	return &fakeDAO{records: make(map[int]domain.NoteRecord), nextID: 1}
}

func (d *fakeDAO) log(call string) {
	if d.journal != nil {
		*d.journal = append(*d.journal, d.name+" "+call)
	}
}

func (d *fakeDAO) CreateDataObject() (*domain.NoteRecord, error) {
	if d.nilCreate {
		return nil, nil
	}
	return &domain.NoteRecord{}, nil
}

func (d *fakeDAO) Get(_ context.Context, id int) (*domain.NoteRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gets++
	if d.failGet != nil {
		return nil, d.failGet
	}
	rec, ok := d.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (d *fakeDAO) GetAll(_ context.Context) ([]*domain.NoteRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failGetAll != nil {
		return nil, d.failGetAll
	}
	ids := make([]int, 0, len(d.records))
	for id := range d.records {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]*domain.NoteRecord, 0, len(ids))
	for _, id := range ids {
		rec := d.records[id]
		out = append(out, &rec)
	}
	return out, nil
}

func (d *fakeDAO) ReloadAll(ctx context.Context) ([]*domain.NoteRecord, error) {
	return d.GetAll(ctx)
}

func (d *fakeDAO) Save(_ context.Context, records ...*domain.NoteRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.saves++
	d.log("save")
	if d.failSave != nil {
		return d.failSave
	}
	for _, rec := range records {
		if rec.ID() <= 0 {
			rec.SetID(d.nextID)
		}
		d.nextID = max(d.nextID, rec.ID()+1)
		d.records[rec.ID()] = *rec
	}
	return nil
}

func (d *fakeDAO) Delete(_ context.Context, records ...*domain.NoteRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deletes++
	d.log("delete")
	if d.failDelete != nil {
		return d.failDelete
	}
	for _, rec := range records {
		delete(d.records, rec.ID())
	}
	return nil
}

// put stores a record directly, bypassing any repository.
func (d *fakeDAO) put(title string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextID
	d.nextID++
	rec := domain.NoteRecord{Title: title, Tags: "seed"}
	rec.SetID(id)
	d.records[id] = rec
	return id
}

// retitle changes a stored record behind the repository's back.
func (d *fakeDAO) retitle(id int, title string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec := d.records[id]
	rec.Title = title
	d.records[id] = rec
}

func (d *fakeDAO) markDeleted(id int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec := d.records[id]
	rec.SetDeleted(true)
	d.records[id] = rec
}

func (d *fakeDAO) drop(id int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.records, id)
}

func (d *fakeDAO) record(id int) (domain.NoteRecord, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.records[id]
	return rec, ok
}

func (d *fakeDAO) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.records)
}

type noteRepo = Repository[*domain.Note, *domain.NoteRecord, domain.Note]

func noteHooks() []RepositoryOption {
	return []RepositoryOption{
		WithFromRecordHook(domain.CopyTagsFromRecord),
		WithToRecordHook(domain.CopyTagsToRecord),
	}
}

func newNoteRepo(t *testing.T, dao *fakeDAO, opts ...RepositoryOption) *noteRepo {
	t.Helper()
	repo, err := NewRepository[*domain.Note, *domain.NoteRecord](
		dao,
		NewConverter(newTestFactory(), nil),
		func() *domain.Note { return &domain.Note{} },
		append(noteHooks(), opts...)...,
	)
	require.NoError(t, err)
	return repo
}

// captureLog redirects the logger for the duration of the test.
func captureLog(t *testing.T) *syncBuffer {
	t.Helper()
	buf := &syncBuffer{}
	logger.SetOutput(buf)
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })
	return buf
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// recordingListener records change notifications.
type recordingListener struct {
	mu       sync.Mutex
	events   []string
	failWith error
	panics   bool
	onReload func()
}

func (l *recordingListener) record(event string, obj domain.Object) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if obj != nil {
		event += " " + obj.Ref().String()
	}
	l.events = append(l.events, event)
	if l.panics {
		panic("listener exploded")
	}
	return l.failWith
}

func (l *recordingListener) OnObjectAdded(_ driving.ObjectSource, obj domain.Object) error {
	return l.record("added", obj)
}

func (l *recordingListener) OnObjectRemoved(_ driving.ObjectSource, obj domain.Object) error {
	return l.record("removed", obj)
}

func (l *recordingListener) OnObjectModified(_ driving.ObjectSource, obj domain.Object) error {
	return l.record("modified", obj)
}

func (l *recordingListener) OnReload(_ driving.ObjectSource) error {
	if l.onReload != nil {
		l.onReload()
	}
	return l.record("reload", nil)
}

func (l *recordingListener) count(prefix string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if len(e) >= len(prefix) && e[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

// mockUoWListener is a testify mock of driving.UnitOfWorkListener.
type mockUoWListener struct {
	mock.Mock
}

func (m *mockUoWListener) AfterPersistNew(objs []domain.Object) error {
	return m.Called(objs).Error(0)
}

func (m *mockUoWListener) AfterPersistExisting(objs []domain.Object) error {
	return m.Called(objs).Error(0)
}

func (m *mockUoWListener) AfterDelete(objs []domain.Object) error {
	return m.Called(objs).Error(0)
}

func (m *mockUoWListener) AfterRollback(objs []domain.Object) error {
	return m.Called(objs).Error(0)
}

func (m *mockUoWListener) AfterReload(objs []domain.Object) error {
	return m.Called(objs).Error(0)
}

// batchOf matches a listener batch of n objects.
func batchOf(n int) any {
	return mock.MatchedBy(func(objs []domain.Object) bool { return len(objs) == n })
}
