package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phisch84/domain-repository/internal/adapters/driven/storage/memory"
	"github.com/phisch84/domain-repository/internal/core/domain"
)

func TestNotesCmd_Use(t *testing.T) {
	assert.Equal(t, "notes", notesCmd.Use)
	for _, name := range []string{"add", "list", "get", "edit", "rm", "reload", "watch"} {
		cmd, _, err := notesCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestNotesAdd(t *testing.T) {
	s, store := setupNotesTest(t)

	out, err := execute("notes", "add", "groceries", "--body", "milk", "-t", "shop", "-t", "home")

	require.NoError(t, err)
	assert.Contains(t, out, "Added note 1: groceries")
	assert.Equal(t, 1, store.Len())

	n, err := s.Notes.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "milk", n.Body())
	assert.Equal(t, []string{"home", "shop"}, n.Tags())
	assert.Equal(t, domain.StateUnchanged, n.State())
}

func TestNotesAdd_RequiresTitle(t *testing.T) {
	setupNotesTest(t)

	_, err := execute("notes", "add")

	assert.Error(t, err)
}

func TestNotesAdd_RollsBackFailedCommit(t *testing.T) {
	s := newServices(t, &failingSaves{
		RecordStore: memory.NewRecordStore(newRecord),
		err:         domain.NewStoreError("save", errors.New("disk full")),
	})
	inject(t, s)

	_, err := execute("notes", "add", "doomed")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save note")
	assert.True(t, domain.IsStoreError(err))
	all, err := s.Notes.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all, "the failed add is rolled back")
}

func TestNotesList(t *testing.T) {
	_, store := setupNotesTest(t)
	seed(t, store, "first", "second")

	out, err := execute("notes", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "first  [seed]")
	assert.Contains(t, out, "second")
	assert.Contains(t, out, "Total: 2 notes")
}

func TestNotesList_Empty(t *testing.T) {
	setupNotesTest(t)

	out, err := execute("notes", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "No notes found.")
}

func TestNotesList_FilterByTag(t *testing.T) {
	_, store := setupNotesTest(t)
	seed(t, store, "seeded")
	_, err := execute("notes", "add", "tagged", "-t", "work")
	require.NoError(t, err)
	resetFlags()

	out, err := execute("notes", "list", "--tag", "work")

	require.NoError(t, err)
	assert.Contains(t, out, "tagged")
	assert.NotContains(t, out, "seeded")
	assert.Contains(t, out, "Total: 1 notes")
}

func TestNotesGet(t *testing.T) {
	_, store := setupNotesTest(t)
	require.NoError(t, store.Save(context.Background(), &domain.NoteRecord{Title: "plan", Body: "step one", Tags: "a,b"}))

	out, err := execute("notes", "get", "1")

	require.NoError(t, err)
	assert.Contains(t, out, "Note: 1")
	assert.Contains(t, out, "Title:    plan")
	assert.Contains(t, out, "Tags:     a, b")
	assert.Contains(t, out, "step one")
}

func TestNotesGet_Errors(t *testing.T) {
	setupNotesTest(t)

	_, err := execute("notes", "get", "abc")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = execute("notes", "get", "-2")
	assert.Error(t, err)

	_, err = execute("notes", "get", "99")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNotesEdit(t *testing.T) {
	s, store := setupNotesTest(t)
	seed(t, store, "draft")

	out, err := execute("notes", "edit", "1", "--title", "final", "-t", "done")

	require.NoError(t, err)
	assert.Contains(t, out, "Updated note 1")
	rec, err := store.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "final", rec.Title)
	assert.Equal(t, "done", rec.Tags)

	n, err := s.Notes.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StateUnchanged, n.State())
}

func TestNotesEdit_NothingToChange(t *testing.T) {
	setupNotesTest(t)

	_, err := execute("notes", "edit", "1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to change")
}

func TestNotesRemove(t *testing.T) {
	_, store := setupNotesTest(t)
	seed(t, store, "a", "b", "c")

	out, err := execute("notes", "rm", "1", "3")

	require.NoError(t, err)
	assert.Contains(t, out, "Removed note 1: a")
	assert.Contains(t, out, "Removed note 3: c")
	assert.Equal(t, 1, store.Len())
}

func TestNotesRemove_AllOrNothing(t *testing.T) {
	_, store := setupNotesTest(t)
	seed(t, store, "a")

	_, err := execute("notes", "rm", "1", "99")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 1, store.Len())
}

func TestNotesReload(t *testing.T) {
	_, store := setupNotesTest(t)
	seed(t, store, "a")
	_, err := execute("notes", "list")
	require.NoError(t, err)
	seed(t, store, "b")

	out, err := execute("notes", "reload")

	require.NoError(t, err)
	assert.Contains(t, out, "Reloaded 2 notes")
}

func TestNotesWatch_Unsupported(t *testing.T) {
	setupNotesTest(t)

	_, err := execute("notes", "watch")

	assert.ErrorIs(t, err, domain.ErrNotImplemented)
	assert.Contains(t, err.Error(), "memory backend")
}

func TestNotesWatch_ReloadsOnChange(t *testing.T) {
	s, store := setupNotesTest(t)
	s.Watch = func(_ context.Context, onChange func()) error {
		seed(t, store, "from elsewhere")
		onChange()
		return context.Canceled
	}

	out, err := execute("notes", "watch")

	require.NoError(t, err)
	assert.Contains(t, out, "Watching for changes")
	assert.Contains(t, out, "Store changed, reloaded 1 notes")
}

func TestNotesWatch_Failure(t *testing.T) {
	s, _ := setupNotesTest(t)
	s.Watch = func(context.Context, func()) error { return errors.New("too many open files") }

	_, err := execute("notes", "watch")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "watch failed")
}
