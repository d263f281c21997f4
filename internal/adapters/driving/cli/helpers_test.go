package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/phisch84/domain-repository/internal/adapters/driven/factory"
	"github.com/phisch84/domain-repository/internal/adapters/driven/storage/memory"
	"github.com/phisch84/domain-repository/internal/core/domain"
	"github.com/phisch84/domain-repository/internal/core/ports/driven"
	"github.com/phisch84/domain-repository/internal/core/services"
	"github.com/phisch84/domain-repository/internal/logger"
)

// fakeSettings implements driving.SettingsService for testing.
type fakeSettings struct {
	current domain.Settings
	saved   []domain.Settings
}

func (f *fakeSettings) Get() domain.Settings { return f.current }

func (f *fakeSettings) Save(settings domain.Settings) error {
	f.saved = append(f.saved, settings)
	f.current = settings
	return nil
}

func (f *fakeSettings) GetDefaults() domain.Settings {
	return domain.Settings{Backend: domain.BackendSQLite, DataDir: "data"}
}

// failingSaves wraps a record store and fails every save.
type failingSaves struct {
	*memory.RecordStore[*domain.NoteRecord]
	err error
}

func (f *failingSaves) Save(context.Context, ...*domain.NoteRecord) error {
	return f.err
}

func newRecord() *domain.NoteRecord { return &domain.NoteRecord{} }

func newServices(t *testing.T, dao driven.DataAccessObject[*domain.NoteRecord]) *Services {
	t.Helper()
	repo, err := services.NewRepository[*domain.Note, *domain.NoteRecord](
		dao,
		services.NewConverter(factory.NewDefaultRegistry(), nil),
		func() *domain.Note { return &domain.Note{} },
		services.WithName("notes"),
		services.WithFromRecordHook(domain.CopyTagsFromRecord),
		services.WithToRecordHook(domain.CopyTagsToRecord),
	)
	require.NoError(t, err)

	return &Services{
		Settings:   &fakeSettings{current: domain.Settings{Backend: domain.BackendMemory}},
		Notes:      repo,
		UnitOfWork: services.NewUnitOfWork(repo),
	}
}

// setupNotesTest injects services over an in-memory store.
func setupNotesTest(t *testing.T) (*Services, *memory.RecordStore[*domain.NoteRecord]) {
	t.Helper()
	store := memory.NewRecordStore(newRecord)
	s := newServices(t, store)
	inject(t, s)
	return s, store
}

func inject(t *testing.T, s *Services) {
	t.Helper()
	oldApp, oldConnector := app, connector
	app, connector = s, nil
	resetFlags()
	t.Cleanup(func() {
		app, connector = oldApp, oldConnector
		resetFlags()
		logger.SetVerbose(false)
	})
}

// resetFlags clears flag variables, which cobra keeps between executions.
func resetFlags() {
	noteBody, noteTags, noteTitle, listTag = "", nil, "", ""
	verbose, configDir = false, ""
}

// seed stores notes directly, bypassing the repository.
func seed(t *testing.T, store *memory.RecordStore[*domain.NoteRecord], titles ...string) {
	t.Helper()
	for _, title := range titles {
		require.NoError(t, store.Save(context.Background(), &domain.NoteRecord{Title: title, Tags: "seed"}))
	}
}

func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}
