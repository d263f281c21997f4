package main

import (
	"context"
	"fmt"
	"path/filepath"

	configfile "github.com/phisch84/domain-repository/internal/adapters/driven/config/file"
	"github.com/phisch84/domain-repository/internal/adapters/driven/factory"
	"github.com/phisch84/domain-repository/internal/adapters/driven/storage/file"
	"github.com/phisch84/domain-repository/internal/adapters/driven/storage/memory"
	"github.com/phisch84/domain-repository/internal/adapters/driven/storage/sqlite"
	"github.com/phisch84/domain-repository/internal/adapters/driving/cli"
	"github.com/phisch84/domain-repository/internal/core/domain"
	"github.com/phisch84/domain-repository/internal/core/ports/driven"
	"github.com/phisch84/domain-repository/internal/core/services"
	"github.com/phisch84/domain-repository/internal/logger"
)

// notesCollection names the note records in the SQLite and file stores.
const notesCollection = "notes"

type backend struct {
	notes driven.DataAccessObject[*domain.NoteRecord]
	watch func(ctx context.Context, onChange func()) error
	close func() error
}

func newNoteRecord() *domain.NoteRecord { return &domain.NoteRecord{} }

// connect wires the services for the CLI from the config in configDir.
func connect(configDir string) (*cli.Services, error) {
	configStore, err := configfile.NewConfigStore(configDir)
	if err != nil {
		return nil, err
	}
	settingsService := services.NewSettingsService(configStore)
	settings := settingsService.Get()

	b, err := openBackend(settings)
	if err != nil {
		return nil, err
	}

	observer := domain.ErrorObserverFunc(func(err error) {
		logger.Debug("domain error: %v", err)
	})
	repo, err := services.NewRepository[*domain.Note, *domain.NoteRecord](
		b.notes,
		services.NewConverter(factory.NewDefaultRegistry(), observer),
		func() *domain.Note { return &domain.Note{} },
		services.WithName(notesCollection),
		services.WithCacheCapacity(settings.CacheCapacity),
		services.WithErrorObserver(observer),
		services.WithFromRecordHook(domain.CopyTagsFromRecord),
		services.WithToRecordHook(domain.CopyTagsToRecord),
	)
	if err != nil {
		b.close()
		return nil, err
	}

	uow := services.NewUnitOfWork(repo)
	uow.SetErrorObserver(observer)
	logger.Debug("using %s backend", settings.Backend)

	return &cli.Services{
		Settings:   settingsService,
		Notes:      repo,
		UnitOfWork: uow,
		Watch:      b.watch,
		Close: func() error {
			if err := uow.Close(); err != nil {
				logger.Warn("closing unit of work: %v", err)
			}
			return b.close()
		},
	}, nil
}

func openBackend(settings domain.Settings) (*backend, error) {
	switch settings.Backend {
	case domain.BackendMemory:
		return &backend{
			notes: memory.NewRecordStore(newNoteRecord),
			close: func() error { return nil },
		}, nil

	case domain.BackendSQLite:
		store, err := sqlite.NewStore(settings.DataDir)
		if err != nil {
			return nil, err
		}
		return &backend{
			notes: sqlite.NewRecordStore(store, notesCollection, newNoteRecord),
			close: store.Close,
		}, nil

	case domain.BackendFile:
		store, err := file.NewRecordStore(filepath.Join(settings.DataDir, notesCollection), newNoteRecord)
		if err != nil {
			return nil, err
		}
		return &backend{
			notes: store,
			watch: func(ctx context.Context, onChange func()) error {
				w, err := file.NewWatcher(store.Dir(), file.DefaultSettle, onChange)
				if err != nil {
					return err
				}
				defer w.Close()
				return w.Run(ctx)
			},
			close: func() error { return nil },
		}, nil

	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedBackend, settings.Backend)
	}
}
