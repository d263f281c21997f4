package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phisch84/domain-repository/internal/core/domain"
)

func writeConfig(t *testing.T, dir, backend, dataDir string) {
	t.Helper()
	config := "[storage]\nbackend = \"" + backend + "\"\npath = \"" + filepath.ToSlash(dataDir) + "\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(config), 0600))
}

func TestConnect_Backends(t *testing.T) {
	for _, backend := range []string{domain.BackendMemory, domain.BackendSQLite, domain.BackendFile} {
		t.Run(backend, func(t *testing.T) {
			configDir := t.TempDir()
			writeConfig(t, configDir, backend, filepath.Join(t.TempDir(), "data"))
			ctx := context.Background()

			s, err := connect(configDir)
			require.NoError(t, err)
			defer func() { assert.NoError(t, s.Close()) }()

			assert.Equal(t, backend, s.Settings.Get().Backend)
			assert.Equal(t, "notes", s.Notes.Name())

			note := domain.NewNote("wired", "body", "x")
			require.NoError(t, s.Notes.Add(note))
			require.NoError(t, s.UnitOfWork.Commit(ctx))
			require.Positive(t, note.ID())

			require.NoError(t, s.Notes.Reload(ctx))
			got, err := s.Notes.Get(ctx, note.ID())
			require.NoError(t, err)
			assert.Equal(t, "wired", got.Title())
			assert.Equal(t, []string{"x"}, got.Tags())

			assert.Equal(t, backend == domain.BackendFile, s.Watch != nil)
		})
	}
}

func TestConnect_PersistsAcrossConnections(t *testing.T) {
	configDir := t.TempDir()
	writeConfig(t, configDir, domain.BackendSQLite, filepath.Join(t.TempDir(), "data"))
	ctx := context.Background()

	first, err := connect(configDir)
	require.NoError(t, err)
	note := domain.NewNote("kept", "")
	require.NoError(t, first.Notes.Add(note))
	require.NoError(t, first.UnitOfWork.Commit(ctx))
	require.NoError(t, first.Close())

	second, err := connect(configDir)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.Notes.Get(ctx, note.ID())
	require.NoError(t, err)
	assert.Equal(t, "kept", got.Title())
}

func TestConnect_UnsupportedBackend(t *testing.T) {
	_, err := openBackend(domain.Settings{Backend: "postgres"})

	assert.ErrorIs(t, err, domain.ErrUnsupportedBackend)
}

func TestConnect_FileWatchReloads(t *testing.T) {
	configDir := t.TempDir()
	dataDir := filepath.Join(t.TempDir(), "data")
	writeConfig(t, configDir, domain.BackendFile, dataDir)

	s, err := connect(configDir)
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	changed := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	// Another process writes a record file.
	require.Eventually(t, func() bool {
		err := os.WriteFile(filepath.Join(dataDir, "notes", "7.yaml"), []byte("id: 7\ntitle: outside\n"), 0600)
		if err != nil {
			return false
		}
		select {
		case <-changed:
			return true
		default:
			return false
		}
	}, 5*time.Second, 300*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	all, err := s.Notes.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "outside", all[0].Title())
}
