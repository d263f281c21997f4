package services

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phisch84/domain-repository/internal/adapters/driven/storage/memory"
	"github.com/phisch84/domain-repository/internal/core/domain"
)

// fileBackedStore pretends to live in a config file.
type fileBackedStore struct {
	*memory.ConfigStore
	path    string
	saves   int
	failSet error
}

func (s *fileBackedStore) Path() string { return s.path }

func (s *fileBackedStore) Set(key string, value any) error {
	if s.failSet != nil {
		return s.failSet
	}
	return s.ConfigStore.Set(key, value)
}

func (s *fileBackedStore) Save() error {
	s.saves++
	return nil
}

func TestSettingsService_Defaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(nil))

	settings := service.Get()

	assert.Equal(t, domain.BackendSQLite, settings.Backend)
	assert.Equal(t, "data", settings.DataDir)
	assert.Zero(t, settings.CacheCapacity)
	assert.False(t, settings.Verbose)
}

func TestSettingsService_DataDirFollowsConfigFile(t *testing.T) {
	dir := t.TempDir()
	store := &fileBackedStore{ConfigStore: memory.NewConfigStore(nil), path: filepath.Join(dir, "config.toml")}

	assert.Equal(t, filepath.Join(dir, "data"), NewSettingsService(store).GetDefaults().DataDir)
}

func TestSettingsService_NilStore(t *testing.T) {
	service := NewSettingsService(nil)

	assert.Equal(t, domain.BackendSQLite, service.Get().Backend)
	assert.ErrorIs(t, service.Save(service.GetDefaults()), domain.ErrNotImplemented)
}

func TestSettingsService_StoredValues(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{
		"storage.backend": "file",
		"storage.path":    "/srv/notes",
		"cache.capacity":  int64(64),
		"log.verbose":     true,
	})

	settings := LoadSettings(store)

	assert.Equal(t, domain.Settings{
		Backend:       domain.BackendFile,
		DataDir:       "/srv/notes",
		CacheCapacity: 64,
		Verbose:       true,
	}, settings)
}

func TestSettingsService_InvalidValuesFallBack(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{
		"storage.backend": "postgres",
		"cache.capacity":  -3,
		"log.verbose":     "yes",
	})

	settings := LoadSettings(store)

	assert.Equal(t, domain.BackendSQLite, settings.Backend)
	assert.Zero(t, settings.CacheCapacity)
	assert.False(t, settings.Verbose)
}

func TestSettingsService_Save(t *testing.T) {
	store := &fileBackedStore{ConfigStore: memory.NewConfigStore(nil), path: "config.toml"}
	service := NewSettingsService(store)
	want := domain.Settings{Backend: domain.BackendMemory, DataDir: "elsewhere", CacheCapacity: 8, Verbose: true}

	require.NoError(t, service.Save(want))

	assert.Equal(t, 1, store.saves)
	assert.Equal(t, want, service.Get())
}

func TestSettingsService_SaveValidation(t *testing.T) {
	store := &fileBackedStore{ConfigStore: memory.NewConfigStore(nil)}
	service := NewSettingsService(store)

	err := service.Save(domain.Settings{Backend: "postgres"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedBackend)

	err = service.Save(domain.Settings{Backend: domain.BackendMemory, CacheCapacity: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	assert.Zero(t, store.saves)
}

func TestSettingsService_SaveSetFailure(t *testing.T) {
	cause := errors.New("read only")
	store := &fileBackedStore{ConfigStore: memory.NewConfigStore(nil), failSet: cause}

	err := NewSettingsService(store).Save(domain.Settings{Backend: domain.BackendFile})

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "storage.backend")
	assert.Zero(t, store.saves)
}
