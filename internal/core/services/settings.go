package services

import (
	"fmt"
	"path/filepath"

	"github.com/phisch84/domain-repository/internal/core/domain"
	"github.com/phisch84/domain-repository/internal/core/ports/driven"
	"github.com/phisch84/domain-repository/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	keyStorageBackend = "storage.backend"
	keyStoragePath    = "storage.path"
	keyCacheCapacity  = "cache.capacity"
	keyLogVerbose     = "log.verbose"
)

// dataDirName is the default data directory below the config directory.
const dataDirName = "data"

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// LoadSettings reads settings from store, applying defaults.
func LoadSettings(store driven.ConfigStore) domain.Settings {
	return NewSettingsService(store).Get()
}

// GetDefaults returns default settings. The data directory defaults to a
// directory next to the config file.
func (s *SettingsService) GetDefaults() domain.Settings {
	dataDir := dataDirName
	if s.configStore != nil && s.configStore.Path() != "" {
		dataDir = filepath.Join(filepath.Dir(s.configStore.Path()), dataDirName)
	}
	return domain.Settings{
		Backend:       domain.BackendSQLite,
		DataDir:       dataDir,
		CacheCapacity: 0,
		Verbose:       false,
	}
}

// Get retrieves current settings. Invalid values fall back to defaults.
func (s *SettingsService) Get() domain.Settings {
	settings := s.GetDefaults()
	if s.configStore == nil {
		return settings
	}

	if backend := s.configStore.GetString(keyStorageBackend); domain.IsValidBackend(backend) {
		settings.Backend = backend
	}
	if path := s.configStore.GetString(keyStoragePath); path != "" {
		settings.DataDir = path
	}
	if capacity := s.configStore.GetInt(keyCacheCapacity); capacity > 0 {
		settings.CacheCapacity = capacity
	}
	settings.Verbose = s.configStore.GetBool(keyLogVerbose)
	return settings
}

// Save persists settings.
func (s *SettingsService) Save(settings domain.Settings) error {
	if s.configStore == nil {
		return domain.ErrNotImplemented
	}
	if !domain.IsValidBackend(settings.Backend) {
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedBackend, settings.Backend)
	}
	if settings.CacheCapacity < 0 {
		return fmt.Errorf("%w: cache capacity %d", domain.ErrInvalidArgument, settings.CacheCapacity)
	}

	values := []struct {
		key   string
		value any
	}{
		{keyStorageBackend, settings.Backend},
		{keyStoragePath, settings.DataDir},
		{keyCacheCapacity, settings.CacheCapacity},
		{keyLogVerbose, settings.Verbose},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("setting %s: %w", v.key, err)
		}
	}
	return s.configStore.Save()
}
