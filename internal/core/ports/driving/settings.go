package driving

import "github.com/phisch84/domain-repository/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current settings with defaults applied.
	Get() domain.Settings

	// Save persists settings.
	Save(settings domain.Settings) error

	// GetDefaults returns default settings.
	GetDefaults() domain.Settings
}
