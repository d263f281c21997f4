package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/phisch84/domain-repository/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change the storage backend, data directory, cache size and
logging. Changes take effect on the next command.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change a setting",
	Long: `Change a setting.

Available keys:
  backend  - memory, sqlite or file
  path     - data directory of the sqlite and file backends
  cache    - identity cache capacity per repository, 0 for unbounded
  verbose  - true or false`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	s, err := connected()
	if err != nil {
		return err
	}
	if s.Settings == nil {
		return errors.New("settings service not configured")
	}

	settings := s.Settings.Get()
	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()
	cmd.Println("[Storage]")
	cmd.Printf("  Backend: %s\n", settings.Backend)
	if settings.Backend != domain.BackendMemory {
		cmd.Printf("  Path: %s\n", settings.DataDir)
	}
	cmd.Println()
	cmd.Println("[Cache]")
	if settings.CacheCapacity > 0 {
		cmd.Printf("  Capacity: %d\n", settings.CacheCapacity)
	} else {
		cmd.Println("  Capacity: unbounded")
	}
	cmd.Println()
	cmd.Println("[Log]")
	cmd.Printf("  Verbose: %t\n", settings.Verbose)
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	s, err := connected()
	if err != nil {
		return err
	}
	if s.Settings == nil {
		return errors.New("settings service not configured")
	}

	settings := s.Settings.Get()
	if err := applySetting(&settings, args[0], args[1]); err != nil {
		return err
	}
	if err := s.Settings.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	cmd.Printf("Set %s to %s\n", args[0], args[1])
	return nil
}

func applySetting(settings *domain.Settings, key, value string) error {
	switch key {
	case "backend":
		if !domain.IsValidBackend(value) {
			return fmt.Errorf("%w: %q", domain.ErrUnsupportedBackend, value)
		}
		settings.Backend = value
	case "path":
		if value == "" {
			return fmt.Errorf("%w: path must not be empty", domain.ErrInvalidArgument)
		}
		settings.DataDir = value
	case "cache":
		capacity, err := strconv.Atoi(value)
		if err != nil || capacity < 0 {
			return fmt.Errorf("%w: cache capacity must be a number of at least 0, got %q", domain.ErrInvalidArgument, value)
		}
		settings.CacheCapacity = capacity
	case "verbose":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: verbose must be true or false, got %q", domain.ErrInvalidArgument, value)
		}
		settings.Verbose = v
	default:
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidArgument, key)
	}
	return nil
}
