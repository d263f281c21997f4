// Package cli provides the domainrepo command line, a driving adapter over
// the note repository and its unit of work.
package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/phisch84/domain-repository/internal/core/domain"
	"github.com/phisch84/domain-repository/internal/core/ports/driving"
	"github.com/phisch84/domain-repository/internal/logger"
)

// version is set at build time.
var version = "dev"

// Services are the dependencies of the commands.
type Services struct {
	Settings   driving.SettingsService
	Notes      driving.Repository[*domain.Note]
	UnitOfWork driving.UnitOfWork

	// Watch blocks until ctx is done and calls onChange whenever the store
	// is changed by another process. nil if the backend cannot be watched.
	Watch func(ctx context.Context, onChange func()) error

	// Close releases the backend. May be nil.
	Close func() error
}

// Connector builds the services for a configuration directory. An empty
// directory selects the default.
type Connector func(configDir string) (*Services, error)

var (
	// app is connected on first use unless a test injected it.
	app       *Services
	connector Connector

	verbose   bool
	configDir string
)

var rootCmd = &cobra.Command{
	Use:   "domainrepo",
	Short: "Manage notes through a caching repository",
	Long: `domainrepo keeps notes in a memory, SQLite or YAML file store.

Changes go through an identity-caching repository and are committed in
batches by a unit of work.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Configuration directory (default ~/.domainrepo)")
}

// Execute runs the root command. connect is called the first time a
// command needs the services.
func Execute(connect Connector) error {
	connector = connect
	defer disconnect()
	return rootCmd.Execute()
}

func connected() (*Services, error) {
	if app != nil {
		return app, nil
	}
	if connector == nil {
		return nil, errors.New("note repository not configured")
	}

	s, err := connector(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	if s.Settings != nil && s.Settings.Get().Verbose {
		logger.SetVerbose(true)
	}
	logger.Debug("connected to %s", s.Notes.Name())
	app = s
	return app, nil
}

func disconnect() {
	if app == nil || connector == nil {
		return
	}
	if app.Close != nil {
		if err := app.Close(); err != nil {
			logger.Warn("closing store: %v", err)
		}
	}
	app = nil
}

// commit commits the unit of work and rolls it back on failure.
func commit(ctx context.Context, s *Services) error {
	err := s.UnitOfWork.Commit(ctx)
	if err == nil {
		return nil
	}
	if rbErr := s.UnitOfWork.Rollback(); rbErr != nil {
		logger.Warn("rollback after failed commit: %v", rbErr)
	}
	return err
}

func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: note id must be a positive number, got %q", domain.ErrInvalidArgument, arg)
	}
	return id, nil
}
