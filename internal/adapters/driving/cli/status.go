package cli

import (
	"github.com/spf13/cobra"

	"github.com/phisch84/domain-repository/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the store and pending changes",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	s, err := connected()
	if err != nil {
		return err
	}

	if s.Settings != nil {
		settings := s.Settings.Get()
		cmd.Printf("Backend: %s\n", settings.Backend)
		if settings.Backend != domain.BackendMemory {
			cmd.Printf("Path:    %s\n", settings.DataDir)
		}
		cmd.Println()
	}

	pending := s.UnitOfWork.Pending()
	if len(pending) == 0 {
		cmd.Println("No repositories tracked.")
		return nil
	}

	cmd.Println("Pending changes:")
	for _, p := range pending {
		cmd.Printf("  %-12s add %d  update %d  remove %d\n", p.Source, p.ToAdd, p.ToUpdate, p.ToRemove)
	}
	return nil
}
