package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phisch84/domain-repository/internal/core/domain"
	"github.com/phisch84/domain-repository/internal/logger"
)

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Manage notes",
	Long:  `Add, list, show, edit, remove or reload notes.`,
}

var notesAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Add a note",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotesAdd,
}

var notesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes",
	Args:  cobra.NoArgs,
	RunE:  runNotesList,
}

var notesGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Show a note",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotesGet,
}

var notesEditCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Change a note",
	Long:  `Changes the title, body or tags of a note. Only the given flags are applied.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runNotesEdit,
}

var notesRemoveCmd = &cobra.Command{
	Use:   "rm [id...]",
	Short: "Remove notes",
	Long:  `Removes one or more notes. Nothing is removed if any of the notes does not exist.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runNotesRemove,
}

var notesReloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Reload notes from the store",
	Args:  cobra.NoArgs,
	RunE:  runNotesReload,
}

var notesWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reload notes whenever the store changes",
	Long: `Watches the store for changes made by other processes and reloads
the notes after each change. Only the file backend can be watched.`,
	Args: cobra.NoArgs,
	RunE: runNotesWatch,
}

// Flags.
var (
	noteBody  string
	noteTags  []string
	noteTitle string
	listTag   string
)

func init() {
	notesAddCmd.Flags().StringVarP(&noteBody, "body", "b", "", "Note body")
	notesAddCmd.Flags().StringSliceVarP(&noteTags, "tag", "t", nil, "Note tag (repeatable)")

	notesEditCmd.Flags().StringVar(&noteTitle, "title", "", "New title")
	notesEditCmd.Flags().StringVarP(&noteBody, "body", "b", "", "New body")
	notesEditCmd.Flags().StringSliceVarP(&noteTags, "tag", "t", nil, "Replace the tags (repeatable)")

	notesListCmd.Flags().StringVarP(&listTag, "tag", "t", "", "Only list notes with this tag")

	notesCmd.AddCommand(notesAddCmd)
	notesCmd.AddCommand(notesListCmd)
	notesCmd.AddCommand(notesGetCmd)
	notesCmd.AddCommand(notesEditCmd)
	notesCmd.AddCommand(notesRemoveCmd)
	notesCmd.AddCommand(notesReloadCmd)
	notesCmd.AddCommand(notesWatchCmd)
	rootCmd.AddCommand(notesCmd)
}

func runNotesAdd(cmd *cobra.Command, args []string) error {
	s, err := connected()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	note := domain.NewNote(args[0], noteBody, noteTags...)
	if err := s.Notes.Add(note); err != nil {
		return fmt.Errorf("failed to add note: %w", err)
	}
	if err := commit(ctx, s); err != nil {
		return fmt.Errorf("failed to save note: %w", err)
	}

	cmd.Printf("Added note %d: %s\n", note.ID(), note.Title())
	return nil
}

func runNotesList(cmd *cobra.Command, _ []string) error {
	s, err := connected()
	if err != nil {
		return err
	}

	notes, err := s.Notes.GetAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list notes: %w", err)
	}
	if listTag != "" {
		notes = slices.DeleteFunc(notes, func(n *domain.Note) bool {
			return !slices.Contains(n.Tags(), listTag)
		})
	}

	if len(notes) == 0 {
		cmd.Println("No notes found.")
		return nil
	}

	for _, n := range notes {
		cmd.Printf("  %4d  %s", n.ID(), n.Title())
		if tags := n.Tags(); len(tags) > 0 {
			cmd.Printf("  [%s]", strings.Join(tags, ", "))
		}
		cmd.Println()
	}
	cmd.Printf("\nTotal: %d notes\n", len(notes))
	return nil
}

func runNotesGet(cmd *cobra.Command, args []string) error {
	s, err := connected()
	if err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	n, err := s.Notes.Get(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to get note: %w", err)
	}

	cmd.Printf("Note: %d\n\n", n.ID())
	cmd.Printf("  Title:    %s\n", n.Title())
	cmd.Printf("  Tags:     %s\n", strings.Join(n.Tags(), ", "))
	if !n.UpdatedAt().IsZero() {
		cmd.Printf("  Updated:  %s\n", n.UpdatedAt().Local().Format("2006-01-02 15:04:05"))
	}
	if n.Body() != "" {
		cmd.Printf("\n%s\n", n.Body())
	}
	return nil
}

func runNotesEdit(cmd *cobra.Command, args []string) error {
	if noteTitle == "" && noteBody == "" && len(noteTags) == 0 {
		return errors.New("nothing to change: use --title, --body or --tag")
	}
	s, err := connected()
	if err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	n, err := s.Notes.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get note: %w", err)
	}
	if noteTitle != "" {
		n.SetTitle(noteTitle)
	}
	if noteBody != "" {
		n.SetBody(noteBody)
	}
	if len(noteTags) > 0 {
		n.SetTags(noteTags)
	}

	if err := s.Notes.SetModified(n); err != nil {
		return fmt.Errorf("failed to update note: %w", err)
	}
	if err := commit(ctx, s); err != nil {
		return fmt.Errorf("failed to save note: %w", err)
	}

	cmd.Printf("Updated note %d\n", n.ID())
	return nil
}

func runNotesRemove(cmd *cobra.Command, args []string) error {
	s, err := connected()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var notes []*domain.Note
	for _, arg := range args {
		id, err := parseID(arg)
		if err != nil {
			return err
		}
		n, err := s.Notes.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get note: %w", err)
		}
		notes = append(notes, n)
	}

	for _, n := range notes {
		if err := s.Notes.Remove(n); err != nil {
			if rbErr := s.UnitOfWork.Rollback(); rbErr != nil {
				logger.Warn("rollback after failed remove: %v", rbErr)
			}
			return fmt.Errorf("failed to remove note %d: %w", n.ID(), err)
		}
	}
	if err := commit(ctx, s); err != nil {
		return fmt.Errorf("failed to remove notes: %w", err)
	}

	for _, n := range notes {
		cmd.Printf("Removed note %d: %s\n", n.ID(), n.Title())
	}
	return nil
}

func runNotesReload(cmd *cobra.Command, _ []string) error {
	s, err := connected()
	if err != nil {
		return err
	}

	count, err := reloadNotes(cmd.Context(), s)
	if err != nil {
		return err
	}
	cmd.Printf("Reloaded %d notes\n", count)
	return nil
}

func runNotesWatch(cmd *cobra.Command, _ []string) error {
	s, err := connected()
	if err != nil {
		return err
	}
	if s.Watch == nil {
		backend := "current"
		if s.Settings != nil {
			backend = s.Settings.Get().Backend
		}
		return fmt.Errorf("%w: the %s backend cannot be watched", domain.ErrNotImplemented, backend)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	cmd.Println("Watching for changes, press Ctrl+C to stop...")
	err = s.Watch(ctx, func() {
		count, err := reloadNotes(ctx, s)
		if err != nil {
			logger.Warn("%v", err)
			return
		}
		cmd.Printf("Store changed, reloaded %d notes\n", count)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch failed: %w", err)
	}
	return nil
}

func reloadNotes(ctx context.Context, s *Services) (int, error) {
	if err := s.Notes.Reload(ctx); err != nil {
		return 0, fmt.Errorf("failed to reload notes: %w", err)
	}
	notes, err := s.Notes.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list notes: %w", err)
	}
	return len(notes), nil
}
