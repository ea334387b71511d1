package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"burstpick/internal/fileutil"
	"burstpick/internal/models"
	"burstpick/internal/session"
)

var (
	dryRun    bool
	moveTo    string
	permanent bool
	noConfirm bool
	groupIDs  []int
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the rejects of each burst",
	Long: `Remove the rejects of each burst, keeping only its leader.

The clean command will:
1. Keep the leader of each burst (your pick, or the highest score)
2. Move the other photos to trash (default) or delete them permanently
3. Dissolve bursts that are left with a single photo

Options:
  --dry-run     Preview what would be removed without actually removing
  --permanent   Delete files permanently instead of moving to trash
  --move-to     Move rejects to a specific folder
  --yes         Skip confirmation prompt
  --group       Specify burst IDs to clean (can be used multiple times)

Example:
  burstpick clean                     # Move to trash (default)
  burstpick clean --permanent         # Delete permanently
  burstpick clean --move-to=./rejects # Move to specific folder
  burstpick clean --dry-run           # Preview only
  burstpick clean --group=1 --group=3 # Clean only bursts 1 and 3`,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview without removing")
	cleanCmd.Flags().BoolVar(&permanent, "permanent", false, "Delete permanently instead of moving to trash")
	cleanCmd.Flags().StringVar(&moveTo, "move-to", "", "Move rejects to this folder")
	cleanCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
	cleanCmd.Flags().IntSliceVarP(&groupIDs, "group", "g", nil, "Burst IDs to clean (can be specified multiple times)")
	cleanCmd.MarkFlagsMutuallyExclusive("permanent", "move-to")
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	remover, err := fileutil.NewRemover(permanent, moveTo)
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	sess, err := loadSession(store)
	if noSession(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	groups := sess.GroupViews()
	if len(groups) == 0 {
		fmt.Println("No bursts found.")
		return nil
	}

	if len(groupIDs) > 0 {
		groups = lo.Filter(groups, func(v *models.GroupView, _ int) bool {
			return lo.Contains(groupIDs, v.ID)
		})
		if len(groups) == 0 {
			fmt.Printf("No matching bursts found for IDs: %v\n", groupIDs)
			fmt.Println("Run 'burstpick list' to see available burst IDs.")
			return nil
		}
		fmt.Printf("Processing %d selected burst(s): %v\n\n", len(groups), groupIDs)
	}

	toRemove := lo.FlatMap(groups, func(v *models.GroupView, _ int) []string { return v.Rejects() })
	totalSize := lo.SumBy(groups, reclaimableSize)

	var action string
	switch remover.Kind() {
	case "move":
		action = fmt.Sprintf("move to %s", moveTo)
	case "delete":
		action = "permanently delete"
	default:
		action = "move to trash"
	}

	fmt.Printf("Will %s %d files (%s)\n\n", action, len(toRemove), formatSize(totalSize))

	if dryRun {
		fmt.Println("Files to be removed:")
		for _, v := range groups {
			fmt.Printf("  Burst #%d, keeping %s\n", v.ID, v.EffectiveLeader())
			for _, path := range v.Rejects() {
				fmt.Printf("    %s\n", path)
			}
		}
		fmt.Println()
		fmt.Println("(Dry run - no files were modified)")
		fmt.Println("Run without --dry-run to actually remove files.")
		return nil
	}

	// Confirm unless --yes flag is set
	if !noConfirm {
		fmt.Printf("Are you sure you want to %s %d files? [y/N]: ", action, len(toRemove))
		reader := bufio.NewReader(os.Stdin)
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if moveTo != "" {
		if err := os.MkdirAll(moveTo, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", moveTo, err)
		}
	}
	sess.SetRemover(remover)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var processed, failed int
	for _, v := range groups {
		n, err := sess.DeleteRejects(ctx, v.ID)
		processed += n

		var delErr *session.DeleteError
		switch {
		case err == nil:
		case errors.As(err, &delErr):
			for _, f := range delErr.Failures {
				fmt.Fprintf(os.Stderr, "Failed to process %s: %v\n", f.Path, f.Err)
			}
			failed += len(delErr.Failures)
		case errors.Is(err, session.ErrNothingToDelete):
		default:
			fmt.Fprintf(os.Stderr, "Burst #%d: %v\n", v.ID, err)
		}
	}

	// Files already removed are gone even if saving fails
	if err := persistSession(store, sess); err != nil {
		return err
	}

	fmt.Println()
	switch remover.Kind() {
	case "move":
		fmt.Printf("Moved %d files to %s\n", processed, moveTo)
	case "delete":
		fmt.Printf("Permanently deleted %d files\n", processed)
	default:
		fmt.Printf("Moved %d files to trash\n", processed)
	}
	if failed > 0 {
		fmt.Printf("Failed: %d files\n", failed)
	}

	return nil
}
