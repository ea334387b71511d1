package cmd

import (
	"fmt"
	"os"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"burstpick/internal/fileutil"
	"burstpick/internal/models"
)

var (
	exportMode        string
	exportLeadersOnly bool
	exportDryRun      bool
)

var exportCmd = &cobra.Command{
	Use:   "export <dest>",
	Short: "Copy or move the keepers to another folder",
	Long: `Copy or move the photos worth keeping into a destination folder: the
leader of every burst plus every photo that is not part of a burst.
Name clashes in the destination get a " (n)" suffix.

Example:
  burstpick export ./picks                  # Copy keepers
  burstpick export ./picks --mode move      # Move keepers
  burstpick export ./picks --leaders-only   # Only burst leaders`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportMode, "mode", string(fileutil.ModeCopy), "copy or move")
	exportCmd.Flags().BoolVar(&exportLeadersOnly, "leaders-only", false, "Skip photos that are not part of a burst")
	exportCmd.Flags().BoolVar(&exportDryRun, "dry-run", false, "List the files without transferring them")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	mode, err := fileutil.ParseMode(exportMode)
	if err != nil {
		return err
	}
	dest := args[0]

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

	paths := lo.Map(sess.Groups(), func(g *models.Group, _ int) string { return g.EffectiveLeader() })
	if !exportLeadersOnly {
		paths = append(paths, lo.Map(sess.Ungrouped(), func(img *models.Image, _ int) string { return img.Path })...)
	}

	if len(paths) == 0 {
		fmt.Println("Nothing to export.")
		return nil
	}

	fmt.Printf("Will %s %d files to %s\n", mode, len(paths), dest)
	if exportDryRun {
		for _, p := range paths {
			fmt.Printf("  %s\n", p)
		}
		fmt.Println("\n(Dry run - no files were modified)")
		return nil
	}

	if err := os.MkdirAll(dest, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dest, err)
	}

	res := fileutil.Transfer(paths, dest, mode)
	for _, f := range res.Failed {
		fmt.Fprintf(os.Stderr, "Failed to %s %s: %v\n", mode, f.Path, f.Err)
	}
	for _, t := range res.Done {
		logger.Debug("exported", "from", t.From, "to", t.To)
	}

	fmt.Printf("\nExported %d files to %s\n", len(res.Done), dest)
	if len(res.Failed) > 0 {
		fmt.Printf("Failed: %d files\n", len(res.Failed))
	}
	if mode == fileutil.ModeMove && len(res.Done) > 0 {
		fmt.Println("Moved files are no longer in the scanned folder; run 'burstpick scan' again before cleaning.")
	}

	return nil
}
