package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"burstpick/internal/cluster"
	"burstpick/internal/models"
	"burstpick/internal/scan"
	"burstpick/internal/storage"
)

var scanCmd = &cobra.Command{
	Use:   "scan <folder>",
	Short: "Group a folder of photos into bursts",
	Long: `Scan a folder for photos and group them into bursts.

The scan will:
1. List all supported images (jpg, png, gif, webp, bmp, tiff)
2. Compute an average hash and the dimensions of each photo
3. Score each photo and group shots taken close together that look alike
4. Save the session so list, leader, clean and export can use it

Example:
  burstpick scan ./shoot
  burstpick scan ./shoot --time-threshold 5 --similarity 0.95
  burstpick scan ./shoot --recursive`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	absFolder, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(absFolder)
	if err != nil {
		return fmt.Errorf("folder not found: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", absFolder)
	}

	fmt.Printf("Scanning: %s\n", absFolder)
	fmt.Printf("Burst window: %gs  Similarity: %.2f  Min group size: %d\n\n",
		settings.TimeThresholdSeconds, settings.SimilarityThreshold, settings.MinGroupSize)

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	// The total is only known once the folder is listed
	var (
		once sync.Once
		bar  *progressbar.ProgressBar
	)
	scanner := newScanner(scan.WithProgress(func(scanned, total int, current string) {
		once.Do(func() { bar = progressbar.Default(int64(total), "Hashing") })
		_ = bar.Add(1)
	}))

	start := time.Now()
	sess := newSession(scanner)
	res, err := sess.Scan(ctx, scanner, absFolder, settings)
	if bar != nil {
		_ = bar.Finish()
	}
	if errors.Is(err, cluster.ErrNoImages) {
		fmt.Println("No images found.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if err := persistSession(store, sess); err != nil {
		return err
	}

	rejects := lo.SumBy(res.Groups, func(g *models.Group) int { return len(g.Members) - 1 })
	if err := store.RecordScan(storage.ScanRecord{
		RunID:        res.RunID,
		Folder:       absFolder,
		TotalImages:  len(res.Images),
		TotalGroups:  len(res.Groups),
		TotalRejects: rejects,
		Duration:     time.Since(start),
	}); err != nil {
		logger.Warn("failed to record scan", "error", err)
	}

	unhashed := lo.CountBy(res.Images, func(img *models.Image) bool { return img.Hash == nil })
	grouped := lo.SumBy(res.Groups, func(g *models.Group) int { return len(g.Members) })
	reclaimable := lo.SumBy(sess.GroupViews(), reclaimableSize)

	fmt.Println()
	fmt.Println("=== Scan Complete ===")
	fmt.Printf("Total images:   %d\n", len(res.Images))
	fmt.Printf("Bursts:         %d (%d images)\n", len(res.Groups), grouped)
	fmt.Printf("Single shots:   %d\n", len(res.Images)-grouped)
	fmt.Printf("Rejects:        %d (%s reclaimable)\n", rejects, formatSize(reclaimable))
	if unhashed > 0 {
		fmt.Printf("Unreadable:     %d (never grouped)\n", unhashed)
	}
	fmt.Printf("Took:           %s\n", time.Since(start).Round(time.Millisecond))

	if len(res.Groups) > 0 {
		fmt.Println()
		fmt.Println("Run 'burstpick list' to see the bursts")
		fmt.Println("Run 'burstpick clean --dry-run' to preview deletions")
	}

	return nil
}
