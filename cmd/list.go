package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"burstpick/internal/models"
)

var (
	listJSON    bool
	listVerbose bool
	listSummary bool
	listLimit   int
	listOffset  int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the bursts of the last scan",
	Long: `Display the bursts found by the last scan with their photos.

Each burst shows:
- Burst ID
- Photos ordered by quality score
- The photo that will be kept marked with ✓ (★ when picked by hand)
- The photos that will be removed marked with ✗

Example:
  burstpick list              # Show first 10 bursts (default)
  burstpick list -n 0         # Show all bursts
  burstpick list -s           # Summary view (compact)
  burstpick list --offset 10  # Bursts 11-20
  burstpick list --json       # Machine readable`,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().BoolVarP(&listVerbose, "verbose", "v", false, "Show detailed image info")
	listCmd.Flags().BoolVarP(&listSummary, "summary", "s", false, "Show summary only (burst counts and sizes)")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 10, "Limit number of bursts to display (0 = all)")
	listCmd.Flags().IntVar(&listOffset, "offset", 0, "Skip first N bursts (for pagination)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
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

	if listJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Folder    string              `json:"folder"`
			Settings  models.Settings     `json:"settings"`
			Groups    []*models.GroupView `json:"groups"`
			Ungrouped []*models.Image     `json:"ungrouped"`
		}{sess.Folder(), sess.Settings(), groups, sess.Ungrouped()})
	}

	if len(groups) == 0 {
		fmt.Printf("No bursts found in %s.\n", sess.Folder())
		return nil
	}

	totalRejects := lo.SumBy(groups, func(v *models.GroupView) int { return len(v.Members) - 1 })
	totalSavings := lo.SumBy(groups, reclaimableSize)

	fmt.Printf("Found %d bursts in %s (%d rejects, %s reclaimable)\n\n",
		len(groups), sess.Folder(), totalRejects, formatSize(totalSavings))

	// Apply pagination
	totalGroups := len(groups)
	startIdx := min(listOffset, len(groups))
	groups = groups[startIdx:]

	if listLimit > 0 && listLimit < len(groups) {
		groups = groups[:listLimit]
	}

	if len(groups) == 0 {
		fmt.Printf("No bursts in range (offset %d exceeds total %d)\n", listOffset, totalGroups)
	} else if listSummary {
		printSummaryTable(groups)
	} else {
		for _, group := range groups {
			printGroup(group, listVerbose)
		}
	}

	endIdx := startIdx + len(groups)
	if len(groups) > 0 {
		fmt.Printf("Showing bursts %d-%d of %d\n", startIdx+1, endIdx, totalGroups)
		if endIdx < totalGroups {
			limitArg := ""
			if listLimit > 0 {
				limitArg = fmt.Sprintf(" -n %d", listLimit)
			}
			fmt.Printf("Next page: burstpick list%s --offset %d\n", limitArg, endIdx)
		}
	}

	fmt.Println()
	fmt.Println("Run 'burstpick leader <burst> <file>' to keep a different shot")
	fmt.Println("Run 'burstpick clean --dry-run' to preview deletions")

	return nil
}

// reclaimableSize sums the sizes of every member except the kept one
func reclaimableSize(v *models.GroupView) int64 {
	keep := v.EffectiveLeader()
	return lo.SumBy(v.Images, func(img *models.Image) int64 {
		if img.Path == keep {
			return 0
		}
		return img.Size
	})
}

func printSummaryTable(groups []*models.GroupView) {
	fmt.Printf("%-8s  %-8s  %-12s  %s\n", "Burst", "Images", "Reclaimable", "Keep")
	fmt.Println(strings.Repeat("-", 70))

	for _, group := range groups {
		keepName := filepath.Base(group.EffectiveLeader())
		if len(keepName) > 35 {
			keepName = keepName[:32] + "..."
		}
		if group.OverridePath != "" {
			keepName += " ★"
		}

		fmt.Printf("#%-7d  %-8d  %-12s  %s\n",
			group.ID, len(group.Members), formatSize(reclaimableSize(group)), keepName)
	}
	fmt.Println()
}

func printGroup(group *models.GroupView, verbose bool) {
	fmt.Printf("Burst #%d (%d images)\n", group.ID, len(group.Images))
	fmt.Println(strings.Repeat("-", 60))

	keep := group.EffectiveLeader()
	for _, img := range group.Images {
		marker := "✗"
		switch {
		case img.Path == keep && group.OverridePath != "":
			marker = "★"
		case img.Path == keep:
			marker = "✓"
		}

		if verbose {
			fmt.Printf("  %s %s\n", marker, img.Path)
			fmt.Printf("      Resolution: %s  Size: %s  Taken: %s\n",
				formatDims(img.Dimensions), formatSize(img.Size), img.ModTime.Format("2006-01-02 15:04:05"))
			fmt.Printf("      Score: %d  Hash: %s\n", img.Score, formatHash(img.Hash))
		} else {
			fmt.Printf("  %s %-40s  %11s  %8s  %s  Score: %d\n",
				marker, shortenPath(img.Name, 40), formatDims(img.Dimensions),
				formatSize(img.Size), img.ModTime.Format("15:04:05"), img.Score)
		}
	}
	fmt.Println()
}

func formatDims(d *models.Dimensions) string {
	if d == nil {
		return "?x?"
	}
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

func formatHash(h *uint64) string {
	if h == nil {
		return "none"
	}
	return fmt.Sprintf("%016x", *h)
}

func shortenPath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}

	// Try to show filename and as much of the path as possible
	dir, file := filepath.Split(path)
	if len(file) >= maxLen-3 {
		return "..." + file[len(file)-(maxLen-3):]
	}

	remaining := maxLen - len(file) - 4 // 4 for ".../"
	if remaining > 0 && len(dir) > remaining {
		dir = dir[len(dir)-remaining:]
	}
	return "..." + dir + file
}

func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
