package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent scans",
	Long: `Show the most recent scans recorded in the database, newest first.

Example:
  burstpick history          # Last 10 scans
  burstpick history -n 50    # Last 50 scans`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of scans to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.ScanHistory(historyLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No scans recorded yet.")
		return nil
	}

	fmt.Printf("%-19s  %7s  %7s  %7s  %8s  %s\n", "Scanned", "Images", "Bursts", "Rejects", "Took", "Folder")
	fmt.Println(strings.Repeat("-", 80))
	for _, rec := range records {
		fmt.Printf("%-19s  %7d  %7d  %7d  %8s  %s\n",
			rec.ScannedAt.Local().Format("2006-01-02 15:04:05"),
			rec.TotalImages, rec.TotalGroups, rec.TotalRejects,
			rec.Duration.Round(time.Millisecond), rec.Folder)
	}

	count, err := store.GetGroupCount()
	if err != nil {
		return err
	}
	fmt.Printf("\nSaved session: %d bursts left to review\n", count)
	return nil
}
