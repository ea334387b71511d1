package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"burstpick/internal/hash"
	"burstpick/internal/metadata"
	"burstpick/internal/quality"
)

var infoJSON bool

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Show EXIF metadata and hashes of a photo",
	Long: `Show what burstpick knows about a single photo: camera settings from
EXIF, dimensions, quality score, average hash and SHA256. If the photo is part
of the saved session its burst is shown too.

Example:
  burstpick info ./shoot/IMG_0042.jpg
  burstpick info ./shoot/IMG_0042.jpg --json`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	md, err := metadata.Read(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	score := quality.Score(md.Name, md.Size, md.Dimensions)
	var avg *uint64
	if fp, err := hash.NewHasher().FingerprintWithTimeout(cmd.Context(), path, cfg.HashTimeout); err == nil {
		avg = &fp
	} else {
		logger.Warn("fingerprint failed", "path", path, "error", err)
	}
	sum, err := hash.ComputeFileHash(path)
	if err != nil {
		return err
	}

	if infoJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			*metadata.Metadata
			Score       int     `json:"score"`
			AverageHash *uint64 `json:"average_hash,omitempty"`
			SHA256      string  `json:"sha256"`
		}{md, score, avg, sum})
	}

	fmt.Printf("File:        %s\n", md.Path)
	fmt.Printf("Size:        %s\n", formatSize(md.Size))
	fmt.Printf("Modified:    %s\n", md.ModTime.Format("2006-01-02 15:04:05"))
	fmt.Printf("Resolution:  %s\n", formatDims(md.Dimensions))
	fmt.Printf("Score:       %d\n", score)
	fmt.Printf("Avg hash:    %s\n", formatHash(avg))
	fmt.Printf("SHA256:      %s\n", sum)

	if md.HasExif {
		fmt.Println()
		printField("Camera", md.Camera())
		printField("Lens", md.Lens)
		printField("Exposure", md.Exposure)
		if md.FNumber > 0 {
			printField("Aperture", fmt.Sprintf("f/%.1f", md.FNumber))
		}
		if md.ISO > 0 {
			printField("ISO", fmt.Sprint(md.ISO))
		}
		if md.FocalLength > 0 {
			printField("Focal", fmt.Sprintf("%gmm", md.FocalLength))
		}
		if md.TakenAt != nil {
			printField("Taken", md.TakenAt.Format("2006-01-02 15:04:05"))
		}
		if md.Latitude != nil && md.Longitude != nil {
			printField("GPS", fmt.Sprintf("%.6f, %.6f", *md.Latitude, *md.Longitude))
		}
	} else {
		fmt.Println("\nNo EXIF data")
	}

	printMembership(path)
	return nil
}

func printField(label, value string) {
	if value == "" {
		return
	}
	fmt.Printf("%-12s %s\n", label+":", value)
}

// printMembership shows the burst of path in the saved session, if any
func printMembership(path string) {
	if _, err := os.Stat(dbPath); err != nil {
		return
	}
	store, err := openStore()
	if err != nil {
		return
	}
	defer store.Close()

	sess, err := loadSession(store)
	if err != nil {
		return
	}
	img, ok := sess.Image(path)
	if !ok || img.GroupID == 0 {
		return
	}

	role := "reject"
	if img.IsLeader {
		role = "leader"
	}
	fmt.Printf("\nBurst #%d (%s)\n", img.GroupID, role)
}
