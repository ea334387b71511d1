package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"burstpick/internal/models"
)

var leaderReset bool

var leaderCmd = &cobra.Command{
	Use:   "leader <burst> [file]",
	Short: "Choose which photo of a burst to keep",
	Long: `Override the photo kept for a burst. The file can be given as a path
or as a file name within the burst.

Example:
  burstpick leader 3 IMG_0042.jpg   # Keep IMG_0042.jpg in burst #3
  burstpick leader 3 --reset        # Go back to the highest scoring photo`,
	Args: func(cmd *cobra.Command, args []string) error {
		if leaderReset {
			return cobra.ExactArgs(1)(cmd, args)
		}
		return cobra.ExactArgs(2)(cmd, args)
	},
	RunE: runLeader,
}

func init() {
	leaderCmd.Flags().BoolVar(&leaderReset, "reset", false, "Clear the override")
	rootCmd.AddCommand(leaderCmd)
}

func runLeader(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid burst id %q", args[0])
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

	view, err := sess.GroupByID(id)
	if err != nil {
		return fmt.Errorf("burst #%d: %w", id, err)
	}

	if leaderReset {
		if err := sess.ClearLeader(id); err != nil {
			return err
		}
	} else {
		path := resolveMember(view, args[1])
		if err := sess.SetLeader(id, path); err != nil {
			return fmt.Errorf("burst #%d: %s: %w", id, args[1], err)
		}
	}

	if err := persistSession(store, sess); err != nil {
		return err
	}

	view, err = sess.GroupByID(id)
	if err != nil {
		return err
	}
	printGroup(view, false)
	return nil
}

// resolveMember maps a file name or relative path to the member path it
// names. Unknown names are returned as given so SetLeader reports them.
func resolveMember(view *models.GroupView, arg string) string {
	if abs, err := filepath.Abs(arg); err == nil && view.Contains(abs) {
		return abs
	}
	if img, ok := lo.Find(view.Images, func(img *models.Image) bool { return img.Name == arg }); ok {
		return img.Path
	}
	return arg
}
