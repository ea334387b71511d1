package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"burstpick/internal/cluster"
	"burstpick/internal/config"
	"burstpick/internal/fileutil"
	"burstpick/internal/logging"
	"burstpick/internal/models"
	"burstpick/internal/scan"
	"burstpick/internal/session"
	"burstpick/internal/storage"
)

var (
	cfg       *config.Config
	logger    = slog.Default()
	dbPath    string
	logLevel  string
	logFormat string
	batchSize int
	recursive bool
	settings  models.Settings
)

var rootCmd = &cobra.Command{
	Use:   "burstpick",
	Short: "Group photo bursts and pick the best shot",
	Long: `burstpick groups photos taken in quick succession into bursts and
picks the best shot of each burst.

Photos belong to the same burst when they were taken within a few seconds of
each other and look alike (average hash). Within a burst the photo with the
highest quality score (resolution, file size, file name) is the leader; the
others are rejects that can be trashed in one go.

Example usage:
  burstpick scan ./shoot              # Group a folder into bursts
  burstpick list                      # Show the bursts
  burstpick leader 3 IMG_0042.jpg     # Keep a different shot of burst #3
  burstpick clean --dry-run           # Preview which rejects would go
  burstpick serve                     # Review bursts in the browser`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = logging.Setup(logLevel, logFormat)
	},
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cfg = config.Load()

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dbPath, "db", cfg.DBPath, "Path to SQLite session database")
	pf.StringVar(&logLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", cfg.LogFormat, "Log format (text or json)")
	pf.Float64Var(&settings.TimeThresholdSeconds, "time-threshold", cfg.Settings.TimeThresholdSeconds, "Max seconds between consecutive shots of a burst")
	pf.Float64Var(&settings.SimilarityThreshold, "similarity", cfg.Settings.SimilarityThreshold, "Min visual similarity (0-1) to join a burst")
	pf.IntVar(&settings.MinGroupSize, "min-group-size", cfg.Settings.MinGroupSize, "Min photos per burst (at least 2 are always required)")
	pf.IntVar(&batchSize, "batch-size", cfg.BatchSize, "Photos hashed concurrently")
	pf.BoolVar(&recursive, "recursive", cfg.Recursive, "Include subfolders when scanning")
}

func openStore() (*storage.Storage, error) {
	store, err := storage.NewStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

func newScanner(opts ...scan.Option) *scan.Scanner {
	base := []scan.Option{
		scan.WithBatchSize(batchSize),
		scan.WithTimeout(cfg.HashTimeout),
		scan.WithRecursive(recursive),
		scan.WithLogger(logger),
	}
	return scan.NewScanner(append(base, opts...)...)
}

// newSession builds an empty session that trashes rejects by default
func newSession(scanner *scan.Scanner) *session.Session {
	return session.New(cluster.NewEngine(scanner, logger), fileutil.TrashRemover{}, logger)
}

// loadSession restores the session saved by the last scan
func loadSession(store *storage.Storage) (*session.Session, error) {
	state, err := store.LoadSession()
	if err != nil {
		return nil, err
	}
	sess := newSession(newScanner())
	sess.Restore(state)
	return sess, nil
}

// noSession reports whether err means nothing has been scanned yet and
// prints a hint if so
func noSession(err error) bool {
	if !errors.Is(err, storage.ErrNoSession) {
		return false
	}
	fmt.Println("No saved session found.")
	fmt.Println("Run 'burstpick scan <folder>' to group a folder into bursts.")
	return true
}

func persistSession(store *storage.Storage, sess *session.Session) error {
	if err := store.SaveSession(sess.Snapshot()); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}
