package cmd

import (
	"errors"
	"fmt"
	"net"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"burstpick/internal/server"
	"burstpick/internal/storage"
)

var (
	serveHost      string
	servePort      int
	serveTimeout   time.Duration
	serveNoBrowser bool
)

var serveCmd = &cobra.Command{
	Use:   "serve [folder]",
	Short: "Start web UI for reviewing bursts",
	Long: `Start a local web server that provides a visual interface for
reviewing bursts and removing rejects.

The server will:
- Display bursts with image previews and EXIF details
- Allow picking which photo of a burst to keep
- Trash the rejects of a burst from the browser
- Rescan the folder with different settings
- Expose Prometheus metrics at /metrics
- Auto-shutdown after idle timeout (when tab is inactive)

Without a folder the saved session is shown. With a folder it is scanned first.

Example:
  burstpick serve                 # Review the last scan on port 8080
  burstpick serve ./shoot         # Scan ./shoot, then serve
  burstpick serve -p 3000         # Use custom port
  burstpick serve --timeout 10m   # 10 minute idle timeout`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Interface to listen on (default from BURSTPICK_HOST or 127.0.0.1)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (default from BURSTPICK_PORT or 8080)")
	serveCmd.Flags().DurationVar(&serveTimeout, "timeout", 5*time.Minute, "Idle timeout (0 to disable)")
	serveCmd.Flags().BoolVar(&serveNoBrowser, "no-browser", false, "Don't open browser automatically")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if servePort == 0 {
		servePort = cfg.Port
	}
	if serveHost == "" {
		serveHost = cfg.Host
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	scanner := newScanner()
	sess := newSession(scanner)

	if state, err := store.LoadSession(); err == nil {
		sess.Restore(state)
	} else if !errors.Is(err, storage.ErrNoSession) {
		return fmt.Errorf("failed to load session: %w", err)
	}

	if len(args) == 1 {
		folder, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("failed to resolve path: %w", err)
		}
		fmt.Printf("Scanning: %s\n", folder)
		if _, err := sess.Scan(cmd.Context(), scanner, folder, settings); err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
		if err := persistSession(store, sess); err != nil {
			return err
		}
	}

	srv := server.New(sess, scanner, store, server.Options{
		Host:        serveHost,
		Port:        servePort,
		IdleTimeout: serveTimeout,
		Settings:    settings,
	}, logger)

	browseHost := serveHost
	if browseHost == "0.0.0.0" || browseHost == "::" {
		browseHost = "localhost"
	}
	url := "http://" + net.JoinHostPort(browseHost, strconv.Itoa(servePort))
	fmt.Printf("Starting server at %s\n", url)
	fmt.Printf("Idle timeout: %v (resets on activity, pauses when tab is active)\n", serveTimeout)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	if !serveNoBrowser {
		go func() {
			time.Sleep(500 * time.Millisecond)
			openBrowser(url)
		}()
	}

	return srv.Start()
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Run(); err != nil {
		logger.Debug("could not open browser", "error", err)
	}
}
