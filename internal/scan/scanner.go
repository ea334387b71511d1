package scan

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"burstpick/internal/hash"
	"burstpick/internal/metrics"
	"burstpick/internal/models"
	"burstpick/internal/quality"
)

// DefaultBatchSize is how many images are decoded at once
const DefaultBatchSize = 10

// Fingerprinter computes the per-image values the scanner needs
type Fingerprinter interface {
	FingerprintWithTimeout(ctx context.Context, path string, timeout time.Duration) (uint64, error)
	Dimensions(path string) (*models.Dimensions, error)
}

// Scanner lists folders for images and enriches them with fingerprints,
// dimensions and quality scores
type Scanner struct {
	hasher     Fingerprinter
	batchSize  int
	timeout    time.Duration
	recursive  bool
	logger     *slog.Logger
	progressFn func(scanned, total int, current string)
}

// Option configures a Scanner
type Option func(*Scanner)

// WithBatchSize sets how many images are processed concurrently
func WithBatchSize(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithTimeout sets the timeout for hashing each image. A decode that times
// out is abandoned, not stopped: it keeps running in the background and may
// overlap the next batch, so a slow file can briefly push the number of
// concurrent decodes above the batch size.
func WithTimeout(d time.Duration) Option {
	return func(s *Scanner) {
		s.timeout = d
	}
}

// WithRecursive makes ListFolder descend into subfolders
func WithRecursive(recursive bool) Option {
	return func(s *Scanner) {
		s.recursive = recursive
	}
}

// WithProgress sets a progress callback
func WithProgress(fn func(scanned, total int, current string)) Option {
	return func(s *Scanner) {
		s.progressFn = fn
	}
}

// WithLogger sets the logger used for per-image failures
func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithFingerprinter replaces the default hasher
func WithFingerprinter(f Fingerprinter) Option {
	return func(s *Scanner) {
		if f != nil {
			s.hasher = f
		}
	}
}

// NewScanner creates a new Scanner
func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{
		hasher:    hash.NewHasher(),
		batchSize: DefaultBatchSize,
		timeout:   30 * time.Second,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListFolder returns the supported images in folder, sorted by name, with
// their size and modification time. Files that cannot be stat'ed are skipped.
func (s *Scanner) ListFolder(folder string) ([]*models.Image, error) {
	var images []*models.Image

	add := func(path string, d fs.DirEntry) {
		if d.IsDir() || !hash.IsSupportedImage(path) {
			return
		}
		info, err := d.Info()
		if err != nil {
			s.logger.Warn("skipping file", "path", path, "error", err)
			return
		}
		if !info.Mode().IsRegular() {
			return
		}
		images = append(images, &models.Image{
			Path:    path,
			Name:    d.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	if s.recursive {
		err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == folder {
					return err
				}
				return nil // Skip unreadable entries
			}
			add(path, d)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk folder: %w", err)
		}
	} else {
		entries, err := os.ReadDir(folder)
		if err != nil {
			return nil, fmt.Errorf("failed to read folder: %w", err)
		}
		for _, entry := range entries {
			add(filepath.Join(folder, entry.Name()), entry)
		}
	}

	sort.SliceStable(images, func(i, j int) bool {
		a, b := strings.ToLower(images[i].Name), strings.ToLower(images[j].Name)
		if a != b {
			return a < b
		}
		return images[i].Path < images[j].Path
	})

	return images, nil
}

// Enrich fills in fingerprint, dimensions and score for every image, in
// place. Images are processed in batches: the images of one batch run
// concurrently and a batch must finish before the next one starts. A
// failure on one image only leaves that image's fields empty. The only
// error returned is ctx's, checked before each batch and after it completes.
func (s *Scanner) Enrich(ctx context.Context, images []*models.Image) error {
	total := len(images)
	var scanned atomic.Int64

	for start := 0; start < total; start += s.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := start + s.batchSize
		if end > total {
			end = total
		}

		batchStart := time.Now()
		g, gctx := errgroup.WithContext(ctx)
		for _, img := range images[start:end] {
			g.Go(func() error {
				s.enrichOne(gctx, img)

				n := scanned.Add(1)
				if s.progressFn != nil {
					s.progressFn(int(n), total, img.Path)
				}
				// A cancelled image is not a per-image failure; the whole run is void
				return ctx.Err()
			})
		}
		err := g.Wait()
		metrics.EnrichBatchDuration.Observe(time.Since(batchStart).Seconds())
		if err != nil {
			return err
		}
	}

	return nil
}

// enrichOne hashes img and reads its dimensions concurrently, then scores it
func (s *Scanner) enrichOne(ctx context.Context, img *models.Image) {
	var (
		wg      sync.WaitGroup
		fp      uint64
		fpErr   error
		dims    *models.Dimensions
		dimsErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		fp, fpErr = s.hasher.FingerprintWithTimeout(ctx, img.Path, s.timeout)
	}()
	go func() {
		defer wg.Done()
		dims, dimsErr = s.hasher.Dimensions(img.Path)
	}()
	wg.Wait()

	img.Hash = nil
	if fpErr != nil {
		s.logger.Warn("fingerprint failed", "path", img.Path, "error", fpErr)
		metrics.ImagesEnrichedTotal.WithLabelValues("fingerprint", "error").Inc()
	} else {
		img.Hash = &fp
		metrics.ImagesEnrichedTotal.WithLabelValues("fingerprint", "ok").Inc()
	}

	img.Dimensions = nil
	if dimsErr != nil {
		s.logger.Debug("dimension read failed", "path", img.Path, "error", dimsErr)
		metrics.ImagesEnrichedTotal.WithLabelValues("dimensions", "error").Inc()
	} else {
		img.Dimensions = dims
		metrics.ImagesEnrichedTotal.WithLabelValues("dimensions", "ok").Inc()
	}

	img.Score = quality.Score(img.Name, img.Size, img.Dimensions)
}
