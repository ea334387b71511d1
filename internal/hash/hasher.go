package hash

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/corona10/goimagehash"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"burstpick/internal/models"
)

// Bits is the fingerprint length
const Bits = 64

// gridSize is the side of the sample grid the image is reduced to
const gridSize = 8

// Hasher computes average-hash fingerprints and reads image dimensions
type Hasher struct{}

// NewHasher creates a new Hasher
func NewHasher() *Hasher {
	return &Hasher{}
}

// Fingerprint decodes the image, reduces it to an 8x8 luminance grid and
// returns a 64-bit average hash: a bit is set when its sample is strictly
// brighter than the grid mean.
func (h *Hasher) Fingerprint(path string) (uint64, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return 0, fmt.Errorf("failed to decode image: %w", err)
	}

	small := imaging.Resize(img, gridSize, gridSize, imaging.Lanczos)

	ahash, err := goimagehash.AverageHash(small)
	if err != nil {
		return 0, fmt.Errorf("failed to compute hash: %w", err)
	}

	return ahash.GetHash(), nil
}

// FingerprintWithTimeout runs Fingerprint, giving up after timeout or when
// ctx is done. Decoding cannot be interrupted, so on timeout or cancellation
// the decode goroutine is left to finish on its own and its result dropped.
func (h *Hasher) FingerprintWithTimeout(ctx context.Context, path string, timeout time.Duration) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if timeout <= 0 {
		return h.Fingerprint(path)
	}

	type result struct {
		hash uint64
		err  error
	}
	done := make(chan result, 1)

	go func() {
		v, err := h.Fingerprint(path)
		done <- result{v, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.hash, r.err
	case <-timer.C:
		return 0, fmt.Errorf("timeout hashing image: %s", path)
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Dimensions reads the pixel size from the image header without decoding
// the pixel data
func (h *Hasher) Dimensions(path string) (*models.Dimensions, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}

	return &models.Dimensions{Width: cfg.Width, Height: cfg.Height}, nil
}

// ComputeFileHash computes the SHA256 hash of a file
func ComputeFileHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// IsSupportedImage checks if a file is a supported image format
func IsSupportedImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tiff", ".tif":
		return true
	default:
		return false
	}
}
