// Package quality estimates which shot of a burst is the best one.
package quality

import (
	"math"
	"strings"

	"burstpick/internal/models"
)

const (
	resolutionWeight = 40.0
	sizeWeight       = 30.0
	namingWeight     = 30.0
	copyNamingScore  = 10.0

	// fullResolutionMP is the resolution that earns the whole resolution term
	fullResolutionMP = 24.0
	// fullSizeMB is the file size that earns the whole size term
	fullSizeMB = 10.0

	bytesPerMB = 1024 * 1024

	// MaxScore is the highest attainable score
	MaxScore = 100
)

// copyMarkers are name fragments typical of edited or duplicated files
var copyMarkers = []string{"edit", "copy", "duplicate", "(1)", "(2)"}

// Score returns a 0-100 quality estimate built from resolution, file size
// and file name. dims may be nil, in which case resolution contributes 0.
func Score(name string, size int64, dims *models.Dimensions) int {
	total := ResolutionTerm(dims) + SizeTerm(size) + NamingTerm(name)
	return int(math.Round(total))
}

// ResolutionTerm scores megapixels against a 24MP reference
func ResolutionTerm(dims *models.Dimensions) float64 {
	if dims == nil {
		return 0
	}
	return math.Min(dims.Megapixels()/fullResolutionMP, 1) * resolutionWeight
}

// SizeTerm scores file size against a 10MB reference
func SizeTerm(size int64) float64 {
	if size <= 0 {
		return 0
	}
	mb := float64(size) / bytesPerMB
	return math.Min(mb/fullSizeMB, 1) * sizeWeight
}

// NamingTerm penalises names that look like edits or copies
func NamingTerm(name string) float64 {
	if LooksLikeCopy(name) {
		return copyNamingScore
	}
	return namingWeight
}

// LooksLikeCopy reports whether the file name carries a copy marker
func LooksLikeCopy(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range copyMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
