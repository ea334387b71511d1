package match

import (
	"sort"

	"burstpick/internal/hash"
	"burstpick/internal/models"
)

// minCommittedSize is the smallest group ever committed, whatever the
// configured minimum: a single image is not a group
const minCommittedSize = 2

// BurstMatcher groups photos taken in quick succession that also look alike
type BurstMatcher struct {
	settings models.Settings
}

// NewBurstMatcher creates a new BurstMatcher
func NewBurstMatcher(settings models.Settings) *BurstMatcher {
	return &BurstMatcher{settings: settings}
}

// Settings returns the matcher settings
func (m *BurstMatcher) Settings() models.Settings {
	return m.settings
}

// FindGroups walks the images in capture order, keeping one open group.
// An image joins the open group when it was taken within the time threshold
// of the group's most recent member and resembles at least one member;
// otherwise the open group is closed and a new one starts with that image.
// Closed groups below the minimum size are dropped, their images stay
// ungrouped. Group and leader fields are written onto the images.
func (m *BurstMatcher) FindGroups(images []*models.Image) []*models.Group {
	if len(images) == 0 {
		return nil
	}

	ordered := make([]*models.Image, len(images))
	copy(ordered, images)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ModTime.Before(ordered[j].ModTime)
	})

	for _, img := range ordered {
		img.GroupID = 0
		img.IsLeader = false
	}

	builder := newGroupBuilder()
	var groups []*models.Group
	var current []*models.Image

	finalize := func() {
		if len(current) >= m.minSize() {
			groups = append(groups, builder.build(current))
		}
		current = nil
	}

	for _, img := range ordered {
		if len(current) == 0 {
			current = append(current, img)
			continue
		}

		last := current[len(current)-1]
		gap := img.ModTime.Sub(last.ModTime).Seconds()

		if gap > m.settings.TimeThresholdSeconds || !m.resemblesAny(img, current) {
			finalize()
		}
		current = append(current, img)
	}
	finalize()

	return groups
}

func (m *BurstMatcher) minSize() int {
	if m.settings.MinGroupSize < minCommittedSize {
		return minCommittedSize
	}
	return m.settings.MinGroupSize
}

// resemblesAny reports whether img is similar enough to any member
func (m *BurstMatcher) resemblesAny(img *models.Image, members []*models.Image) bool {
	if img.Hash == nil {
		return false
	}
	for _, member := range members {
		if member.Hash == nil {
			continue
		}
		if hash.Similarity(img.Hash, member.Hash) >= m.settings.SimilarityThreshold {
			return true
		}
	}
	return false
}
