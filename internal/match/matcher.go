package match

import (
	"sort"

	"burstpick/internal/models"
)

// Matcher is the interface for grouping strategies
type Matcher interface {
	FindGroups(images []*models.Image) []*models.Group
}

// groupBuilder hands out group ids that are unique within one run
type groupBuilder struct {
	nextID int
}

func newGroupBuilder() *groupBuilder {
	return &groupBuilder{nextID: 1}
}

// build creates a group from members, picks its leader and stamps every
// member with the group id
func (b *groupBuilder) build(members []*models.Image) *models.Group {
	group := &models.Group{ID: b.nextID}
	b.nextID++

	sorted := sortByScore(members)

	group.Members = make([]string, len(sorted))
	for i, img := range sorted {
		group.Members[i] = img.Path
		img.GroupID = group.ID
		img.IsLeader = i == 0
	}
	group.LeaderPath = sorted[0].Path

	return group
}

// sortByScore returns a copy of images ordered by descending score.
// Equal scores keep their relative order.
func sortByScore(images []*models.Image) []*models.Image {
	sorted := make([]*models.Image, len(images))
	copy(sorted, images)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	return sorted
}
