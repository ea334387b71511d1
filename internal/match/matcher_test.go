package match

import (
	"testing"

	"burstpick/internal/models"
)

func TestGroupBuilder_Leader(t *testing.T) {
	tests := []struct {
		name           string
		images         []*models.Image
		expectedLeader string
		expectedOrder  []string
	}{
		{
			name: "highest score leads",
			images: []*models.Image{
				{Path: "a.jpg", Score: 80},
				{Path: "b.jpg", Score: 95},
				{Path: "c.jpg", Score: 60},
			},
			expectedLeader: "b.jpg",
			expectedOrder:  []string{"b.jpg", "a.jpg", "c.jpg"},
		},
		{
			name: "tie keeps original order",
			images: []*models.Image{
				{Path: "first.jpg", Score: 70},
				{Path: "second.jpg", Score: 70},
			},
			expectedLeader: "first.jpg",
			expectedOrder:  []string{"first.jpg", "second.jpg"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			group := newGroupBuilder().build(tt.images)

			if group.LeaderPath != tt.expectedLeader {
				t.Errorf("leader = %s, want %s", group.LeaderPath, tt.expectedLeader)
			}
			for i, p := range tt.expectedOrder {
				if group.Members[i] != p {
					t.Errorf("members[%d] = %s, want %s", i, group.Members[i], p)
				}
			}
			for _, img := range tt.images {
				if img.GroupID != group.ID {
					t.Errorf("%s group id = %d, want %d", img.Path, img.GroupID, group.ID)
				}
				if img.IsLeader != (img.Path == tt.expectedLeader) {
					t.Errorf("%s IsLeader = %v", img.Path, img.IsLeader)
				}
			}
		})
	}
}

func TestGroupBuilder_UniqueIDs(t *testing.T) {
	b := newGroupBuilder()
	seen := make(map[int]bool)
	for i := 0; i < 5; i++ {
		g := b.build([]*models.Image{{Path: "x.jpg"}})
		if seen[g.ID] {
			t.Fatalf("duplicate group id %d", g.ID)
		}
		seen[g.ID] = true
	}
}
