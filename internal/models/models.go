package models

import "time"

// Dimensions holds the pixel size of an image
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Megapixels returns width*height in millions of pixels
func (d Dimensions) Megapixels() float64 {
	return float64(d.Width) * float64(d.Height) / 1_000_000
}

// Image holds listing data and the values computed for one photo
type Image struct {
	Path       string      `json:"path"`
	Name       string      `json:"name"`
	Size       int64       `json:"size"`
	ModTime    time.Time   `json:"mod_time"`
	Hash       *uint64     `json:"hash,omitempty"`       // nil when hashing failed
	Dimensions *Dimensions `json:"dimensions,omitempty"` // nil when probing failed
	Score      int         `json:"score"`
	GroupID    int         `json:"group_id,omitempty"` // 0 for ungrouped images
	IsLeader   bool        `json:"is_leader,omitempty"`
}

// Clone returns a deep copy of the image
func (img *Image) Clone() *Image {
	c := *img
	if img.Hash != nil {
		h := *img.Hash
		c.Hash = &h
	}
	if img.Dimensions != nil {
		d := *img.Dimensions
		c.Dimensions = &d
	}
	return &c
}

// Group is a burst of near-duplicate photos
type Group struct {
	ID           int      `json:"id"`
	Members      []string `json:"members"`     // ordered by descending score at creation
	LeaderPath   string   `json:"leader"`      // highest score at creation
	OverridePath string   `json:"override,omitempty"`
	Collapsed    bool     `json:"collapsed,omitempty"`
}

// EffectiveLeader returns the user override if set, otherwise the
// quality-based leader
func (g *Group) EffectiveLeader() string {
	if g.OverridePath != "" {
		return g.OverridePath
	}
	return g.LeaderPath
}

// Contains reports whether path is a member of the group
func (g *Group) Contains(path string) bool {
	for _, m := range g.Members {
		if m == path {
			return true
		}
	}
	return false
}

// Rejects returns every member except the effective leader
func (g *Group) Rejects() []string {
	keep := g.EffectiveLeader()
	rejects := make([]string, 0, len(g.Members))
	for _, m := range g.Members {
		if m != keep {
			rejects = append(rejects, m)
		}
	}
	return rejects
}

// Clone returns a deep copy of the group
func (g *Group) Clone() *Group {
	c := *g
	c.Members = append([]string(nil), g.Members...)
	return &c
}

// Settings controls a grouping run
type Settings struct {
	TimeThresholdSeconds float64 `json:"time_threshold_seconds" validate:"gt=0"`
	SimilarityThreshold  float64 `json:"similarity_threshold" validate:"gte=0,lte=1"`
	MinGroupSize         int     `json:"min_group_size" validate:"min=1"`
}

// DefaultSettings returns the settings used when none are configured
func DefaultSettings() Settings {
	return Settings{
		TimeThresholdSeconds: 10,
		SimilarityThreshold:  0.9,
		MinGroupSize:         2,
	}
}

// Result is the output of a grouping run
type Result struct {
	RunID  string   `json:"run_id"`
	Images []*Image `json:"images"` // input order
	Groups []*Group `json:"groups"`
}

// GroupView is a group with its member images resolved, for display
type GroupView struct {
	*Group
	Images []*Image `json:"images"`
}

// Leader returns the effective leader image, or nil
func (v *GroupView) Leader() *Image {
	keep := v.EffectiveLeader()
	for _, img := range v.Images {
		if img.Path == keep {
			return img
		}
	}
	return nil
}

// SessionState is a snapshot of a session, as persisted between runs
type SessionState struct {
	Folder   string    `json:"folder"`
	Settings Settings  `json:"settings"`
	RunID    string    `json:"run_id"`
	ScanTime time.Time `json:"scan_time"`
	Images   []*Image  `json:"images"`
	Groups   []*Group  `json:"groups"`
}
