// Package session holds the working state of one folder review: the
// enriched images, the burst groups and the user's leader choices.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"burstpick/internal/fileutil"
	"burstpick/internal/metrics"
	"burstpick/internal/models"
)

var (
	// ErrGroupNotFound is returned for an unknown group id
	ErrGroupNotFound = errors.New("group not found")
	// ErrNotMember is returned when a leader is not part of the group
	ErrNotMember = errors.New("image is not a member of the group")
	// ErrNothingToDelete is returned when a group has no rejects
	ErrNothingToDelete = errors.New("nothing to delete")
)

// DeleteFailure is one reject that could not be removed
type DeleteFailure struct {
	Path string
	Err  error
}

// DeleteError reports the rejects of a group that could not be removed.
// The others were removed and are gone from the session.
type DeleteError struct {
	GroupID  int
	Failures []DeleteFailure
}

func (e *DeleteError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("%s: %v", f.Path, f.Err)
	}
	return fmt.Sprintf("group %d: %d file(s) could not be deleted: %s",
		e.GroupID, len(e.Failures), strings.Join(parts, "; "))
}

// Unwrap exposes the individual failures to errors.Is and errors.As
func (e *DeleteError) Unwrap() []error {
	return lo.Map(e.Failures, func(f DeleteFailure, _ int) error { return f.Err })
}

// Paths returns the paths that failed
func (e *DeleteError) Paths() []string {
	return lo.Map(e.Failures, func(f DeleteFailure, _ int) string { return f.Path })
}

// Grouper runs a grouping pass
type Grouper interface {
	Group(ctx context.Context, images []*models.Image, settings models.Settings) (*models.Result, error)
}

// Lister lists the images of a folder
type Lister interface {
	ListFolder(folder string) ([]*models.Image, error)
}

// Session is the state of one review. All methods are safe for concurrent
// use; grouping runs and deletions are serialized.
type Session struct {
	mu sync.Mutex

	grouper Grouper
	remover fileutil.Remover
	logger  *slog.Logger

	folder   string
	settings models.Settings
	runID    string
	scanTime time.Time
	images   []*models.Image
	groups   map[int]*models.Group
}

// New creates an empty session
func New(grouper Grouper, remover fileutil.Remover, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		grouper:  grouper,
		remover:  remover,
		logger:   logger,
		settings: models.DefaultSettings(),
		groups:   make(map[int]*models.Group),
	}
}

// SetRemover changes how rejects are disposed of
func (s *Session) SetRemover(r fileutil.Remover) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remover = r
}

// Scan lists folder and groups its images
func (s *Session) Scan(ctx context.Context, lister Lister, folder string, settings models.Settings) (*models.Result, error) {
	images, err := lister.ListFolder(folder)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.group(ctx, images, settings)
	if err != nil {
		return nil, err
	}
	s.folder = folder
	return res, nil
}

// Group runs a grouping pass over images and replaces the session state
// with its result. On error the previous state is kept.
func (s *Session) Group(ctx context.Context, images []*models.Image, settings models.Settings) (*models.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.group(ctx, images, settings)
}

func (s *Session) group(ctx context.Context, images []*models.Image, settings models.Settings) (*models.Result, error) {
	owned := lo.Map(images, func(img *models.Image, _ int) *models.Image { return img.Clone() })

	res, err := s.grouper.Group(ctx, owned, settings)
	if err != nil {
		return nil, err
	}

	s.settings = settings
	s.runID = res.RunID
	s.scanTime = time.Now()
	s.images = res.Images
	s.groups = lo.KeyBy(res.Groups, func(g *models.Group) int { return g.ID })
	metrics.GroupsCommitted.Set(float64(len(s.groups)))

	return res, nil
}

// Restore replaces the session state with a saved snapshot
func (s *Session) Restore(state *models.SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.folder = state.Folder
	s.settings = state.Settings
	s.runID = state.RunID
	s.scanTime = state.ScanTime
	s.images = lo.Map(state.Images, func(img *models.Image, _ int) *models.Image { return img.Clone() })
	s.groups = make(map[int]*models.Group, len(state.Groups))
	for _, g := range state.Groups {
		s.groups[g.ID] = g.Clone()
	}
	metrics.GroupsCommitted.Set(float64(len(s.groups)))
}

// Snapshot returns a deep copy of the session state
func (s *Session) Snapshot() *models.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return &models.SessionState{
		Folder:   s.folder,
		Settings: s.settings,
		RunID:    s.runID,
		ScanTime: s.scanTime,
		Images:   s.imagesLocked(),
		Groups:   s.groupsLocked(),
	}
}

// Folder returns the folder of the last scan
func (s *Session) Folder() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.folder
}

// Settings returns the settings of the last grouping run
func (s *Session) Settings() models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Images returns copies of all images, in listing order
func (s *Session) Images() []*models.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.imagesLocked()
}

func (s *Session) imagesLocked() []*models.Image {
	return lo.Map(s.images, func(img *models.Image, _ int) *models.Image { return img.Clone() })
}

// Groups returns copies of all groups ordered by id
func (s *Session) Groups() []*models.Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groupsLocked()
}

func (s *Session) groupsLocked() []*models.Group {
	groups := make([]*models.Group, 0, len(s.groups))
	for _, g := range s.groups {
		groups = append(groups, g.Clone())
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
	return groups
}

// GroupByID returns one group with its member images
func (s *Session) GroupByID(id int) (*models.GroupView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrGroupNotFound, id)
	}
	return s.viewLocked(g), nil
}

// GroupViews returns every group with its member images, ordered by id
func (s *Session) GroupViews() []*models.GroupView {
	s.mu.Lock()
	defer s.mu.Unlock()

	views := make([]*models.GroupView, 0, len(s.groups))
	for _, g := range s.groupsLocked() {
		views = append(views, s.viewLocked(s.groups[g.ID]))
	}
	return views
}

// Ungrouped returns copies of the images that belong to no group
func (s *Session) Ungrouped() []*models.Image {
	s.mu.Lock()
	defer s.mu.Unlock()

	loose := lo.Filter(s.images, func(img *models.Image, _ int) bool { return img.GroupID == 0 })
	return lo.Map(loose, func(img *models.Image, _ int) *models.Image { return img.Clone() })
}

// Image returns a copy of the image at path
func (s *Session) Image(path string) (*models.Image, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	img, ok := lo.Find(s.images, func(img *models.Image) bool { return img.Path == path })
	if !ok {
		return nil, false
	}
	return img.Clone(), true
}

func (s *Session) viewLocked(g *models.Group) *models.GroupView {
	byPath := lo.KeyBy(s.images, func(img *models.Image) string { return img.Path })
	view := &models.GroupView{Group: g.Clone()}
	for _, p := range g.Members {
		if img, ok := byPath[p]; ok {
			view.Images = append(view.Images, img.Clone())
		}
	}
	return view
}

// SetLeader overrides the leader of a group with one of its members
func (s *Session) SetLeader(groupID int, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[groupID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrGroupNotFound, groupID)
	}
	if !g.Contains(path) {
		return fmt.Errorf("%w: %s", ErrNotMember, path)
	}

	g.OverridePath = path
	s.markLeaderLocked(g)
	return nil
}

// ClearLeader drops a leader override, going back to the best-scored image
func (s *Session) ClearLeader(groupID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[groupID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrGroupNotFound, groupID)
	}

	g.OverridePath = ""
	s.markLeaderLocked(g)
	return nil
}

// markLeaderLocked makes IsLeader follow the effective leader
func (s *Session) markLeaderLocked(g *models.Group) {
	keep := g.EffectiveLeader()
	for _, img := range s.images {
		if img.GroupID == g.ID {
			img.IsLeader = img.Path == keep
		}
	}
}

// SetCollapsed records whether a group is folded in the UI
func (s *Session) SetCollapsed(groupID int, collapsed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[groupID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrGroupNotFound, groupID)
	}
	g.Collapsed = collapsed
	return nil
}

// DeleteRejects removes every member of a group except its effective
// leader and returns how many files were removed. Removed files leave the
// session; files that failed stay in the group and are reported in a
// *DeleteError. A group left with fewer than two members is dissolved.
func (s *Session) DeleteRejects(ctx context.Context, groupID int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[groupID]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrGroupNotFound, groupID)
	}

	rejects := g.Rejects()
	if len(rejects) == 0 {
		return 0, fmt.Errorf("%w: group %d has no rejects", ErrNothingToDelete, groupID)
	}

	removed := make(map[string]bool, len(rejects))
	var failures []DeleteFailure
	for _, path := range rejects {
		if err := ctx.Err(); err != nil {
			failures = append(failures, DeleteFailure{Path: path, Err: err})
			continue
		}
		if err := s.remover.Remove(path); err != nil {
			s.logger.Warn("delete failed", "group", groupID, "path", path, "error", err)
			metrics.RejectsDeletedTotal.WithLabelValues("error").Inc()
			failures = append(failures, DeleteFailure{Path: path, Err: err})
			continue
		}
		s.logger.Debug("deleted reject", "group", groupID, "path", path, "via", s.remover.Kind())
		metrics.RejectsDeletedTotal.WithLabelValues("ok").Inc()
		removed[path] = true
	}

	s.images = lo.Reject(s.images, func(img *models.Image, _ int) bool { return removed[img.Path] })
	g.Members = lo.Reject(g.Members, func(p string, _ int) bool { return removed[p] })

	if len(g.Members) < 2 {
		delete(s.groups, groupID)
		for _, img := range s.images {
			if img.GroupID == groupID {
				img.GroupID = 0
				img.IsLeader = false
			}
		}
		s.logger.Info("group dissolved", "group", groupID)
	}
	metrics.GroupsCommitted.Set(float64(len(s.groups)))

	if len(failures) > 0 {
		return len(removed), &DeleteError{GroupID: groupID, Failures: failures}
	}
	return len(removed), nil
}
