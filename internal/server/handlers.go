package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"burstpick/internal/cluster"
	"burstpick/internal/metadata"
	"burstpick/internal/models"
	"burstpick/internal/session"
	"burstpick/internal/storage"
)

type groupsResponse struct {
	Folder    string              `json:"folder"`
	Settings  models.Settings     `json:"settings"`
	Groups    []*models.GroupView `json:"groups"`
	Ungrouped []*models.Image     `json:"ungrouped"`
}

type deleteResponse struct {
	Deleted int      `json:"deleted"`
	Failed  []string `json:"failed,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to status codes
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrGroupNotFound):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrNotMember),
		errors.Is(err, cluster.ErrNoImages),
		errors.Is(err, cluster.ErrInvalidSettings):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrNothingToDelete):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func groupID(r *http.Request) int {
	// The route pattern only admits digits
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	return id
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, groupsResponse{
		Folder:    s.session.Folder(),
		Settings:  s.session.Settings(),
		Groups:    s.session.GroupViews(),
		Ungrouped: s.session.Ungrouped(),
	})
}

func (s *Server) handleGroup(w http.ResponseWriter, r *http.Request) {
	view, err := s.session.GroupByID(groupID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleImages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Images())
}

func (s *Server) handleSetLeader(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		http.Error(w, "path required", http.StatusBadRequest)
		return
	}

	id := groupID(r)
	if err := s.session.SetLeader(id, req.Path); err != nil {
		writeError(w, err)
		return
	}
	s.changed("leader", id)
	s.handleGroup(w, r)
}

func (s *Server) handleClearLeader(w http.ResponseWriter, r *http.Request) {
	id := groupID(r)
	if err := s.session.ClearLeader(id); err != nil {
		writeError(w, err)
		return
	}
	s.changed("leader", id)
	s.handleGroup(w, r)
}

func (s *Server) handleCollapse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Collapsed bool `json:"collapsed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id := groupID(r)
	if err := s.session.SetCollapsed(id, req.Collapsed); err != nil {
		writeError(w, err)
		return
	}
	s.changed("collapse", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteRejects(w http.ResponseWriter, r *http.Request) {
	id := groupID(r)
	n, err := s.session.DeleteRejects(r.Context(), id)

	var delErr *session.DeleteError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, deleteResponse{Deleted: n})
	case errors.As(err, &delErr):
		// Some files are gone, so the session changed anyway
		writeJSON(w, http.StatusMultiStatus, deleteResponse{Deleted: n, Failed: delErr.Paths(), Error: err.Error()})
	default:
		writeError(w, err)
		return
	}
	s.changed("delete", id)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	req := struct {
		Folder   string           `json:"folder"`
		Settings *models.Settings `json:"settings,omitempty"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Folder == "" {
		req.Folder = s.session.Folder()
	}
	if req.Folder == "" {
		http.Error(w, "folder required", http.StatusBadRequest)
		return
	}
	settings := s.settings
	if req.Settings != nil {
		settings = *req.Settings
	}

	start := time.Now()
	res, err := s.session.Scan(r.Context(), s.lister, req.Folder, settings)
	if err != nil {
		writeError(w, err)
		return
	}

	if s.store != nil {
		rec := storage.ScanRecord{
			RunID:        res.RunID,
			Folder:       req.Folder,
			TotalImages:  len(res.Images),
			TotalGroups:  len(res.Groups),
			TotalRejects: countRejects(res.Groups),
			Duration:     time.Since(start),
		}
		if err := s.store.RecordScan(rec); err != nil {
			s.logger.Warn("failed to record scan", "error", err)
		}
	}
	s.changed("scan", 0)

	writeJSON(w, http.StatusOK, map[string]any{
		"run_id": res.RunID,
		"images": len(res.Images),
		"groups": len(res.Groups),
	})
}

// sessionPath rejects paths that are not part of the session, so the API
// cannot be used to read arbitrary files
func (s *Server) sessionPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	path := r.URL.Query().Get("path")
	if path == "" {
		http.Error(w, "path required", http.StatusBadRequest)
		return "", false
	}
	if _, ok := s.session.Image(path); !ok {
		http.Error(w, "unknown image", http.StatusNotFound)
		return "", false
	}
	return path, true
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	path, ok := s.sessionPath(w, r)
	if !ok {
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	path, ok := s.sessionPath(w, r)
	if !ok {
		return
	}
	md, err := metadata.Read(path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, md)
}

func countRejects(groups []*models.Group) int {
	n := 0
	for _, g := range groups {
		n += len(g.Members) - 1
	}
	return n
}

// changed persists the session and tells connected pages to refresh
func (s *Server) changed(kind string, id int) {
	s.persist()
	s.broadcast(event{Type: "changed", Kind: kind, GroupID: id})
}
