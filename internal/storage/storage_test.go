package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"burstpick/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	store, err := NewStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStorage failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func u64(v uint64) *uint64 { return &v }

func sampleState() *models.SessionState {
	mod := time.Date(2024, 6, 1, 12, 0, 0, 123456789, time.UTC)
	return &models.SessionState{
		Folder:   "/photos/trip",
		Settings: models.Settings{TimeThresholdSeconds: 5, SimilarityThreshold: 0.85, MinGroupSize: 3},
		RunID:    "run-1",
		ScanTime: mod.Add(time.Hour),
		Images: []*models.Image{
			{Path: "/photos/trip/b.jpg", Name: "b.jpg", Size: 2000, ModTime: mod, Hash: u64(0xFFFFFFFFFFFFFFFF),
				Dimensions: &models.Dimensions{Width: 6000, Height: 4000}, Score: 90, GroupID: 1, IsLeader: true},
			{Path: "/photos/trip/a.jpg", Name: "a.jpg", Size: 1000, ModTime: mod.Add(time.Second), Hash: u64(1),
				Score: 60, GroupID: 1},
			{Path: "/photos/trip/c.jpg", Name: "c.jpg", Size: 500, ModTime: mod.Add(time.Minute), Score: 30},
		},
		Groups: []*models.Group{
			{ID: 1, Members: []string{"/photos/trip/b.jpg", "/photos/trip/a.jpg"}, LeaderPath: "/photos/trip/b.jpg",
				OverridePath: "/photos/trip/a.jpg", Collapsed: true},
		},
	}
}

func TestNewStorage(t *testing.T) {
	store := newTestStorage(t)
	if store.db == nil {
		t.Error("db should not be nil")
	}
}

func TestNewStorage_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "test.db")

	store, err := NewStorage(dbPath)
	if err != nil {
		t.Fatalf("NewStorage failed to create directories: %v", err)
	}
	defer store.Close()

	if store.Path() != dbPath {
		t.Errorf("path = %s, want %s", store.Path(), dbPath)
	}
}

func TestLoadSession_Empty(t *testing.T) {
	store := newTestStorage(t)

	if _, err := store.LoadSession(); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession, got %v", err)
	}
}

func TestSaveSession_RoundTrip(t *testing.T) {
	store := newTestStorage(t)
	want := sampleState()

	if err := store.SaveSession(want); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	got, err := store.LoadSession()
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}

	if got.Folder != want.Folder || got.RunID != want.RunID || got.Settings != want.Settings {
		t.Errorf("session header = %+v", got)
	}
	if !got.ScanTime.Equal(want.ScanTime) {
		t.Errorf("scan time = %v, want %v", got.ScanTime, want.ScanTime)
	}

	if len(got.Images) != 3 {
		t.Fatalf("expected 3 images, got %d", len(got.Images))
	}
	// Listing order is kept, not path order
	if got.Images[0].Name != "b.jpg" || got.Images[1].Name != "a.jpg" {
		t.Errorf("image order = %s, %s", got.Images[0].Name, got.Images[1].Name)
	}

	b := got.Images[0]
	if b.Hash == nil || *b.Hash != 0xFFFFFFFFFFFFFFFF {
		t.Errorf("high-bit hash lost: %v", b.Hash)
	}
	if b.Dimensions == nil || b.Dimensions.Width != 6000 || b.Dimensions.Height != 4000 {
		t.Errorf("dimensions = %v", b.Dimensions)
	}
	if !b.ModTime.Equal(want.Images[0].ModTime) {
		t.Errorf("mod time = %v, want %v (nanoseconds must survive)", b.ModTime, want.Images[0].ModTime)
	}
	if !b.IsLeader || b.GroupID != 1 || b.Score != 90 {
		t.Errorf("image fields = %+v", b)
	}

	c := got.Images[2]
	if c.Hash != nil || c.Dimensions != nil {
		t.Error("absent hash and dimensions should stay absent")
	}

	if len(got.Groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(got.Groups))
	}
	g := got.Groups[0]
	if g.ID != 1 || g.LeaderPath != "/photos/trip/b.jpg" || g.OverridePath != "/photos/trip/a.jpg" || !g.Collapsed {
		t.Errorf("group = %+v", g)
	}
	if len(g.Members) != 2 || g.Members[0] != "/photos/trip/b.jpg" {
		t.Errorf("members = %v", g.Members)
	}
}

func TestSaveSession_Replaces(t *testing.T) {
	store := newTestStorage(t)

	if err := store.SaveSession(sampleState()); err != nil {
		t.Fatalf("first SaveSession failed: %v", err)
	}

	next := &models.SessionState{
		Folder:   "/photos/other",
		Settings: models.DefaultSettings(),
		RunID:    "run-2",
		ScanTime: time.Now(),
		Images:   []*models.Image{{Path: "/photos/other/x.jpg", Name: "x.jpg", ModTime: time.Now()}},
	}
	if err := store.SaveSession(next); err != nil {
		t.Fatalf("second SaveSession failed: %v", err)
	}

	got, err := store.LoadSession()
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	if got.RunID != "run-2" || len(got.Images) != 1 || len(got.Groups) != 0 {
		t.Errorf("session not replaced: run=%s images=%d groups=%d", got.RunID, len(got.Images), len(got.Groups))
	}

	count, err := store.GetGroupCount()
	if err != nil {
		t.Fatalf("GetGroupCount failed: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestRecordScan(t *testing.T) {
	store := newTestStorage(t)

	err := store.RecordScan(ScanRecord{
		RunID:        "run-1",
		Folder:       "/path/to/folder",
		TotalImages:  100,
		TotalGroups:  10,
		TotalRejects: 25,
		Duration:     1500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("RecordScan failed: %v", err)
	}

	// Verify by querying directly
	var folder string
	var total, groups, rejects int
	err = store.db.QueryRow("SELECT folder, total_images, total_groups, total_rejects FROM scan_history LIMIT 1").Scan(&folder, &total, &groups, &rejects)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	if folder != "/path/to/folder" {
		t.Errorf("folder = %q, want /path/to/folder", folder)
	}
	if total != 100 || groups != 10 || rejects != 25 {
		t.Errorf("stats = (%d, %d, %d), want (100, 10, 25)", total, groups, rejects)
	}
}

func TestScanHistory(t *testing.T) {
	store := newTestStorage(t)

	for i, run := range []string{"first", "second", "third"} {
		if err := store.RecordScan(ScanRecord{RunID: run, Folder: "/p", TotalImages: i, Duration: time.Second}); err != nil {
			t.Fatal(err)
		}
	}

	records, err := store.ScanHistory(2)
	if err != nil {
		t.Fatalf("ScanHistory failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].RunID != "third" || records[1].RunID != "second" {
		t.Errorf("order = %s, %s", records[0].RunID, records[1].RunID)
	}
	if records[0].Duration != time.Second {
		t.Errorf("duration = %v, want 1s", records[0].Duration)
	}
	if records[0].ScannedAt.IsZero() {
		t.Error("scanned_at should be parsed")
	}
}

func TestMigrations(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewStorage(dbPath)
	if err != nil {
		t.Fatalf("NewStorage failed: %v", err)
	}

	if version := store.getSchemaVersion(); version != schemaVersion {
		t.Errorf("schema version = %d, want %d", version, schemaVersion)
	}
	if !store.columnExists("scan_history", "duration_ms") {
		t.Error("duration_ms column should exist in the base schema")
	}

	store.Close()

	// Reopen - should not fail
	store2, err := NewStorage(dbPath)
	if err != nil {
		t.Fatalf("second NewStorage failed: %v", err)
	}
	defer store2.Close()

	if version := store2.getSchemaVersion(); version != schemaVersion {
		t.Errorf("schema version after reopen = %d, want %d", version, schemaVersion)
	}
}

func TestSetSchemaVersion_ReportsErrors(t *testing.T) {
	store := newTestStorage(t)

	if err := store.setSchemaVersion(schemaVersion); err != nil {
		t.Fatalf("setSchemaVersion failed: %v", err)
	}

	store.db.Close()
	if err := store.setSchemaVersion(schemaVersion + 1); err == nil {
		t.Error("setSchemaVersion on a closed database should fail")
	}
}
