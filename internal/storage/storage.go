package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"burstpick/internal/models"
)

// ErrNoSession is returned by LoadSession before the first scan
var ErrNoSession = errors.New("no saved session, run scan first")

// Storage persists the last session and the scan history
type Storage struct {
	db     *sql.DB
	dbPath string
}

// NewStorage opens (or creates) the database at dbPath
func NewStorage(dbPath string) (*Storage, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Storage{db: db, dbPath: dbPath}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Current schema version
const schemaVersion = 1

// migrations defines all schema migrations
// Each migration should be idempotent (safe to run multiple times)
var migrations = []struct {
	version     int
	description string
	column      [2]string // table and column added, to detect a partial upgrade
	up          string
}{
	{
		version:     1,
		description: "Initial schema",
		up:          "", // Handled by base schema creation
	},
}

// init creates the database schema
func (s *Storage) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS session (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		folder TEXT NOT NULL,
		run_id TEXT NOT NULL,
		scan_time INTEGER NOT NULL,
		time_threshold REAL NOT NULL,
		similarity_threshold REAL NOT NULL,
		min_group_size INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS images (
		position INTEGER NOT NULL,
		path TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		file_size INTEGER NOT NULL,
		mod_time INTEGER NOT NULL,
		hash INTEGER,
		width INTEGER,
		height INTEGER,
		score INTEGER NOT NULL,
		group_id INTEGER DEFAULT 0,
		is_leader INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_images_group_id ON images(group_id);

	CREATE TABLE IF NOT EXISTS bursts (
		id INTEGER PRIMARY KEY,
		leader_path TEXT NOT NULL,
		override_path TEXT DEFAULT '',
		collapsed INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS group_members (
		group_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		path TEXT NOT NULL,
		PRIMARY KEY (group_id, position)
	);

	CREATE TABLE IF NOT EXISTS scan_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		folder TEXT NOT NULL,
		scanned_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		total_images INTEGER NOT NULL,
		total_groups INTEGER NOT NULL,
		total_rejects INTEGER NOT NULL,
		duration_ms INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_scan_history_folder ON scan_history(folder);
	`

	if _, err = s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	if err := s.migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// migrate runs pending schema migrations
func (s *Storage) migrate() error {
	currentVersion := s.getSchemaVersion()

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		// The column may exist if a previous run died before recording the version
		alreadyApplied := m.up == "" || (m.column[0] != "" && s.columnExists(m.column[0], m.column[1]))
		if !alreadyApplied {
			if _, err := s.db.Exec(m.up); err != nil {
				return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.description, err)
			}
		}

		if err := s.setSchemaVersion(m.version); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.description, err)
		}
	}

	return nil
}

// getSchemaVersion returns the current schema version
func (s *Storage) getSchemaVersion() int {
	var version int
	err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0
	}
	return version
}

// setSchemaVersion records a migration as applied
func (s *Storage) setSchemaVersion(version int) error {
	if _, err := s.db.Exec(`INSERT OR REPLACE INTO schema_version (version) VALUES (?)`, version); err != nil {
		return fmt.Errorf("failed to record schema version %d: %w", version, err)
	}
	return nil
}

// columnExists checks if a column exists in a table
func (s *Storage) columnExists(table, column string) bool {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?
	`, table, column).Scan(&count)
	if err != nil {
		return false
	}
	return count > 0
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *Storage) Path() string {
	return s.dbPath
}

// SaveSession replaces the stored session with state
func (s *Storage) SaveSession(state *models.SessionState) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"session", "images", "bursts", "group_members"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO session (id, folder, run_id, scan_time, time_threshold, similarity_threshold, min_group_size)
		VALUES (1, ?, ?, ?, ?, ?, ?)
	`, state.Folder, state.RunID, state.ScanTime.UnixNano(),
		state.Settings.TimeThresholdSeconds, state.Settings.SimilarityThreshold, state.Settings.MinGroupSize)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	imgStmt, err := tx.Prepare(`
		INSERT INTO images (position, path, name, file_size, mod_time, hash, width, height, score, group_id, is_leader)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer imgStmt.Close()

	for i, img := range state.Images {
		// uint64 is stored as its int64 bit pattern
		var hash sql.NullInt64
		if img.Hash != nil {
			hash = sql.NullInt64{Int64: int64(*img.Hash), Valid: true}
		}
		var width, height sql.NullInt64
		if img.Dimensions != nil {
			width = sql.NullInt64{Int64: int64(img.Dimensions.Width), Valid: true}
			height = sql.NullInt64{Int64: int64(img.Dimensions.Height), Valid: true}
		}

		_, err := imgStmt.Exec(i, img.Path, img.Name, img.Size, img.ModTime.UnixNano(),
			hash, width, height, img.Score, img.GroupID, boolToInt(img.IsLeader))
		if err != nil {
			return fmt.Errorf("failed to insert image %s: %w", img.Path, err)
		}
	}

	groupStmt, err := tx.Prepare(`INSERT INTO bursts (id, leader_path, override_path, collapsed) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer groupStmt.Close()

	memberStmt, err := tx.Prepare(`INSERT INTO group_members (group_id, position, path) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer memberStmt.Close()

	for _, g := range state.Groups {
		if _, err := groupStmt.Exec(g.ID, g.LeaderPath, g.OverridePath, boolToInt(g.Collapsed)); err != nil {
			return fmt.Errorf("failed to insert group %d: %w", g.ID, err)
		}
		for pos, path := range g.Members {
			if _, err := memberStmt.Exec(g.ID, pos, path); err != nil {
				return fmt.Errorf("failed to insert member %s: %w", path, err)
			}
		}
	}

	return tx.Commit()
}

// LoadSession returns the stored session
func (s *Storage) LoadSession() (*models.SessionState, error) {
	state := &models.SessionState{}
	var scanTime int64
	err := s.db.QueryRow(`
		SELECT folder, run_id, scan_time, time_threshold, similarity_threshold, min_group_size
		FROM session WHERE id = 1
	`).Scan(&state.Folder, &state.RunID, &scanTime,
		&state.Settings.TimeThresholdSeconds, &state.Settings.SimilarityThreshold, &state.Settings.MinGroupSize)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	state.ScanTime = time.Unix(0, scanTime)

	if state.Images, err = s.loadImages(); err != nil {
		return nil, err
	}
	if state.Groups, err = s.loadGroups(); err != nil {
		return nil, err
	}

	return state, nil
}

func (s *Storage) loadImages() ([]*models.Image, error) {
	rows, err := s.db.Query(`
		SELECT path, name, file_size, mod_time, hash, width, height, score, group_id, is_leader
		FROM images
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query images: %w", err)
	}
	defer rows.Close()

	var images []*models.Image
	for rows.Next() {
		img := &models.Image{}
		var modTime int64
		var hash, width, height sql.NullInt64
		var isLeader int
		err := rows.Scan(
			&img.Path,
			&img.Name,
			&img.Size,
			&modTime,
			&hash,
			&width,
			&height,
			&img.Score,
			&img.GroupID,
			&isLeader,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		img.ModTime = time.Unix(0, modTime)
		if hash.Valid {
			h := uint64(hash.Int64)
			img.Hash = &h
		}
		if width.Valid && height.Valid {
			img.Dimensions = &models.Dimensions{Width: int(width.Int64), Height: int(height.Int64)}
		}
		img.IsLeader = isLeader == 1
		images = append(images, img)
	}

	return images, rows.Err()
}

func (s *Storage) loadGroups() ([]*models.Group, error) {
	rows, err := s.db.Query(`
		SELECT g.id, g.leader_path, g.override_path, g.collapsed, m.path
		FROM bursts g
		JOIN group_members m ON m.group_id = g.id
		ORDER BY g.id, m.position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	var current *models.Group
	for rows.Next() {
		var (
			id        int
			leader    string
			override  string
			collapsed int
			path      string
		)
		if err := rows.Scan(&id, &leader, &override, &collapsed, &path); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if current == nil || current.ID != id {
			current = &models.Group{
				ID:           id,
				LeaderPath:   leader,
				OverridePath: override,
				Collapsed:    collapsed == 1,
			}
			groups = append(groups, current)
		}
		current.Members = append(current.Members, path)
	}

	return groups, rows.Err()
}

// ScanRecord is one entry of the scan history
type ScanRecord struct {
	RunID        string
	Folder       string
	ScannedAt    time.Time
	TotalImages  int
	TotalGroups  int
	TotalRejects int
	Duration     time.Duration
}

// RecordScan records a scan in history
func (s *Storage) RecordScan(rec ScanRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO scan_history (run_id, folder, total_images, total_groups, total_rejects, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.RunID, rec.Folder, rec.TotalImages, rec.TotalGroups, rec.TotalRejects, rec.Duration.Milliseconds())
	return err
}

// ScanHistory returns the most recent scans, newest first
func (s *Storage) ScanHistory(limit int) ([]ScanRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(`
		SELECT run_id, folder, scanned_at, total_images, total_groups, total_rejects, duration_ms
		FROM scan_history
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan history: %w", err)
	}
	defer rows.Close()

	var records []ScanRecord
	for rows.Next() {
		var rec ScanRecord
		var scannedAt string
		var durationMs int64
		if err := rows.Scan(&rec.RunID, &rec.Folder, &scannedAt, &rec.TotalImages, &rec.TotalGroups, &rec.TotalRejects, &durationMs); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		rec.ScannedAt = parseTimestamp(scannedAt)
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		records = append(records, rec)
	}

	return records, rows.Err()
}

// GetGroupCount returns the number of stored groups
func (s *Storage) GetGroupCount() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM bursts").Scan(&count)
	return count, err
}

// parseTimestamp reads CURRENT_TIMESTAMP values, which the driver may hand
// back in either layout
func parseTimestamp(v string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339Nano} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
