package cmd

import (
	"path/filepath"
	"testing"

	"burstpick/internal/models"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}

	for _, tt := range tests {
		if got := formatSize(tt.bytes); got != tt.want {
			t.Errorf("formatSize(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestShortenPath(t *testing.T) {
	if got := shortenPath("short.jpg", 40); got != "short.jpg" {
		t.Errorf("short path changed: %q", got)
	}

	long := "/very/long/directory/name/that/goes/on/IMG_0001.jpg"
	got := shortenPath(long, 30)
	if len(got) > 30 {
		t.Errorf("shortenPath returned %d chars, want <= 30: %q", len(got), got)
	}
	if filepath.Base(got) != "IMG_0001.jpg" {
		t.Errorf("file name lost: %q", got)
	}
}

func TestFormatDimsAndHash(t *testing.T) {
	if got := formatDims(nil); got != "?x?" {
		t.Errorf("formatDims(nil) = %q", got)
	}
	if got := formatDims(&models.Dimensions{Width: 6000, Height: 4000}); got != "6000x4000" {
		t.Errorf("formatDims = %q", got)
	}

	if got := formatHash(nil); got != "none" {
		t.Errorf("formatHash(nil) = %q", got)
	}
	h := uint64(0xff)
	if got := formatHash(&h); got != "00000000000000ff" {
		t.Errorf("formatHash = %q", got)
	}
}

func testView() *models.GroupView {
	a := &models.Image{Path: "/shoot/a.jpg", Name: "a.jpg", Size: 100}
	b := &models.Image{Path: "/shoot/b.jpg", Name: "b.jpg", Size: 200}
	c := &models.Image{Path: "/shoot/c.jpg", Name: "c.jpg", Size: 400}
	return &models.GroupView{
		Group: &models.Group{
			ID:         1,
			Members:    []string{a.Path, b.Path, c.Path},
			LeaderPath: a.Path,
		},
		Images: []*models.Image{a, b, c},
	}
}

func TestReclaimableSize(t *testing.T) {
	v := testView()
	if got := reclaimableSize(v); got != 600 {
		t.Errorf("reclaimableSize = %d, want 600", got)
	}

	v.OverridePath = "/shoot/c.jpg"
	if got := reclaimableSize(v); got != 300 {
		t.Errorf("reclaimableSize with override = %d, want 300", got)
	}
}

func TestResolveMember(t *testing.T) {
	v := testView()

	tests := []struct {
		arg  string
		want string
	}{
		{"b.jpg", "/shoot/b.jpg"},
		{"/shoot/c.jpg", "/shoot/c.jpg"},
		{"missing.jpg", "missing.jpg"},
	}

	for _, tt := range tests {
		if got := resolveMember(v, tt.arg); got != tt.want {
			t.Errorf("resolveMember(%q) = %q, want %q", tt.arg, got, tt.want)
		}
	}
}
