package quality

import (
	"testing"

	"burstpick/internal/models"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		size     int64
		dims     *models.Dimensions
		expected int
	}{
		{
			name:     "nothing known",
			file:     "IMG_0001.jpg",
			size:     0,
			dims:     nil,
			expected: 30,
		},
		{
			name:     "full marks",
			file:     "IMG_0001.jpg",
			size:     12 * bytesPerMB,
			dims:     &models.Dimensions{Width: 6000, Height: 4000},
			expected: 100,
		},
		{
			name:     "half resolution half size",
			file:     "IMG_0002.jpg",
			size:     5 * bytesPerMB,
			dims:     &models.Dimensions{Width: 4000, Height: 3000},
			expected: 20 + 15 + 30,
		},
		{
			name:     "edited copy",
			file:     "IMG_0003-Edit.jpg",
			size:     10 * bytesPerMB,
			dims:     &models.Dimensions{Width: 6000, Height: 4000},
			expected: 40 + 30 + 10,
		},
		{
			name:     "numbered duplicate",
			file:     "photo (1).png",
			size:     0,
			dims:     nil,
			expected: 10,
		},
		{
			name:     "rounding",
			file:     "a.jpg",
			size:     1 * bytesPerMB,
			dims:     &models.Dimensions{Width: 1920, Height: 1080},
			expected: 36, // 3.456 + 3 + 30 = 36.456
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.file, tt.size, tt.dims)
			if got != tt.expected {
				t.Errorf("Score(%q, %d, %v) = %d, want %d", tt.file, tt.size, tt.dims, got, tt.expected)
			}
		})
	}
}

func TestScore_Bounds(t *testing.T) {
	sizes := []int64{-1, 0, 1, bytesPerMB, 100 * bytesPerMB}
	dims := []*models.Dimensions{nil, {Width: 1, Height: 1}, {Width: 100000, Height: 100000}}
	names := []string{"a.jpg", "COPY.JPG", ""}

	for _, size := range sizes {
		for _, d := range dims {
			for _, n := range names {
				got := Score(n, size, d)
				if got < 0 || got > MaxScore {
					t.Errorf("Score(%q, %d, %v) = %d out of [0,%d]", n, size, d, got, MaxScore)
				}
			}
		}
	}
}

func TestLooksLikeCopy(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{"IMG_1234.JPG", false},
		{"IMG_1234_edit.jpg", true},
		{"Copy of IMG.jpg", true},
		{"duplicate-shot.png", true},
		{"beach (2).jpg", true},
		{"beach (3).jpg", false},
		{"Edited.HEIC", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LooksLikeCopy(tt.name); got != tt.expected {
				t.Errorf("LooksLikeCopy(%q) = %v, want %v", tt.name, got, tt.expected)
			}
		})
	}
}
