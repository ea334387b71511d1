// Package metadata reads the EXIF details shown next to a photo.
package metadata

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"burstpick/internal/hash"
	"burstpick/internal/models"
)

// Metadata describes one photo. EXIF fields are zero when absent.
type Metadata struct {
	Path       string             `json:"path"`
	Name       string             `json:"name"`
	Size       int64              `json:"size"`
	ModTime    time.Time          `json:"mod_time"`
	Dimensions *models.Dimensions `json:"dimensions,omitempty"`

	HasExif     bool       `json:"has_exif"`
	Make        string     `json:"make,omitempty"`
	Model       string     `json:"model,omitempty"`
	Lens        string     `json:"lens,omitempty"`
	Exposure    string     `json:"exposure,omitempty"` // e.g. "1/250"
	FNumber     float64    `json:"f_number,omitempty"`
	ISO         int        `json:"iso,omitempty"`
	FocalLength float64    `json:"focal_length,omitempty"` // mm
	TakenAt     *time.Time `json:"taken_at,omitempty"`
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
}

// Camera returns make and model joined, without repeating the make
func (m *Metadata) Camera() string {
	if m.Make == "" || strings.HasPrefix(strings.ToLower(m.Model), strings.ToLower(m.Make)) {
		return m.Model
	}
	if m.Model == "" {
		return m.Make
	}
	return m.Make + " " + m.Model
}

// Read collects file facts and EXIF data for path. Missing or broken EXIF
// is not an error.
func Read(path string) (*Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	m := &Metadata{
		Path:    path,
		Name:    filepath.Base(path),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}

	if dims, err := hash.NewHasher().Dimensions(path); err == nil {
		m.Dimensions = dims
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		// Normal for PNG, GIF and stripped files
		return m, nil
	}
	m.HasExif = true
	m.fill(x)

	return m, nil
}

func (m *Metadata) fill(x *exif.Exif) {
	m.Make = stringTag(x, exif.Make)
	m.Model = stringTag(x, exif.Model)
	m.Lens = stringTag(x, exif.LensModel)

	if tag, err := x.Get(exif.ExposureTime); err == nil {
		if num, den, err := tag.Rat2(0); err == nil && den != 0 {
			m.Exposure = formatExposure(num, den)
		}
	}
	m.FNumber = ratTag(x, exif.FNumber)
	m.FocalLength = ratTag(x, exif.FocalLength)

	if tag, err := x.Get(exif.ISOSpeedRatings); err == nil {
		if iso, err := tag.Int(0); err == nil {
			m.ISO = iso
		}
	}

	if taken, ok := takenAt(x); ok {
		m.TakenAt = &taken
	}

	if lat, long, err := x.LatLong(); err == nil {
		m.Latitude = &lat
		m.Longitude = &long
	}

	if m.Dimensions == nil {
		w, errW := intTag(x, exif.PixelXDimension)
		h, errH := intTag(x, exif.PixelYDimension)
		if errW == nil && errH == nil && w > 0 && h > 0 {
			m.Dimensions = &models.Dimensions{Width: w, Height: h}
		}
	}
}

// takenAt prefers DateTimeOriginal, then DateTimeDigitized, then DateTime
func takenAt(x *exif.Exif) (time.Time, bool) {
	for _, field := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTimeDigitized, exif.DateTime} {
		s := stringTag(x, field)
		if s == "" {
			continue
		}
		if t, err := time.ParseInLocation("2006:01:02 15:04:05", s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func stringTag(x *exif.Exif, field exif.FieldName) string {
	tag, err := x.Get(field)
	if err != nil || tag.Format() != tiff.StringVal {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func ratTag(x *exif.Exif, field exif.FieldName) float64 {
	tag, err := x.Get(field)
	if err != nil {
		return 0
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func intTag(x *exif.Exif, field exif.FieldName) (int, error) {
	tag, err := x.Get(field)
	if err != nil {
		return 0, err
	}
	return tag.Int(0)
}

// formatExposure renders 10/2500 as "1/250" and 2/1 as "2"
func formatExposure(num, den int64) string {
	if num <= 0 {
		return ""
	}
	if num >= den {
		secs := float64(num) / float64(den)
		return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.1f", secs), "0"), ".")
	}
	return fmt.Sprintf("1/%d", (den+num/2)/num)
}
