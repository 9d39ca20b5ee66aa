package metadata

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"lumina-backend/internal/models"
)

// TagSet holds the embedded tags the pipeline cares about. A nil field means
// the tag was absent or unreadable. String fields carry human-readable
// descriptions (e.g. "f/2.8", "1/250", "50mm").
type TagSet struct {
	Model            *string
	LensModel        *string
	FocalLength      *string
	MaxAperture      *string
	ISO              *string
	FNumber          *string
	ExposureTime     *string
	DateTimeOriginal *string
	ExposureProgram  *string
	MeteringMode     *string
	WhiteBalance     *string
	SubjectDistance  *string
	Orientation      *int
	ColorSpace       *int
}

const exifDateLayout = "2006-01-02 15:04:05"

// Resolve turns a TagSet into a MetadataRecord, applying one default per
// field. now is used as the capture time when no usable timestamp exists.
func Resolve(tags TagSet, now time.Time) models.MetadataRecord {
	rec := models.MetadataRecord{
		Camera:          valueOr(tags.Model, models.DefaultCamera),
		Lens:            ResolveLens(tags.LensModel, tags.FocalLength, tags.MaxAperture),
		ISO:             valueOr(tags.ISO, models.DefaultExposureValue),
		Aperture:        valueOr(tags.FNumber, models.DefaultExposureValue),
		Shutter:         valueOr(tags.ExposureTime, models.DefaultExposureValue),
		ExposureProgram: valueOr(tags.ExposureProgram, models.DefaultExposureProgram),
		MeteringMode:    valueOr(tags.MeteringMode, models.DefaultMeteringMode),
		WhiteBalance:    valueOr(tags.WhiteBalance, models.DefaultWhiteBalance),
		FocusDistance:   valueOr(tags.SubjectDistance, models.DefaultFocusDistance),
		Orientation:     models.DefaultOrientation,
		ColorSpace:      models.ColorSpaceUncalibrated,
	}
	if tags.Orientation != nil {
		rec.Orientation = *tags.Orientation
	}
	if tags.ColorSpace != nil {
		rec.ColorSpace = *tags.ColorSpace
	}

	rec.CaptureTime = now.UTC()
	rec.CaptureTimeSource = models.CaptureTimeFromIngest
	if tags.DateTimeOriginal != nil {
		if t, err := ParseCaptureTime(*tags.DateTimeOriginal); err == nil {
			rec.CaptureTime = t
			rec.CaptureTimeSource = models.CaptureTimeFromExif
		}
	}
	return rec
}

// ResolveLens picks the lens descriptor: the explicit lens name, else a
// synthesized "<focal> f/<max aperture>", else the focal length alone, else
// models.DefaultLens.
func ResolveLens(lensModel, focalLength, maxAperture *string) string {
	if v := nonEmpty(lensModel); v != "" {
		return v
	}
	focal := nonEmpty(focalLength)
	if focal != "" {
		if ap := nonEmpty(maxAperture); ap != "" {
			if f, err := strconv.ParseFloat(strings.TrimPrefix(ap, "f/"), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
				return fmt.Sprintf("%s f/%.1f", focal, f)
			}
		}
		return focal
	}
	return models.DefaultLens
}

// ParseCaptureTime parses an EXIF "YYYY:MM:DD HH:MM:SS" timestamp. The date
// colons are rewritten to hyphens first; the result is a UTC wall time.
func ParseCaptureTime(raw string) (time.Time, error) {
	raw = strings.TrimRight(strings.TrimSpace(raw), "\x00")
	date, clock, ok := strings.Cut(raw, " ")
	if !ok {
		return time.Time{}, fmt.Errorf("capture time %q: missing time part", raw)
	}
	date = strings.ReplaceAll(date, ":", "-")
	t, err := time.ParseInLocation(exifDateLayout, date+" "+strings.TrimSpace(clock), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("capture time %q: %w", raw, err)
	}
	return t, nil
}

func valueOr(v *string, fallback string) string {
	if s := nonEmpty(v); s != "" {
		return s
	}
	return fallback
}

func nonEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}
