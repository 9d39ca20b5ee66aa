// Package metadata reads embedded capture tags from raw camera files.
package metadata

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"lumina-backend/internal/models"
)

// ErrUnsupportedContainer means the raw bytes are not a readable EXIF/TIFF container.
var ErrUnsupportedContainer = errors.New("unsupported raw container")

var exposurePrograms = map[int]string{
	0: "Undefined",
	1: "Manual",
	2: "Normal program",
	3: "Aperture priority",
	4: "Shutter priority",
	5: "Creative program",
	6: "Action program",
	7: "Portrait mode",
	8: "Landscape mode",
}

var meteringModes = map[int]string{
	0:   "Unknown",
	1:   "Average",
	2:   "CenterWeightedAverage",
	3:   "Spot",
	4:   "MultiSpot",
	5:   "Pattern",
	6:   "Partial",
	255: "Other",
}

var whiteBalances = map[int]string{
	0: "Auto",
	1: "Manual",
}

// Extract decodes raw and resolves its tags into a MetadataRecord. Raw
// formats built on TIFF (NEF, CR2, ARW, DNG, ORF, RW2), Fujifilm RAF and
// JPEG/EXIF are accepted.
func Extract(raw []byte, now time.Time) (models.MetadataRecord, error) {
	tags, err := Decode(raw)
	if err != nil {
		return models.MetadataRecord{}, err
	}
	return Resolve(tags, now), nil
}

// Decode reads the embedded tags of raw into a TagSet.
func Decode(raw []byte) (TagSet, error) {
	if len(raw) == 0 {
		return TagSet{}, fmt.Errorf("%w: empty file", ErrUnsupportedContainer)
	}
	r, err := containerReader(raw)
	if err != nil {
		return TagSet{}, err
	}
	x, err := exif.Decode(r)
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return TagSet{}, fmt.Errorf("%w: %v", ErrUnsupportedContainer, err)
	}

	tags := TagSet{
		Model:           stringTag(x, exif.Model),
		LensModel:       stringTag(x, exif.LensModel),
		FocalLength:     describeRat(x, exif.FocalLength, describeFocalLength),
		MaxAperture:     describeRat(x, exif.MaxApertureValue, describeMaxAperture),
		FNumber:         describeRat(x, exif.FNumber, describeFNumber),
		ExposureTime:    describeRat(x, exif.ExposureTime, describeExposureTime),
		SubjectDistance: describeRat(x, exif.SubjectDistance, describeDistance),
		ExposureProgram: describeCode(x, exif.ExposureProgram, exposurePrograms),
		MeteringMode:    describeCode(x, exif.MeteringMode, meteringModes),
		WhiteBalance:    describeCode(x, exif.WhiteBalance, whiteBalances),
		Orientation:     intTag(x, exif.Orientation),
		ColorSpace:      intTag(x, exif.ColorSpace),
	}
	if iso := intTag(x, exif.ISOSpeedRatings); iso != nil {
		s := strconv.Itoa(*iso)
		tags.ISO = &s
	}
	tags.DateTimeOriginal = stringTag(x, exif.DateTimeOriginal)
	if tags.DateTimeOriginal == nil {
		tags.DateTimeOriginal = stringTag(x, exif.DateTime)
	}
	return tags, nil
}

func stringTag(x *exif.Exif, name exif.FieldName) *string {
	tag, err := x.Get(name)
	if err != nil || tag.Format() != tiff.StringVal {
		return nil
	}
	s, err := tag.StringVal()
	if err != nil {
		return nil
	}
	s = strings.TrimSpace(strings.TrimRight(s, "\x00"))
	if s == "" {
		return nil
	}
	return &s
}

func intTag(x *exif.Exif, name exif.FieldName) *int {
	tag, err := x.Get(name)
	if err != nil || tag.Format() != tiff.IntVal || tag.Count == 0 {
		return nil
	}
	v, err := tag.Int(0)
	if err != nil {
		return nil
	}
	return &v
}

func describeCode(x *exif.Exif, name exif.FieldName, names map[int]string) *string {
	code := intTag(x, name)
	if code == nil {
		return nil
	}
	desc, ok := names[*code]
	if !ok {
		return nil
	}
	return &desc
}

func describeRat(x *exif.Exif, name exif.FieldName, describe func(float64) string) *string {
	tag, err := x.Get(name)
	if err != nil || tag.Format() != tiff.RatVal || tag.Count == 0 {
		return nil
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return nil
	}
	v := float64(num) / float64(den)
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return nil
	}
	desc := describe(v)
	if desc == "" {
		return nil
	}
	return &desc
}

func describeFocalLength(mm float64) string {
	return formatDecimal(mm, 1) + "mm"
}

// describeMaxAperture converts an APEX aperture value into an f-number.
func describeMaxAperture(apex float64) string {
	return formatDecimal(math.Pow(2, apex/2), 2)
}

func describeFNumber(f float64) string {
	return "f/" + formatDecimal(f, 1)
}

func describeExposureTime(seconds float64) string {
	if seconds == 0 {
		return ""
	}
	if seconds >= 1 {
		return formatDecimal(seconds, 1)
	}
	return "1/" + strconv.FormatFloat(math.Round(1/seconds), 'f', -1, 64)
}

func describeDistance(m float64) string {
	return formatDecimal(m, 2) + " m"
}

func formatDecimal(v float64, places int) string {
	p := math.Pow(10, float64(places))
	return strconv.FormatFloat(math.Round(v*p)/p, 'f', -1, 64)
}
