package metadata_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumina-backend/internal/metadata"
	"lumina-backend/internal/models"
	"lumina-backend/internal/test/fixtures"
)

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

var ingestTime = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

func TestResolveLens(t *testing.T) {
	tests := []struct {
		name        string
		lensModel   *string
		focalLength *string
		maxAperture *string
		want        string
	}{
		{"explicit lens tag wins", strPtr("85mm f/1.4"), strPtr("85mm"), strPtr("1.4"), "85mm f/1.4"},
		{"synthesized from focal length and aperture", nil, strPtr("50mm"), strPtr("1.8"), "50mm f/1.8"},
		{"aperture rounded to one decimal", nil, strPtr("35mm"), strPtr("1.83"), "35mm f/1.8"},
		{"aperture with f prefix", nil, strPtr("24mm"), strPtr("f/2.80"), "24mm f/2.8"},
		{"unparseable aperture falls back to focal length", nil, strPtr("50mm"), strPtr("wide"), "50mm"},
		{"focal length alone", nil, strPtr("105mm"), nil, "105mm"},
		{"blank lens tag ignored", strPtr("  "), strPtr("50mm"), nil, "50mm"},
		{"nothing present", nil, nil, nil, "Unknown Lens"},
		{"aperture without focal length", nil, nil, strPtr("1.8"), "Unknown Lens"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, metadata.ResolveLens(tt.lensModel, tt.focalLength, tt.maxAperture))
		})
	}
}

func TestParseCaptureTime(t *testing.T) {
	got, err := metadata.ParseCaptureTime("2026:01:10 14:30:05")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 10, 14, 30, 5, 0, time.UTC), got)

	for _, bad := range []string{"", "2026:01:10", "0000:00:00 00:00:00", "yesterday at noon"} {
		_, err := metadata.ParseCaptureTime(bad)
		assert.Error(t, err, bad)
	}
}

func TestResolveDefaults(t *testing.T) {
	rec := metadata.Resolve(metadata.TagSet{}, ingestTime)

	assert.Equal(t, "Unknown", rec.Camera)
	assert.Equal(t, "Unknown Lens", rec.Lens)
	assert.Equal(t, "--", rec.ISO)
	assert.Equal(t, "--", rec.Aperture)
	assert.Equal(t, "--", rec.Shutter)
	assert.Equal(t, "Normal", rec.ExposureProgram)
	assert.Equal(t, "Pattern", rec.MeteringMode)
	assert.Equal(t, "Auto", rec.WhiteBalance)
	assert.Equal(t, "--", rec.FocusDistance)
	assert.Equal(t, 1, rec.Orientation)
	assert.Equal(t, models.ColorSpaceUncalibrated, rec.ColorSpace)
	assert.Equal(t, ingestTime, rec.CaptureTime)
	assert.Equal(t, models.CaptureTimeFromIngest, rec.CaptureTimeSource)
}

func TestResolvePresentTags(t *testing.T) {
	rec := metadata.Resolve(metadata.TagSet{
		Model:            strPtr("NIKON Z 6_2"),
		FocalLength:      strPtr("50mm"),
		MaxAperture:      strPtr("1.8"),
		ISO:              strPtr("400"),
		FNumber:          strPtr("f/2.8"),
		ExposureTime:     strPtr("1/250"),
		DateTimeOriginal: strPtr("2026:01:10 14:30:00"),
		ExposureProgram:  strPtr("Manual"),
		MeteringMode:     strPtr("Spot"),
		WhiteBalance:     strPtr("Manual"),
		SubjectDistance:  strPtr("1.5 m"),
		Orientation:      intPtr(6),
		ColorSpace:       intPtr(1),
	}, ingestTime)

	assert.Equal(t, "NIKON Z 6_2", rec.Camera)
	assert.Equal(t, "50mm f/1.8", rec.Lens)
	assert.Equal(t, "400", rec.ISO)
	assert.Equal(t, "f/2.8", rec.Aperture)
	assert.Equal(t, "1/250", rec.Shutter)
	assert.Equal(t, "Manual", rec.ExposureProgram)
	assert.Equal(t, "Spot", rec.MeteringMode)
	assert.Equal(t, "Manual", rec.WhiteBalance)
	assert.Equal(t, "1.5 m", rec.FocusDistance)
	assert.Equal(t, 6, rec.Orientation)
	assert.Equal(t, 1, rec.ColorSpace)
	assert.Equal(t, time.Date(2026, 1, 10, 14, 30, 0, 0, time.UTC), rec.CaptureTime)
	assert.Equal(t, models.CaptureTimeFromExif, rec.CaptureTimeSource)
}

func TestResolveInvalidTimestampFallsBackToIngestTime(t *testing.T) {
	rec := metadata.Resolve(metadata.TagSet{DateTimeOriginal: strPtr("    :  :     :  :  ")}, ingestTime)
	assert.Equal(t, ingestTime, rec.CaptureTime)
	assert.Equal(t, models.CaptureTimeFromIngest, rec.CaptureTimeSource)
}

func TestExtractRejectsUnreadableContainer(t *testing.T) {
	_, err := metadata.Extract([]byte("definitely not a raw file"), ingestTime)
	assert.ErrorIs(t, err, metadata.ErrUnsupportedContainer)

	_, err = metadata.Extract(nil, ingestTime)
	assert.ErrorIs(t, err, metadata.ErrUnsupportedContainer)
}

func TestExtractFromTIFFContainer(t *testing.T) {
	raw := fixtures.Raw("NIKON Z 6_2", "2026:01:10 14:30:00")

	rec, err := metadata.Extract(raw, ingestTime)
	require.NoError(t, err)

	assert.Equal(t, "NIKON Z 6_2", rec.Camera)
	assert.Equal(t, "Unknown Lens", rec.Lens)
	assert.Equal(t, "--", rec.ISO)
	assert.Equal(t, time.Date(2026, 1, 10, 14, 30, 0, 0, time.UTC), rec.CaptureTime)
	assert.Equal(t, models.CaptureTimeFromExif, rec.CaptureTimeSource)
}

func TestExtractFromVendorContainers(t *testing.T) {
	tiff := fixtures.Raw("E-M1MarkIII", "2026:01:10 14:30:00")

	cases := map[string][]byte{
		"olympus orf":   fixtures.WithMagic(tiff, "IIRO"),
		"panasonic rw2": fixtures.WithMagic(tiff, "IIU\x00"),
		"fujifilm raf":  fixtures.RAF(fixtures.EXIFJPEG(tiff)),
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			rec, err := metadata.Extract(raw, ingestTime)
			require.NoError(t, err)
			assert.Equal(t, "E-M1MarkIII", rec.Camera)
			assert.Equal(t, time.Date(2026, 1, 10, 14, 30, 0, 0, time.UTC), rec.CaptureTime)
			assert.Equal(t, models.CaptureTimeFromExif, rec.CaptureTimeSource)
		})
	}
}

func TestExtractRejectsTruncatedRAF(t *testing.T) {
	raw := fixtures.RAF(fixtures.EXIFJPEG(fixtures.Raw("X-T5", "2026:01:10 14:30:00")))

	_, err := metadata.Extract(raw[:60], ingestTime)
	assert.ErrorIs(t, err, metadata.ErrUnsupportedContainer)

	_, err = metadata.Extract(raw[:120], ingestTime)
	assert.ErrorIs(t, err, metadata.ErrUnsupportedContainer)
}
