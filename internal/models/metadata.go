package models

import "time"

// Capture time sources recorded on a MetadataRecord.
const (
	CaptureTimeFromExif   = "exif"
	CaptureTimeFromIngest = "ingest"
)

// Default values applied when a source tag is absent.
const (
	DefaultCamera          = "Unknown"
	DefaultLens            = "Unknown Lens"
	DefaultExposureValue   = "--"
	DefaultExposureProgram = "Normal"
	DefaultMeteringMode    = "Pattern"
	DefaultWhiteBalance    = "Auto"
	DefaultFocusDistance   = "--"
	DefaultOrientation     = 1
	ColorSpaceUncalibrated = 65535
)

// MetadataRecord is the canonical capture metadata of one raw file.
type MetadataRecord struct {
	Camera            string    `json:"camera"`
	Lens              string    `json:"lens"`
	ISO               string    `json:"iso"`
	Aperture          string    `json:"aperture"`
	Shutter           string    `json:"shutter"`
	CaptureTime       time.Time `json:"captureTime"`
	CaptureTimeSource string    `json:"captureTimeSource"`
	ExposureProgram   string    `json:"exposureProgram"`
	MeteringMode      string    `json:"meteringMode"`
	WhiteBalance      string    `json:"whiteBalance"`
	FocusDistance     string    `json:"focusDistance"`
	Orientation       int       `json:"orientation"`
	ColorSpace        int       `json:"colorSpace"`
}
