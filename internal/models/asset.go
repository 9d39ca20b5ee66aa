package models

import (
	"time"

	"github.com/google/uuid"
)

// RawAsset is the camera raw file of a bundle.
type RawAsset struct {
	Filename string
	Data     []byte
}

// PreviewAsset is the rendered companion image of a bundle.
type PreviewAsset struct {
	Filename    string
	ContentType string
	Data        []byte
}

// SidecarDocument is the generated XMP sidecar of a bundle.
type SidecarDocument struct {
	Filename string
	Content  []byte
}

// Artifacts holds one value per stored artifact kind.
type Artifacts struct {
	Raw     string `json:"raw"`
	Preview string `json:"preview"`
	Sidecar string `json:"sidecar"`
}

// AssetMeta is the metadata subset kept on the catalog record for fast listing.
type AssetMeta struct {
	ISO      string `json:"iso"`
	Aperture string `json:"aperture"`
	Shutter  string `json:"shutter"`
	Lens     string `json:"lens"`
	Camera   string `json:"camera"`
}

// AssetBundle is the catalog record written once per ingested filename.
type AssetBundle struct {
	ID          uuid.UUID       `json:"id"`
	Filename    string          `json:"filename"`
	CaptureDate time.Time       `json:"captureDate"`
	FolderDate  string          `json:"folderDate"`
	Meta        AssetMeta       `json:"meta"`
	Verdict     Verdict         `json:"verdict"`
	Paths       Artifacts       `json:"paths"`
	URLs        Artifacts       `json:"urls"`
	AIAnalysis  *VisionAnalysis `json:"aiAnalysis"`
	UploadedAt  time.Time       `json:"uploadedAt"`
}

// MetaFrom builds the listing subset from a full metadata record.
func MetaFrom(rec MetadataRecord) AssetMeta {
	return AssetMeta{
		ISO:      rec.ISO,
		Aperture: rec.Aperture,
		Shutter:  rec.Shutter,
		Lens:     rec.Lens,
		Camera:   rec.Camera,
	}
}
