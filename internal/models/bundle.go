package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// BundleState is a step of the per-bundle ingestion state machine.
type BundleState string

const (
	StateQueued           BundleState = "queued"
	StateDuplicateChecked BundleState = "duplicate_checked"
	StateExtracted        BundleState = "extracted"
	StatePathPlanned      BundleState = "path_planned"
	StateAnalyzed         BundleState = "analyzed"
	StateVerdicted        BundleState = "verdicted"
	StateSidecarBuilt     BundleState = "sidecar_built"
	StateUploading        BundleState = "uploading"
	StateCommitted        BundleState = "committed"
	StateSkipped          BundleState = "skipped"
	StateFailed           BundleState = "failed"
)

// Terminal reports whether no further transition follows s.
func (s BundleState) Terminal() bool {
	return s == StateCommitted || s == StateSkipped || s == StateFailed
}

// Catalog errors shared by every catalog backend.
var (
	ErrAssetExists   = errors.New("asset already cataloged")
	ErrAssetNotFound = errors.New("asset not found")
)

// BundleInput is one raw file and its preview, ready for ingestion.
type BundleInput struct {
	Raw     RawAsset
	Preview PreviewAsset
}

// ProgressEvent is one line of the progress narration of a bundle.
type ProgressEvent struct {
	BundleID uuid.UUID   `json:"bundle_id"`
	Filename string      `json:"filename"`
	State    BundleState `json:"state"`
	Level    string      `json:"level"`
	Message  string      `json:"message"`
	Time     time.Time   `json:"time"`
}
