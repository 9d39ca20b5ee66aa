package services

import "errors"

var (
	// ErrDuplicateAsset ends a bundle as skipped; nothing was written.
	ErrDuplicateAsset = errors.New("duplicate asset")
	// ErrCatalogLookup means the duplicate guard could not query the catalog.
	ErrCatalogLookup      = errors.New("catalog lookup failed")
	ErrMetadataExtraction = errors.New("metadata extraction failed")
	// ErrVisionAnalysis is recoverable; the bundle continues without a verdict.
	ErrVisionAnalysis = errors.New("vision analysis failed")
	ErrUpload         = errors.New("upload failed")
	ErrCatalogCommit  = errors.New("catalog commit failed")
)
