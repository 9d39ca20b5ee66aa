// Package layout derives the date-partitioned storage paths of a bundle.
package layout

import (
	"path"
	"path/filepath"
	"strings"
	"time"

	"lumina-backend/internal/models"
)

const (
	Root              = "assets"
	RawKind           = "raw"
	PreviewKind       = "preview"
	SidecarKind       = "sidecar"
	SidecarExtension  = ".xmp"
	defaultPreviewExt = ".jpg"
)

// Plan returns the storage paths of the three artifacts of a bundle:
// assets/<YYYY>/<YYYY-MM-DD>/<kind>/<name>. All three share the raw
// filename's base.
func Plan(rawFilename, previewFilename string, captureDate time.Time) models.Artifacts {
	prefix := path.Join(Root, captureDate.Format("2006"), FolderDate(captureDate))
	raw := filepath.Base(rawFilename)
	base := BaseName(raw)

	previewExt := filepath.Ext(filepath.Base(previewFilename))
	if previewExt == "" {
		previewExt = defaultPreviewExt
	}

	return models.Artifacts{
		Raw:     path.Join(prefix, RawKind, raw),
		Preview: path.Join(prefix, PreviewKind, base+previewExt),
		Sidecar: path.Join(prefix, SidecarKind, SidecarName(raw)),
	}
}

// FolderDate formats the partition date of t as YYYY-MM-DD.
func FolderDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// BaseName strips the final extension from a filename.
func BaseName(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// SidecarName is the sidecar filename belonging to a raw filename.
func SidecarName(rawFilename string) string {
	return BaseName(filepath.Base(rawFilename)) + SidecarExtension
}
