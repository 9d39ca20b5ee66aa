// Package sidecar renders the XMP sidecar written next to each raw file.
//
// Attributes are written in a fixed order: identical inputs always yield
// identical bytes.
package sidecar

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"lumina-backend/internal/layout"
	"lumina-backend/internal/models"
)

// CreatorTool is written to xmp:CreatorTool.
const CreatorTool = "Lumina Pipeline"

const xmpDateLayout = "2006-01-02T15:04:05"

var namespaces = []struct{ prefix, uri string }{
	{"xmp", "http://ns.adobe.com/xap/1.0/"},
	{"xmpDM", "http://ns.adobe.com/xmp/1.0/DynamicMedia/"},
	{"dc", "http://purl.org/dc/elements/1.1/"},
	{"tiff", "http://ns.adobe.com/tiff/1.0/"},
	{"exif", "http://ns.adobe.com/exif/1.0/"},
	{"aux", "http://ns.adobe.com/exif/1.0/aux/"},
	{"photoshop", "http://ns.adobe.com/photoshop/1.0/"},
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "\n", "&#xA;", "\r", "&#xD;", "\t", "&#x9;")
)

type attr struct{ name, value string }

// Generate builds the sidecar document for rawFilename. analysis may be nil.
func Generate(rawFilename string, rec models.MetadataRecord, v models.Verdict, analysis *models.VisionAnalysis) models.SidecarDocument {
	report := Report(rec, v, analysis)

	attrs := []attr{
		{"xmp:Rating", strconv.Itoa(clampRating(v.Rating))},
	}
	if label := Label(v.Flag); label != "" {
		attrs = append(attrs, attr{"xmp:Label", label})
	}
	if pick, ok := PickMarker(v.Flag); ok {
		attrs = append(attrs, attr{"xmpDM:pick", strconv.Itoa(pick)})
	}
	attrs = append(attrs,
		attr{"xmp:CreatorTool", CreatorTool},
		attr{"tiff:Model", rec.Camera},
		attr{"tiff:Orientation", strconv.Itoa(rec.Orientation)},
		attr{"aux:Lens", rec.Lens},
	)
	if fnum := CleanAperture(rec.Aperture); fnum != "" {
		attrs = append(attrs, attr{"exif:FNumber", fnum})
	}
	if rec.Shutter != "" && rec.Shutter != models.DefaultExposureValue {
		attrs = append(attrs, attr{"exif:ExposureTime", rec.Shutter})
	}
	if dist := CleanNumeric(rec.FocusDistance); dist != "" {
		attrs = append(attrs, attr{"exif:SubjectDistance", dist})
	}
	attrs = append(attrs, attr{"exif:ColorSpace", strconv.Itoa(rec.ColorSpace)})
	// ingest time is not a capture date
	if rec.CaptureTimeSource != models.CaptureTimeFromIngest {
		captured := rec.CaptureTime.Format(xmpDateLayout)
		attrs = append(attrs,
			attr{"exif:DateTimeOriginal", captured},
			attr{"photoshop:DateCreated", captured},
		)
	}

	var b strings.Builder
	b.WriteString("<?xpacket begin=\"\uFEFF\" id=\"W5M0MpCehiHzreSzNTczkc9d\"?>\n")
	b.WriteString("<x:xmpmeta xmlns:x=\"adobe:ns:meta/\" x:xmptk=\"" + CreatorTool + "\">\n")
	b.WriteString(" <rdf:RDF xmlns:rdf=\"http://www.w3.org/1999/02/22-rdf-syntax-ns#\">\n")
	b.WriteString("  <rdf:Description rdf:about=\"\"")
	for _, ns := range namespaces {
		fmt.Fprintf(&b, "\n    xmlns:%s=\"%s\"", ns.prefix, ns.uri)
	}
	for _, a := range attrs {
		fmt.Fprintf(&b, "\n    %s=\"%s\"", a.name, attrEscaper.Replace(sanitize(a.value)))
	}
	b.WriteString(">\n")

	if keywords := cleanKeywords(analysis); len(keywords) > 0 {
		writeContainer(&b, "dc:subject", "rdf:Bag", keywords)
	}
	writeLangAlt(&b, "dc:description", report)
	if rec.ISO != "" && rec.ISO != models.DefaultExposureValue {
		writeContainer(&b, "exif:ISOSpeedRatings", "rdf:Seq", []string{rec.ISO})
	}
	writeLangAlt(&b, "exif:UserComment", report)

	b.WriteString("  </rdf:Description>\n")
	b.WriteString(" </rdf:RDF>\n")
	b.WriteString("</x:xmpmeta>\n")
	b.WriteString("<?xpacket end=\"w\"?>")

	return models.SidecarDocument{
		Filename: layout.SidecarName(rawFilename),
		Content:  []byte(b.String()),
	}
}

// PickMarker maps a flag to the ternary pick value. ok is false when the
// marker should be omitted (review and none).
func PickMarker(flag models.Flag) (value int, ok bool) {
	switch flag {
	case models.FlagPick:
		return 1, true
	case models.FlagReject:
		return -1, true
	}
	return 0, false
}

// Label maps a flag to the color label understood by catalog tools.
func Label(flag models.Flag) string {
	switch flag {
	case models.FlagPick:
		return "Green"
	case models.FlagReview:
		return "Yellow"
	case models.FlagReject:
		return "Red"
	}
	return ""
}

// CleanAperture strips a leading "f/" from aperture text. The "--" default
// yields an empty string.
func CleanAperture(aperture string) string {
	aperture = strings.TrimSpace(aperture)
	if aperture == models.DefaultExposureValue {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(aperture, "f/"))
}

// CleanNumeric keeps only the digits and decimal points of s.
func CleanNumeric(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, s)
}

// Report builds the human-readable multi-line summary embedded in the sidecar.
func Report(rec models.MetadataRecord, v models.Verdict, analysis *models.VisionAnalysis) string {
	lines := []string{
		fmt.Sprintf("Verdict: %s | Score %.1f/10 | Rating %d/5", strings.ToUpper(string(v.Flag)), v.Score, v.Rating),
	}
	if analysis == nil {
		lines = append(lines, "Vision analysis unavailable")
	} else {
		lines = append(lines, fmt.Sprintf("Technical: Focus %s | Noise %s | Exposure %s | Composition %s | Aesthetic %s",
			formatScore(analysis.FocusScore()),
			formatScore(analysis.NoiseScore()),
			formatScore(analysis.ExposureScore()),
			formatScore(analysis.CompositionScore()),
			formatScore(analysis.AestheticScore()),
		))
	}
	lines = append(lines, fmt.Sprintf("Exposure: %s | Metering %s | White balance %s", rec.ExposureProgram, rec.MeteringMode, rec.WhiteBalance))

	if analysis.CastDetected() {
		cast := analysis.ColorAnalysis
		color := strings.TrimSpace(cast.CastColor)
		if color == "" {
			color = "unknown"
		}
		line := fmt.Sprintf("Color cast: %s (confidence %s/10)", color, formatScore(analysis.CastConfidence()))
		if hint := strings.TrimSpace(cast.CorrectionHint); hint != "" {
			line += " - " + hint
		}
		lines = append(lines, line)
	}

	notes := analysis.Notes()
	for _, n := range []struct{ label, text string }{
		{"Subject", notes.Subject},
		{"Lighting", notes.Lighting},
		{"Composition", notes.Composition},
		{"Technical notes", notes.Technical},
	} {
		if text := strings.TrimSpace(n.text); text != "" {
			lines = append(lines, n.label+": "+text)
		}
	}
	return strings.Join(lines, "\n")
}

func writeContainer(b *strings.Builder, property, container string, items []string) {
	fmt.Fprintf(b, "   <%s>\n    <%s>\n", property, container)
	for _, item := range items {
		fmt.Fprintf(b, "     <rdf:li>%s</rdf:li>\n", textEscaper.Replace(sanitize(item)))
	}
	fmt.Fprintf(b, "    </%s>\n   </%s>\n", container, property)
}

func writeLangAlt(b *strings.Builder, property, text string) {
	fmt.Fprintf(b, "   <%s>\n    <rdf:Alt>\n", property)
	fmt.Fprintf(b, "     <rdf:li xml:lang=\"x-default\">%s</rdf:li>\n", textEscaper.Replace(sanitize(text)))
	fmt.Fprintf(b, "    </rdf:Alt>\n   </%s>\n", property)
}

func cleanKeywords(analysis *models.VisionAnalysis) []string {
	if analysis == nil {
		return nil
	}
	out := make([]string, 0, len(analysis.Keywords))
	for _, kw := range analysis.Keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// sanitize drops characters that are not allowed in XML 1.0 text.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if r == unicode.ReplacementChar || unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func clampRating(r int) int {
	if r < 0 {
		return 0
	}
	if r > 5 {
		return 5
	}
	return r
}
