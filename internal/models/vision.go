package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// NeutralScore substitutes for any sub-score the vision service did not return.
const NeutralScore = 5.0

// Score is a 0-10 sub-score reported by the vision service. Models sometimes
// quote numbers, so numeric strings are accepted too. Anything else decodes
// to NaN, which the accessors treat as a missing score.
type Score float64

func (s *Score) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(strings.Trim(strings.TrimSpace(string(data)), `"`))
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		v = math.NaN()
	}
	*s = Score(v)
	return nil
}

func (s Score) MarshalJSON() ([]byte, error) {
	v := float64(s)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// Bool is a flag reported by the vision service. Quoted and numeric forms are
// accepted; anything unrecognized decodes to false.
type Bool bool

func (b *Bool) UnmarshalJSON(data []byte) error {
	raw := strings.ToLower(strings.TrimSpace(strings.Trim(strings.TrimSpace(string(data)), `"`)))
	switch raw {
	case "true", "yes", "1":
		*b = true
	default:
		*b = false
	}
	return nil
}

// VisionAnalysis is the structured, partially untrusted result of the
// vision-analysis service. Any block or field may be missing; use the
// accessor methods, which substitute neutral defaults.
type VisionAnalysis struct {
	Keywords      []string           `json:"keywords,omitempty"`
	Analysis      *AnalysisNotes     `json:"analysis,omitempty"`
	Technical     *TechnicalScores   `json:"technical,omitempty"`
	ColorAnalysis *ColorAnalysis     `json:"color_analysis,omitempty"`
	Composition   *CompositionScores `json:"composition,omitempty"`
	Aesthetic     *AestheticScores   `json:"aesthetic,omitempty"`
}

type AnalysisNotes struct {
	Subject     string `json:"subject,omitempty"`
	Lighting    string `json:"lighting,omitempty"`
	Composition string `json:"composition,omitempty"`
	Technical   string `json:"technical,omitempty"`
}

type TechnicalScores struct {
	FocusScore    *Score `json:"focus_score,omitempty"`
	NoiseScore    *Score `json:"noise_score,omitempty"`
	ExposureScore *Score `json:"exposure_score,omitempty"`
	IsIntentional Bool   `json:"is_intentional"`
}

type ColorAnalysis struct {
	CastDetected   Bool   `json:"cast_detected"`
	CastColor      string `json:"cast_color,omitempty"`
	Confidence     *Score `json:"confidence,omitempty"`
	CorrectionHint string `json:"correction_hint,omitempty"`
}

type CompositionScores struct {
	Score        *Score `json:"score,omitempty"`
	CropIssue    Bool   `json:"crop_issue"`
	Distractions Bool   `json:"distractions"`
}

type AestheticScores struct {
	Score            *Score `json:"score,omitempty"`
	CommercialAppeal *Score `json:"commercial_appeal,omitempty"`
}

// HasTechnical reports whether the technical block was returned at all.
func (a *VisionAnalysis) HasTechnical() bool {
	return a != nil && a.Technical != nil
}

func (a *VisionAnalysis) FocusScore() float64 {
	if a == nil || a.Technical == nil {
		return NeutralScore
	}
	return scoreOrNeutral(a.Technical.FocusScore)
}

func (a *VisionAnalysis) NoiseScore() float64 {
	if a == nil || a.Technical == nil {
		return NeutralScore
	}
	return scoreOrNeutral(a.Technical.NoiseScore)
}

func (a *VisionAnalysis) ExposureScore() float64 {
	if a == nil || a.Technical == nil {
		return NeutralScore
	}
	return scoreOrNeutral(a.Technical.ExposureScore)
}

func (a *VisionAnalysis) IsIntentional() bool {
	return a != nil && a.Technical != nil && bool(a.Technical.IsIntentional)
}

func (a *VisionAnalysis) CompositionScore() float64 {
	if a == nil || a.Composition == nil {
		return NeutralScore
	}
	return scoreOrNeutral(a.Composition.Score)
}

func (a *VisionAnalysis) CropIssue() bool {
	return a != nil && a.Composition != nil && bool(a.Composition.CropIssue)
}

func (a *VisionAnalysis) AestheticScore() float64 {
	if a == nil || a.Aesthetic == nil {
		return NeutralScore
	}
	return scoreOrNeutral(a.Aesthetic.Score)
}

func (a *VisionAnalysis) CastDetected() bool {
	return a != nil && a.ColorAnalysis != nil && bool(a.ColorAnalysis.CastDetected)
}

func (a *VisionAnalysis) CastConfidence() float64 {
	if a == nil || a.ColorAnalysis == nil {
		return NeutralScore
	}
	return scoreOrNeutral(a.ColorAnalysis.Confidence)
}

// Notes returns the free-text notes, never nil.
func (a *VisionAnalysis) Notes() AnalysisNotes {
	if a == nil || a.Analysis == nil {
		return AnalysisNotes{}
	}
	return *a.Analysis
}

func scoreOrNeutral(s *Score) float64 {
	if s == nil {
		return NeutralScore
	}
	v := float64(*s)
	switch {
	case math.IsNaN(v):
		return NeutralScore
	case v < 0:
		return 0
	case v > 10:
		return 10
	}
	return v
}
