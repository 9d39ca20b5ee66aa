// Package verdict reduces a vision analysis to a triage verdict.
package verdict

import (
	"math"

	"lumina-backend/internal/models"
)

const (
	pickThreshold       = 8.5
	strongReviewCutoff  = 7.0
	reviewThreshold     = 5.0
	hardRejectThreshold = 3.0

	focusGate         = 5.0
	cropIssueCap      = 6.0
	noiseFloor        = 3.0
	noisePenalty      = 0.5
	gateRejectScore   = 1.5
	weightFocus       = 2.0
	weightComposition = 1.5
	weightAesthetic   = 1.5
	weightExposure    = 1.0
	weightTotal       = weightFocus + weightComposition + weightAesthetic + weightExposure
)

// Evaluate is a pure function of the analysis. A nil analysis, or one without
// a technical block, yields models.NoVerdict.
func Evaluate(a *models.VisionAnalysis) models.Verdict {
	if !a.HasTechnical() {
		return models.NoVerdict
	}

	intentional := a.IsIntentional()
	focus := a.FocusScore()
	if focus < focusGate && !intentional {
		return models.Verdict{Score: gateRejectScore, Rating: 1, Flag: models.FlagReject}
	}

	raw := (focus*weightFocus +
		a.CompositionScore()*weightComposition +
		a.AestheticScore()*weightAesthetic +
		a.ExposureScore()*weightExposure) / weightTotal

	if a.CropIssue() {
		raw = math.Min(raw, cropIssueCap)
	}
	if a.NoiseScore() < noiseFloor && !intentional {
		raw -= noisePenalty
	}

	score := RoundScore(raw)
	return models.Verdict{Score: score, Rating: rating(score), Flag: flag(score)}
}

// RoundScore clamps to [0,10] and rounds half away from zero to one decimal.
func RoundScore(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	v = math.Max(0, math.Min(10, v))
	return math.Round(v*10) / 10
}

func flag(score float64) models.Flag {
	switch {
	case score >= pickThreshold:
		return models.FlagPick
	case score >= reviewThreshold:
		return models.FlagReview
	default:
		return models.FlagReject
	}
}

func rating(score float64) int {
	switch {
	case score >= pickThreshold:
		return 5
	case score >= strongReviewCutoff:
		return 4
	case score >= reviewThreshold:
		return 3
	case score < hardRejectThreshold:
		return 1
	default:
		return 2
	}
}
