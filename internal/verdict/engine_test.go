package verdict_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"lumina-backend/internal/models"
	"lumina-backend/internal/verdict"
)

func score(v float64) *models.Score {
	s := models.Score(v)
	return &s
}

type inputs struct {
	focus, noise, exposure, composition, aesthetic float64
	intentional, crop                              bool
}

func analysis(in inputs) *models.VisionAnalysis {
	return &models.VisionAnalysis{
		Technical: &models.TechnicalScores{
			FocusScore:    score(in.focus),
			NoiseScore:    score(in.noise),
			ExposureScore: score(in.exposure),
			IsIntentional: models.Bool(in.intentional),
		},
		Composition: &models.CompositionScores{Score: score(in.composition), CropIssue: models.Bool(in.crop)},
		Aesthetic:   &models.AestheticScores{Score: score(in.aesthetic)},
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name string
		in   inputs
		want models.Verdict
	}{
		{"all nines is a pick", inputs{9, 9, 9, 9, 9, false, false}, models.Verdict{Score: 9.0, Rating: 5, Flag: models.FlagPick}},
		{"exact pick threshold", inputs{9, 9, 9, 8, 8, false, false}, models.Verdict{Score: 8.5, Rating: 5, Flag: models.FlagPick}},
		{"strong review band", inputs{7, 7, 7, 7, 7, false, false}, models.Verdict{Score: 7.0, Rating: 4, Flag: models.FlagReview}},
		{"weak review band", inputs{5, 5, 5, 5, 5, false, false}, models.Verdict{Score: 5.0, Rating: 3, Flag: models.FlagReview}},
		{"soft reject", inputs{5, 5, 3, 3, 3, false, false}, models.Verdict{Score: 3.7, Rating: 2, Flag: models.FlagReject}},
		{"hard reject after noise penalty", inputs{5, 0, 0, 0, 0, false, false}, models.Verdict{Score: 1.2, Rating: 1, Flag: models.FlagReject}},
		{"focus gate", inputs{4, 10, 10, 10, 10, false, false}, models.Verdict{Score: 1.5, Rating: 1, Flag: models.FlagReject}},
		{"intentional blur bypasses gate", inputs{2, 5, 5, 5, 5, true, false}, models.Verdict{Score: 4.0, Rating: 2, Flag: models.FlagReject}},
		{"crop issue caps score", inputs{10, 10, 10, 10, 10, false, true}, models.Verdict{Score: 6.0, Rating: 3, Flag: models.FlagReview}},
		{"noise penalty", inputs{8, 2, 8, 8, 8, false, false}, models.Verdict{Score: 7.5, Rating: 4, Flag: models.FlagReview}},
		{"intentional noise is not penalized", inputs{8, 2, 8, 8, 8, true, false}, models.Verdict{Score: 8.0, Rating: 4, Flag: models.FlagReview}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, verdict.Evaluate(analysis(tt.in)))
		})
	}
}

func TestEvaluateWithoutTechnicalBlock(t *testing.T) {
	assert.Equal(t, models.NoVerdict, verdict.Evaluate(nil))
	assert.Equal(t, models.NoVerdict, verdict.Evaluate(&models.VisionAnalysis{
		Keywords:  []string{"duck"},
		Aesthetic: &models.AestheticScores{Score: score(9)},
	}))
}

func TestEvaluateMissingScoresAreNeutral(t *testing.T) {
	got := verdict.Evaluate(&models.VisionAnalysis{Technical: &models.TechnicalScores{}})
	assert.Equal(t, models.Verdict{Score: 5.0, Rating: 3, Flag: models.FlagReview}, got)
}

func TestEvaluateClampsUntrustedScores(t *testing.T) {
	got := verdict.Evaluate(analysis(inputs{42, 42, 42, 42, 42, false, false}))
	assert.Equal(t, models.Verdict{Score: 10.0, Rating: 5, Flag: models.FlagPick}, got)
}

func TestEvaluateProperties(t *testing.T) {
	values := []float64{0, 1.3, 2.5, 4.9, 5, 6.6, 7.3, 8.8, 10}
	for _, focus := range values {
		for _, noise := range values {
			for _, other := range values {
				for _, intentional := range []bool{false, true} {
					for _, crop := range []bool{false, true} {
						v := verdict.Evaluate(analysis(inputs{focus, noise, other, other, other, intentional, crop}))

						assert.GreaterOrEqual(t, v.Score, 0.0)
						assert.LessOrEqual(t, v.Score, 10.0)
						assert.InDelta(t, math.Round(v.Score*10), v.Score*10, 1e-9)
						assert.GreaterOrEqual(t, v.Rating, 1)
						assert.LessOrEqual(t, v.Rating, 5)
						if focus < 5 && !intentional {
							assert.Equal(t, models.FlagReject, v.Flag)
							assert.Equal(t, 1, v.Rating)
						}
					}
				}
			}
		}
	}
}

func TestRoundScore(t *testing.T) {
	assert.Equal(t, 7.5, verdict.RoundScore(7.45000001))
	assert.Equal(t, 0.0, verdict.RoundScore(-3))
	assert.Equal(t, 10.0, verdict.RoundScore(11))
	assert.Equal(t, 0.0, verdict.RoundScore(math.NaN()))
}
