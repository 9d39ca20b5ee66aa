package models

// Flag is the triage outcome of a verdict.
type Flag string

const (
	FlagPick   Flag = "pick"
	FlagReview Flag = "review"
	FlagReject Flag = "reject"
	FlagNone   Flag = "none"
)

// Verdict is the deterministic reduction of a VisionAnalysis.
type Verdict struct {
	Score  float64 `json:"score"`
	Rating int     `json:"rating"`
	Flag   Flag    `json:"flag"`
}

// NoVerdict is used when no analysis could be obtained.
var NoVerdict = Verdict{Score: 0, Rating: 0, Flag: FlagNone}
