package vision

// AnalysisPrompt asks the model for the structured assessment consumed by the
// verdict engine and the sidecar generator.
const AnalysisPrompt = `You are a senior photo editor culling images for a stock photography agency.
Assess the attached photo strictly and answer ONLY with a JSON object of this shape:

{
  "keywords": ["5 to 10 precise descriptive keywords: subject, light, technique, mood"],
  "analysis": {
    "subject": "one sentence on the main subject",
    "lighting": "one sentence on the light",
    "composition": "one sentence on the composition",
    "technical": "one sentence on sharpness, noise and exposure"
  },
  "technical": {
    "focus_score": 0-10 integer, sharpness of the intended subject,
    "noise_score": 0-10 integer, 10 means clean,
    "exposure_score": 0-10 integer,
    "is_intentional": true if blur or noise is clearly a deliberate creative effect
  },
  "color_analysis": {
    "cast_detected": boolean,
    "cast_color": "name of the cast color or empty",
    "confidence": 0-10 integer,
    "correction_hint": "short correction hint or empty"
  },
  "composition": {
    "score": 0-10 integer,
    "crop_issue": true if the framing cuts the subject badly,
    "distractions": true if distracting elements are present
  },
  "aesthetic": {
    "score": 0-10 integer,
    "commercial_appeal": 0-10 integer
  }
}

No markdown, no commentary.`
