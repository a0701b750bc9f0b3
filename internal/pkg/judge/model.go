package judge

// RoundVerdict is the strict result type every scoring path resolves to.
// Scores are always within [0, 100] and Reasoning is always non-empty.
type RoundVerdict struct {
	ChallengerScore int    `json:"challenger_score"`
	DefenderScore   int    `json:"defender_score"`
	Reasoning       string `json:"reasoning"`
	Fallback        bool   `json:"fallback,omitempty"`
}

type ScoreRequest struct {
	Mode               string `json:"mode"`
	Rubric             string `json:"rubric"`
	Prompt             string `json:"prompt"`
	ChallengerResponse string `json:"challenger_response"`
	DefenderResponse   string `json:"defender_response"`
}
