package rating

import "math"

// DefaultKFactor matches the ladder-wide K used for arena battles. Unlike a
// per-player tiered K, every battle moves ratings at the same rate.
const DefaultKFactor = 32.0

type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
	OutcomeDraw Outcome = "draw"
)

func (o Outcome) actualScore() float64 {
	switch o {
	case OutcomeWin:
		return 1.0
	case OutcomeLoss:
		return 0.0
	default:
		return 0.5
	}
}

func CalculateExpectedScore(ratingA, ratingB float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (ratingB-ratingA)/400.0))
}

// Compute returns the rating deltas for both sides of a battle. outcome is
// from the challenger's perspective. The two deltas need not cancel out:
// each side's delta is derived from its own expected score.
func Compute(challengerRating, defenderRating int, outcome Outcome, kFactor float64) (int, int) {
	expectedChallenger := CalculateExpectedScore(float64(challengerRating), float64(defenderRating))
	expectedDefender := CalculateExpectedScore(float64(defenderRating), float64(challengerRating))

	actualChallenger := outcome.actualScore()
	actualDefender := 1.0 - actualChallenger

	deltaChallenger := math.Round(kFactor * (actualChallenger - expectedChallenger))
	deltaDefender := math.Round(kFactor * (actualDefender - expectedDefender))

	return int(deltaChallenger), int(deltaDefender)
}
