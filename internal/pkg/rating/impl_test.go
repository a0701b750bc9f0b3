package rating_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Legatia/Siphon-sub001/internal/pkg/rating"
)

func TestCalculateExpectedScore(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.5, rating.CalculateExpectedScore(1200.0, 1200.0))
	assert.Greater(t, rating.CalculateExpectedScore(1400.0, 1200.0), 0.5)
	assert.Less(t, rating.CalculateExpectedScore(1200.0, 1400.0), 0.5)
}

func TestComputeSymmetricRatings(t *testing.T) {
	t.Parallel()

	deltaChallenger, deltaDefender := rating.Compute(1200, 1200, rating.OutcomeWin, rating.DefaultKFactor)

	assert.Equal(t, 16, deltaChallenger)
	assert.Equal(t, -16, deltaDefender)

	deltaChallenger, deltaDefender = rating.Compute(1200, 1200, rating.OutcomeLoss, rating.DefaultKFactor)

	assert.Equal(t, -16, deltaChallenger)
	assert.Equal(t, 16, deltaDefender)
}

func TestComputeDraw(t *testing.T) {
	t.Parallel()

	deltaChallenger, deltaDefender := rating.Compute(1200, 1200, rating.OutcomeDraw, rating.DefaultKFactor)

	assert.Equal(t, 0, deltaChallenger)
	assert.Equal(t, 0, deltaDefender)
}

func TestComputeUnderdogWinPaysMore(t *testing.T) {
	t.Parallel()

	underdogDelta, _ := rating.Compute(1100, 1400, rating.OutcomeWin, rating.DefaultKFactor)
	favoriteDelta, _ := rating.Compute(1400, 1100, rating.OutcomeWin, rating.DefaultKFactor)

	assert.Greater(t, underdogDelta, favoriteDelta)
	assert.Positive(t, underdogDelta)
	assert.Positive(t, favoriteDelta)
}

// The deltas on both sides need not cancel out when ratings differ; each
// side's delta comes from its own expected score.
func TestComputeMonotonicInExpectedScore(t *testing.T) {
	t.Parallel()

	previous := -1000

	for _, opponent := range []int{1000, 1100, 1200, 1300, 1400, 1500} {
		delta, _ := rating.Compute(1200, opponent, rating.OutcomeWin, rating.DefaultKFactor)

		assert.GreaterOrEqual(t, delta, previous)

		previous = delta
	}
}
