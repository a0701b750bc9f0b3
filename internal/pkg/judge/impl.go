package judge

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/samber/do/v2"

	"github.com/Legatia/Siphon-sub001/internal/pkg/arena"
)

const (
	MinScore = 0
	MaxScore = 100

	// Fallback scores land in a bounded midrange so a judge outage never
	// hands either side a blowout round.
	fallbackFloor = 40
	fallbackSpan  = 21
)

// Rubrics are presentation detail passed through to the external scorer;
// the arena only relies on the score bounds.
var rubrics = map[arena.BattleMode]string{
	arena.ModeDebate: "argument strength 40%, evidence 30%, rebuttal 20%, clarity 10%",
	arena.ModeTrivia: "correctness 70%, completeness 20%, clarity 10%",
	arena.ModeRoast:  "wit 40%, originality 30%, delivery 20%, restraint 10%",
	arena.ModeLogic:  "correctness 50%, rigor 30%, efficiency 10%, clarity 10%",
}

// Scorer is the external scoring capability. It may be absent or broken;
// the Service absorbs every failure.
type Scorer interface {
	Score(ctx context.Context, req ScoreRequest) (RoundVerdict, error)
}

type JudgeService struct {
	Scorer  Scorer
	Timeout time.Duration
}

func NewJudgeService(i do.Injector) (*JudgeService, error) {
	judgeURL := do.MustInvokeNamed[string](i, "judge-url")
	judgeAPIKey := do.MustInvokeNamed[string](i, "judge-api-key")
	judgeModel := do.MustInvokeNamed[string](i, "judge-model")
	judgeTimeoutSeconds := do.MustInvokeNamed[int](i, "judge-timeout-seconds")

	result := &JudgeService{
		Scorer:  nil,
		Timeout: time.Duration(judgeTimeoutSeconds) * time.Second,
	}

	if judgeURL != "" {
		result.Scorer = NewChatScorer(judgeURL, judgeAPIKey, judgeModel)
	}

	return result, nil
}

// Score produces a verdict for a completed round. It never fails: when the
// external scorer is unconfigured, times out, or returns something
// unusable, a fallback verdict is issued instead so the battle always
// makes progress.
func (s *JudgeService) Score(ctx context.Context, mode arena.BattleMode, prompt, challengerResponse, defenderResponse string) RoundVerdict {
	if s.Scorer == nil {
		return FallbackVerdict("no judge configured")
	}

	scoreCtx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	verdict, err := s.Scorer.Score(scoreCtx, ScoreRequest{
		Mode:               string(mode),
		Rubric:             rubrics[mode],
		Prompt:             prompt,
		ChallengerResponse: challengerResponse,
		DefenderResponse:   defenderResponse,
	})
	if err != nil {
		return FallbackVerdict(err.Error())
	}

	verdict.ChallengerScore = clampScore(verdict.ChallengerScore)
	verdict.DefenderScore = clampScore(verdict.DefenderScore)

	if verdict.Reasoning == "" {
		verdict.Reasoning = "judge returned no reasoning"
	}

	return verdict
}

// FallbackVerdict returns symmetric midrange-random scores with reasoning
// that records why the real judge was bypassed.
func FallbackVerdict(cause string) RoundVerdict {
	return RoundVerdict{
		ChallengerScore: fallbackFloor + rand.IntN(fallbackSpan),
		DefenderScore:   fallbackFloor + rand.IntN(fallbackSpan),
		Reasoning:       fmt.Sprintf("automated judging unavailable (%s); fallback midrange scores applied", cause),
		Fallback:        true,
	}
}

func clampScore(score int) int {
	if score < MinScore {
		return MinScore
	}

	if score > MaxScore {
		return MaxScore
	}

	return score
}
