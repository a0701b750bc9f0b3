package battle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/do/v2"

	"github.com/Legatia/Siphon-sub001/internal/pkg/arena"
	"github.com/Legatia/Siphon-sub001/internal/pkg/judge"
	"github.com/Legatia/Siphon-sub001/internal/pkg/rating"
	"github.com/Legatia/Siphon-sub001/internal/pkg/settlement"
)

// TimeoutSentinel is the fixed literal recorded for a side that missed its
// round deadline. The judge scores it like any other response.
const TimeoutSentinel = "[no response before deadline]"

var (
	ErrInvalidMode       = errors.New("invalid battle mode")
	ErrSameShard         = errors.New("a shard can't battle itself")
	ErrNotParticipant    = errors.New("caller is not a participant of this battle")
	ErrBattleNotActive   = errors.New("battle is not accepting responses")
	ErrInvalidRound      = errors.New("round number out of range")
	ErrResponseRecorded  = errors.New("response already recorded for this side")
	ErrEscrowRequired    = errors.New("staked battles require an escrow transaction")
	ErrEscrowUnavailable = errors.New("escrow ledger is unavailable")
	ErrNoRoundsPlayed    = errors.New("no rounds have been played")
)

// Lifecycle owns the battle state machine. Every mutation goes through a
// single Store.UpdateBattle transaction whose mutate callback re-checks the
// expected pre-state, so two participants writing disjoint fields never
// clobber each other.
type Lifecycle struct {
	Store  arena.Store
	Judge  *judge.JudgeService
	Escrow settlement.ChainEscrow

	RoundDeadline time.Duration
	KFactor       float64
}

func NewLifecycle(i do.Injector) (*Lifecycle, error) {
	store, err := do.Invoke[arena.Store](i)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	judgeService, err := do.Invoke[*judge.JudgeService](i)
	if err != nil {
		return nil, fmt.Errorf("failed to create judge service: %w", err)
	}

	settlementService, err := do.Invoke[*settlement.SettlementService](i)
	if err != nil {
		return nil, fmt.Errorf("failed to create settlement service: %w", err)
	}

	roundDeadlineMinutes := do.MustInvokeNamed[int](i, "round-deadline-minutes")
	kFactor := do.MustInvokeNamed[int](i, "elo-k-factor")

	return &Lifecycle{
		Store:  store,
		Judge:  judgeService,
		Escrow: settlementService.Escrow,

		RoundDeadline: time.Duration(roundDeadlineMinutes) * time.Minute,
		KFactor:       float64(kFactor),
	}, nil
}

// BuildBattle assembles a new battle without persisting it. Matched battles
// start Active; the pending/matching states only exist for direct-challenge
// flows that haven't been accepted yet.
func BuildBattle(challenger, defender arena.ParticipantSide, mode arena.BattleMode, stake int64, escrowTxHash string) (arena.Battle, error) {
	if !arena.ValidMode(mode) {
		return arena.Battle{}, ErrInvalidMode
	}

	if challenger.ShardID == defender.ShardID {
		return arena.Battle{}, ErrSameShard
	}

	battleID, err := uuid.NewV7()
	if err != nil {
		return arena.Battle{}, fmt.Errorf("failed to generate battle ID: %w", err)
	}

	if challenger.EloRating == 0 {
		challenger.EloRating = arena.DefaultEloRating
	}

	if defender.EloRating == 0 {
		defender.EloRating = arena.DefaultEloRating
	}

	return arena.Battle{
		ID:           battleID.String(),
		Mode:         mode,
		Status:       arena.StatusActive,
		Challenger:   challenger,
		Defender:     defender,
		Rounds:       []arena.BattleRound{},
		StakeAmount:  stake,
		EscrowTxHash: escrowTxHash,
		CreatedAt:    time.Now(),
	}, nil
}

// Create persists a direct-challenge battle. A positive stake must be
// backed by a confirmed escrow deposit before the battle exists.
func (l *Lifecycle) Create(ctx context.Context, challenger, defender arena.ParticipantSide, mode arena.BattleMode, stake int64, escrowTxHash string) (*arena.Battle, error) {
	if stake > 0 {
		if escrowTxHash == "" {
			return nil, ErrEscrowRequired
		}

		if l.Escrow == nil {
			return nil, ErrEscrowUnavailable
		}

		err := l.Escrow.VerifyEscrow(ctx, escrowTxHash, stake)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEscrowRequired, err)
		}
	}

	battle, err := BuildBattle(challenger, defender, mode, stake, escrowTxHash)
	if err != nil {
		return nil, err
	}

	err = l.Store.PutBattle(battle)
	if err != nil {
		return nil, fmt.Errorf("failed to store battle: %w", err)
	}

	return &battle, nil
}

// SubmitRoundResponse records one side's response. When the round becomes
// complete it is judged, exactly once, and a completed final round
// finalizes the battle.
//
// timedOut marks a deadline force-fill: the field is written with the
// timeout sentinel if still empty, and the call is a no-op if another
// writer got there first. Without timedOut a non-empty field is a conflict.
func (l *Lifecycle) SubmitRoundResponse(ctx context.Context, battleID, keeperID string, roundNumber int, response string, timedOut bool) (*arena.Battle, error) {
	roundCompleted := false

	battle, err := l.Store.UpdateBattle(battleID, func(b *arena.Battle) error {
		side, ok := b.SideOf(keeperID)
		if !ok {
			return ErrNotParticipant
		}

		if b.Status != arena.StatusActive {
			return ErrBattleNotActive
		}

		round, err := ensureRound(b, roundNumber, l.RoundDeadline)
		if err != nil {
			return err
		}

		field := &round.ChallengerResponse
		if side.ShardID == b.Defender.ShardID {
			field = &round.DefenderResponse
		}

		if *field != "" {
			if timedOut {
				// Already filled, by the participant or by a concurrent
				// reconcile. Nothing left to do.
				return nil
			}

			return ErrResponseRecorded
		}

		if timedOut {
			*field = TimeoutSentinel
		} else {
			*field = response
		}

		roundCompleted = round.Complete() && round.Scores == nil

		if roundCompleted && roundNumber == arena.TotalRounds {
			b.Status = arena.StatusJudging
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if !roundCompleted {
		return battle, nil
	}

	return l.judgeRound(ctx, battleID, roundNumber)
}

// judgeRound scores a complete round and stores the verdict. The store
// write re-checks that no verdict landed in the meantime, so a round is
// scored at most once even under concurrent triggers.
func (l *Lifecycle) judgeRound(ctx context.Context, battleID string, roundNumber int) (*arena.Battle, error) {
	battle, err := l.Store.GetBattle(battleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load battle: %w", err)
	}

	if battle == nil {
		return nil, arena.ErrBattleNotFound
	}

	round := battle.Round(roundNumber)
	if round == nil || !round.Complete() || round.Scores != nil {
		return battle, nil
	}

	verdict := l.Judge.Score(ctx, battle.Mode, round.Prompt, round.ChallengerResponse, round.DefenderResponse)

	battle, err = l.Store.UpdateBattle(battleID, func(b *arena.Battle) error {
		stored := b.Round(roundNumber)
		if stored == nil || stored.Scores != nil {
			return nil
		}

		stored.Scores = &arena.RoundScores{
			Challenger: verdict.ChallengerScore,
			Defender:   verdict.DefenderScore,
		}
		stored.Reasoning = verdict.Reasoning

		return nil
	})
	if err != nil {
		return nil, err
	}

	if allRoundsScored(battle) {
		return l.Finalize(battleID)
	}

	return battle, nil
}

// Finalize tallies the judged rounds, applies rating deltas, and flips the
// battle to completed. Idempotent: a completed battle is returned as-is, so
// concurrent triggers converge on the same result.
func (l *Lifecycle) Finalize(battleID string) (*arena.Battle, error) {
	battle, err := l.Store.UpdateBattle(battleID, func(b *arena.Battle) error {
		if b.Status == arena.StatusCompleted {
			return nil
		}

		challengerTotal, defenderTotal, scored := tallyScores(b)
		if scored == 0 {
			return ErrNoRoundsPlayed
		}

		outcome := rating.OutcomeDraw

		switch {
		case challengerTotal > defenderTotal:
			outcome = rating.OutcomeWin
			b.WinnerID = b.Challenger.ShardID
		case defenderTotal > challengerTotal:
			outcome = rating.OutcomeLoss
			b.WinnerID = b.Defender.ShardID
		}

		deltaChallenger, deltaDefender := rating.Compute(
			b.Challenger.EloRating, b.Defender.EloRating, outcome, l.KFactor)

		b.Challenger.EloDelta = deltaChallenger
		b.Defender.EloDelta = deltaDefender

		now := time.Now()
		b.CompletedAt = &now
		b.Status = arena.StatusCompleted

		return nil
	})
	if err != nil {
		return nil, err
	}

	return battle, nil
}

// ensureRound returns the requested round, creating it when it is the next
// due one.
func ensureRound(b *arena.Battle, roundNumber int, deadline time.Duration) (*arena.BattleRound, error) {
	if roundNumber < 1 || roundNumber > arena.TotalRounds {
		return nil, ErrInvalidRound
	}

	if round := b.Round(roundNumber); round != nil {
		return round, nil
	}

	if roundNumber != len(b.Rounds)+1 {
		return nil, ErrInvalidRound
	}

	// The next round only opens once the previous one is complete.
	if len(b.Rounds) > 0 && !b.Rounds[len(b.Rounds)-1].Complete() {
		return nil, ErrInvalidRound
	}

	now := time.Now()
	b.Rounds = append(b.Rounds, arena.BattleRound{
		RoundNumber: roundNumber,
		Prompt:      GeneratePrompt(b.Mode, roundNumber),
		StartedAt:   now,
		DueAt:       now.Add(deadline),
	})

	return &b.Rounds[len(b.Rounds)-1], nil
}

func tallyScores(b *arena.Battle) (int, int, int) {
	challengerTotal := 0
	defenderTotal := 0
	scored := 0

	for _, round := range b.Rounds {
		if round.Scores == nil {
			continue
		}

		challengerTotal += round.Scores.Challenger
		defenderTotal += round.Scores.Defender
		scored++
	}

	return challengerTotal, defenderTotal, scored
}

func allRoundsScored(b *arena.Battle) bool {
	if len(b.Rounds) < arena.TotalRounds {
		return false
	}

	for _, round := range b.Rounds {
		if round.Scores == nil {
			return false
		}
	}

	return true
}
