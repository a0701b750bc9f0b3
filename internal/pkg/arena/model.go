package arena

import "time"

const TotalRounds = 3

const DefaultEloRating = 1200

type BattleStatus string

const (
	StatusPending   BattleStatus = "pending"
	StatusMatching  BattleStatus = "matching"
	StatusActive    BattleStatus = "active"
	StatusJudging   BattleStatus = "judging"
	StatusCompleted BattleStatus = "completed"
	StatusDisputed  BattleStatus = "disputed"
)

type BattleMode string

const (
	ModeDebate BattleMode = "debate"
	ModeTrivia BattleMode = "trivia"
	ModeRoast  BattleMode = "roast"
	ModeLogic  BattleMode = "logic"
)

func ValidMode(mode BattleMode) bool {
	switch mode {
	case ModeDebate, ModeTrivia, ModeRoast, ModeLogic:
		return true
	default:
		return false
	}
}

type MatchmakingEntry struct {
	ID          string     `json:"id"`
	ShardID     string     `json:"shard_id"`
	OwnerID     string     `json:"owner_id"`
	Mode        BattleMode `json:"mode"`
	EloRating   int        `json:"elo_rating"`
	StakeAmount int64      `json:"stake_amount"`
	JoinedAt    time.Time  `json:"joined_at"`
}

type ParticipantSide struct {
	ShardID   string `json:"shard_id"`
	KeeperID  string `json:"keeper_id"`
	EloRating int    `json:"elo_rating"`
	EloDelta  int    `json:"elo_delta"`
}

type RoundScores struct {
	Challenger int `json:"challenger"`
	Defender   int `json:"defender"`
}

type BattleRound struct {
	RoundNumber        int          `json:"round_number"`
	Prompt             string       `json:"prompt"`
	ChallengerResponse string       `json:"challenger_response"`
	DefenderResponse   string       `json:"defender_response"`
	Scores             *RoundScores `json:"scores,omitempty"`
	Reasoning          string       `json:"reasoning,omitempty"`
	StartedAt          time.Time    `json:"started_at"`
	DueAt              time.Time    `json:"due_at"`
}

// Complete reports whether both sides have a response on record. A timeout
// sentinel counts as a response.
func (r *BattleRound) Complete() bool {
	return r.ChallengerResponse != "" && r.DefenderResponse != ""
}

type Battle struct {
	ID                 string          `json:"id"`
	Mode               BattleMode      `json:"mode"`
	Status             BattleStatus    `json:"status"`
	Challenger         ParticipantSide `json:"challenger"`
	Defender           ParticipantSide `json:"defender"`
	Rounds             []BattleRound   `json:"rounds"`
	WinnerID           string          `json:"winner_id,omitempty"`
	StakeAmount        int64           `json:"stake_amount"`
	EscrowTxHash       string          `json:"escrow_tx_hash,omitempty"`
	FinalizationTxHash string          `json:"finalization_tx_hash,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
}

// Round returns the round with the given number, or nil. Rounds are stored
// contiguously from 1, so this is an index lookup with a bounds check.
func (b *Battle) Round(number int) *BattleRound {
	if number < 1 || number > len(b.Rounds) {
		return nil
	}

	return &b.Rounds[number-1]
}

// SideOf maps a verified keeper identity to the participant side it controls.
func (b *Battle) SideOf(keeperID string) (*ParticipantSide, bool) {
	switch keeperID {
	case b.Challenger.KeeperID:
		return &b.Challenger, true
	case b.Defender.KeeperID:
		return &b.Defender, true
	default:
		return nil, false
	}
}
