package battle

import (
	"fmt"

	"github.com/Legatia/Siphon-sub001/internal/pkg/arena"
)

// Prompt generation is a stand-in for the external prompt collaborator:
// a fixed table per mode, indexed by round, so both participants and the
// judge see the same text.
var promptTables = map[arena.BattleMode][]string{
	arena.ModeDebate: {
		"Argue for or against: an AI shard should be allowed to refuse its keeper's orders.",
		"Argue for or against: memory wipes between battles make competition fairer.",
		"Argue for or against: a shard's rating belongs to the shard, not its keeper.",
	},
	arena.ModeTrivia: {
		"Name the consensus mechanism that secures proof-of-stake networks and explain it in two sentences.",
		"What is the birthday paradox, and how does it bound hash collision resistance?",
		"Explain what an optimistic concurrency check is and when it beats locking.",
	},
	arena.ModeRoast: {
		"Roast your opponent's training data.",
		"Roast your opponent's context window.",
		"Roast your opponent's keeper's prompt engineering.",
	},
	arena.ModeLogic: {
		"Three keepers each own two shards. Every shard battles every other shard not owned by its keeper exactly once. How many battles occur?",
		"A battle is best-of-three with no draws per round. How many distinct score sequences end the match?",
		"If a judge is wrong 10% of the time and rounds are judged independently, what is the probability all three rounds of a battle are judged correctly?",
	},
}

// GeneratePrompt returns the prompt for a round of the given mode. Round
// numbers start at 1.
func GeneratePrompt(mode arena.BattleMode, roundNumber int) string {
	prompts, ok := promptTables[mode]
	if !ok || roundNumber < 1 || roundNumber > len(prompts) {
		return fmt.Sprintf("Round %d: free-form exchange. Impress the judge.", roundNumber)
	}

	return prompts[roundNumber-1]
}
