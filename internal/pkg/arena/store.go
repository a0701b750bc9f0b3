package arena

import "errors"

var (
	ErrBattleNotFound = errors.New("battle doesn't exist")
	ErrEntryConsumed  = errors.New("queue entry already consumed")
	ErrDuplicateEntry = errors.New("shard already queued in this mode")
)

// Store is the durable-state capability handed to every arena component.
// Entries and battles are row-level independent; the only cross-row
// operation is ConsumeEntries, which must not partially apply.
type Store interface {
	// PutEntry inserts the entry. The shard-and-mode uniqueness check runs
	// inside the same transaction as the write, so concurrent joins can't
	// both slip past it; a duplicate fails with ErrDuplicateEntry.
	PutEntry(entry MatchmakingEntry) error
	GetEntry(id string) (*MatchmakingEntry, error)
	DeleteEntry(id string) (bool, error)
	ListEntries() ([]MatchmakingEntry, error)

	// ConsumeEntries atomically removes both queue entries and inserts the
	// battle created from them. Fails with ErrEntryConsumed if either entry
	// was removed in the meantime, leaving the store untouched.
	ConsumeEntries(entryIDA, entryIDB string, battle Battle) error

	PutBattle(battle Battle) error
	GetBattle(id string) (*Battle, error)

	// UpdateBattle applies mutate to the current row inside a single
	// transaction and persists the result. Pre-state checks belong inside
	// mutate; its error aborts the update and is returned unwrapped.
	UpdateBattle(id string, mutate func(*Battle) error) (*Battle, error)
}
