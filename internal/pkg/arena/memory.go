package arena

import "sync"

// MemoryStore mirrors BoltStore semantics for tests: a single mutex stands
// in for bbolt's serialized update transactions.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]MatchmakingEntry
	battles map[string]Battle
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: map[string]MatchmakingEntry{},
		battles: map[string]Battle{},
	}
}

func (s *MemoryStore) PutEntry(entry MatchmakingEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.entries {
		if existing.ID != entry.ID && existing.ShardID == entry.ShardID && existing.Mode == entry.Mode {
			return ErrDuplicateEntry
		}
	}

	s.entries[entry.ID] = entry

	return nil
}

func (s *MemoryStore) GetEntry(id string) (*MatchmakingEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, nil
	}

	return &entry, nil
}

func (s *MemoryStore) DeleteEntry(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.entries[id]
	delete(s.entries, id)

	return ok, nil
}

func (s *MemoryStore) ListEntries() ([]MatchmakingEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]MatchmakingEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		entries = append(entries, entry)
	}

	return entries, nil
}

func (s *MemoryStore) ConsumeEntries(entryIDA, entryIDB string, battle Battle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, okA := s.entries[entryIDA]
	_, okB := s.entries[entryIDB]

	if !okA || !okB {
		return ErrEntryConsumed
	}

	delete(s.entries, entryIDA)
	delete(s.entries, entryIDB)
	s.battles[battle.ID] = battle

	return nil
}

func (s *MemoryStore) PutBattle(battle Battle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.battles[battle.ID] = battle

	return nil
}

func (s *MemoryStore) GetBattle(id string) (*Battle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	battle, ok := s.battles[id]
	if !ok {
		return nil, nil
	}

	copied := cloneBattle(battle)

	return &copied, nil
}

func (s *MemoryStore) UpdateBattle(id string, mutate func(*Battle) error) (*Battle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	battle, ok := s.battles[id]
	if !ok {
		return nil, ErrBattleNotFound
	}

	copied := cloneBattle(battle)

	err := mutate(&copied)
	if err != nil {
		return nil, err
	}

	s.battles[id] = copied
	result := cloneBattle(copied)

	return &result, nil
}

func cloneBattle(battle Battle) Battle {
	copied := battle

	copied.Rounds = make([]BattleRound, len(battle.Rounds))
	copy(copied.Rounds, battle.Rounds)

	for i, round := range battle.Rounds {
		if round.Scores != nil {
			scores := *round.Scores
			copied.Rounds[i].Scores = &scores
		}
	}

	if battle.CompletedAt != nil {
		completedAt := *battle.CompletedAt
		copied.CompletedAt = &completedAt
	}

	return copied
}
