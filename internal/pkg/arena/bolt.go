package arena

import (
	"encoding/json"
	"fmt"

	"github.com/samber/do/v2"
	"go.etcd.io/bbolt"

	"github.com/Legatia/Siphon-sub001/internal/pkg/common"
)

var (
	ErrQueueBucketNotFound   = fmt.Errorf("%s bucket doesn't exist", common.ArenaQueueBucket)
	ErrBattlesBucketNotFound = fmt.Errorf("%s bucket doesn't exist", common.ArenaBattlesBucket)
)

// BoltStore keeps entries and battles as JSON rows in bbolt buckets. bbolt
// serializes Update transactions, so every mutate callback in UpdateBattle
// observes the latest committed row.
type BoltStore struct {
	DatabaseService *common.DatabaseService
}

func NewBoltStore(i do.Injector) (Store, error) {
	databaseService, err := do.Invoke[*common.DatabaseService](i)
	if err != nil {
		return nil, fmt.Errorf("failed to create database service: %w", err)
	}

	return &BoltStore{
		DatabaseService: databaseService,
	}, nil
}

func (s *BoltStore) PutEntry(entry MatchmakingEntry) error {
	return s.DatabaseService.DB.Update(func(tx *bbolt.Tx) error {
		queue := tx.Bucket([]byte(common.ArenaQueueBucket))
		if queue == nil {
			return ErrQueueBucketNotFound
		}

		err := queue.ForEach(func(_, raw []byte) error {
			var existing MatchmakingEntry

			err := json.Unmarshal(raw, &existing)
			if err != nil {
				return fmt.Errorf("failed to unmarshal entry: %w", err)
			}

			if existing.ID != entry.ID && existing.ShardID == entry.ShardID && existing.Mode == entry.Mode {
				return ErrDuplicateEntry
			}

			return nil
		})
		if err != nil {
			return err
		}

		return putJSON(queue, entry.ID, entry)
	})
}

func (s *BoltStore) GetEntry(id string) (*MatchmakingEntry, error) {
	var entry *MatchmakingEntry

	err := s.DatabaseService.DB.View(func(tx *bbolt.Tx) error {
		queue := tx.Bucket([]byte(common.ArenaQueueBucket))
		if queue == nil {
			return ErrQueueBucketNotFound
		}

		raw := queue.Get([]byte(id))
		if raw == nil {
			return nil
		}

		entry = &MatchmakingEntry{}

		return json.Unmarshal(raw, entry)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}

	return entry, nil
}

func (s *BoltStore) DeleteEntry(id string) (bool, error) {
	existed := false

	err := s.DatabaseService.DB.Update(func(tx *bbolt.Tx) error {
		queue := tx.Bucket([]byte(common.ArenaQueueBucket))
		if queue == nil {
			return ErrQueueBucketNotFound
		}

		if queue.Get([]byte(id)) == nil {
			return nil
		}

		existed = true

		return queue.Delete([]byte(id))
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete entry: %w", err)
	}

	return existed, nil
}

func (s *BoltStore) ListEntries() ([]MatchmakingEntry, error) {
	entries := []MatchmakingEntry{}

	err := s.DatabaseService.DB.View(func(tx *bbolt.Tx) error {
		queue := tx.Bucket([]byte(common.ArenaQueueBucket))
		if queue == nil {
			return ErrQueueBucketNotFound
		}

		return queue.ForEach(func(_, raw []byte) error {
			var entry MatchmakingEntry

			err := json.Unmarshal(raw, &entry)
			if err != nil {
				return fmt.Errorf("failed to unmarshal entry: %w", err)
			}

			entries = append(entries, entry)

			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}

	return entries, nil
}

func (s *BoltStore) ConsumeEntries(entryIDA, entryIDB string, battle Battle) error {
	return s.DatabaseService.DB.Update(func(tx *bbolt.Tx) error {
		queue := tx.Bucket([]byte(common.ArenaQueueBucket))
		if queue == nil {
			return ErrQueueBucketNotFound
		}

		battles := tx.Bucket([]byte(common.ArenaBattlesBucket))
		if battles == nil {
			return ErrBattlesBucketNotFound
		}

		if queue.Get([]byte(entryIDA)) == nil || queue.Get([]byte(entryIDB)) == nil {
			return ErrEntryConsumed
		}

		err := queue.Delete([]byte(entryIDA))
		if err != nil {
			return fmt.Errorf("failed to delete entry: %w", err)
		}

		err = queue.Delete([]byte(entryIDB))
		if err != nil {
			return fmt.Errorf("failed to delete entry: %w", err)
		}

		return putJSON(battles, battle.ID, battle)
	})
}

func (s *BoltStore) PutBattle(battle Battle) error {
	return s.DatabaseService.DB.Update(func(tx *bbolt.Tx) error {
		battles := tx.Bucket([]byte(common.ArenaBattlesBucket))
		if battles == nil {
			return ErrBattlesBucketNotFound
		}

		return putJSON(battles, battle.ID, battle)
	})
}

func (s *BoltStore) GetBattle(id string) (*Battle, error) {
	var battle *Battle

	err := s.DatabaseService.DB.View(func(tx *bbolt.Tx) error {
		battles := tx.Bucket([]byte(common.ArenaBattlesBucket))
		if battles == nil {
			return ErrBattlesBucketNotFound
		}

		raw := battles.Get([]byte(id))
		if raw == nil {
			return nil
		}

		battle = &Battle{}

		return json.Unmarshal(raw, battle)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get battle: %w", err)
	}

	return battle, nil
}

func (s *BoltStore) UpdateBattle(id string, mutate func(*Battle) error) (*Battle, error) {
	var battle Battle

	err := s.DatabaseService.DB.Update(func(tx *bbolt.Tx) error {
		battles := tx.Bucket([]byte(common.ArenaBattlesBucket))
		if battles == nil {
			return ErrBattlesBucketNotFound
		}

		raw := battles.Get([]byte(id))
		if raw == nil {
			return ErrBattleNotFound
		}

		err := json.Unmarshal(raw, &battle)
		if err != nil {
			return fmt.Errorf("failed to unmarshal battle: %w", err)
		}

		err = mutate(&battle)
		if err != nil {
			return err
		}

		return putJSON(battles, battle.ID, battle)
	})
	if err != nil {
		return nil, err
	}

	return &battle, nil
}

func putJSON(bucket *bbolt.Bucket, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	err = bucket.Put([]byte(key), raw)
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}

	return nil
}
