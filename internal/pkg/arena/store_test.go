package arena_test

import (
	"errors"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/Legatia/Siphon-sub001/internal/pkg/arena"
	"github.com/Legatia/Siphon-sub001/internal/pkg/common"
)

var errRejected = errors.New("rejected")

func openBoltStore(t *testing.T) arena.Store {
	t.Helper()

	db, err := bolt.Open(path.Join(t.TempDir(), "arena.db"), 0600, &bolt.Options{Timeout: time.Second})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range []string{common.ArenaQueueBucket, common.ArenaBattlesBucket} {
			_, err := tx.CreateBucketIfNotExists([]byte(bucket))
			if err != nil {
				return err
			}
		}

		return nil
	})
	require.NoError(t, err)

	return &arena.BoltStore{DatabaseService: &common.DatabaseService{DB: db}}
}

func stores(t *testing.T) map[string]arena.Store {
	t.Helper()

	return map[string]arena.Store{
		"bolt":   openBoltStore(t),
		"memory": arena.NewMemoryStore(),
	}
}

func testEntry(id, shardID string) arena.MatchmakingEntry {
	return arena.MatchmakingEntry{
		ID:        id,
		ShardID:   shardID,
		OwnerID:   "keeper-1",
		Mode:      arena.ModeDebate,
		EloRating: arena.DefaultEloRating,
		JoinedAt:  time.Now().UTC(),
	}
}

func testBattle(id string) arena.Battle {
	return arena.Battle{
		ID:         id,
		Mode:       arena.ModeDebate,
		Status:     arena.StatusActive,
		Challenger: arena.ParticipantSide{ShardID: "shard-a", KeeperID: "keeper-1", EloRating: 1200},
		Defender:   arena.ParticipantSide{ShardID: "shard-b", KeeperID: "keeper-2", EloRating: 1210},
		Rounds:     []arena.BattleRound{},
		CreatedAt:  time.Now().UTC(),
	}
}

func TestEntryRoundTrip(t *testing.T) {
	t.Parallel()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			require.NoError(t, store.PutEntry(testEntry("e-1", "shard-a")))

			entry, err := store.GetEntry("e-1")
			require.NoError(t, err)
			require.NotNil(t, entry)
			assert.Equal(t, "shard-a", entry.ShardID)

			missing, err := store.GetEntry("e-2")
			require.NoError(t, err)
			assert.Nil(t, missing)

			removed, err := store.DeleteEntry("e-1")
			require.NoError(t, err)
			assert.True(t, removed)

			removed, err = store.DeleteEntry("e-1")
			require.NoError(t, err)
			assert.False(t, removed)
		})
	}
}

func TestPutEntryRejectsDuplicateShardMode(t *testing.T) {
	t.Parallel()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			require.NoError(t, store.PutEntry(testEntry("e-1", "shard-a")))

			// A second row for the same shard and mode never lands, no
			// matter how the two writers interleave.
			err := store.PutEntry(testEntry("e-2", "shard-a"))
			assert.ErrorIs(t, err, arena.ErrDuplicateEntry)

			// Re-putting the same entry id is an overwrite, not a duplicate.
			assert.NoError(t, store.PutEntry(testEntry("e-1", "shard-a")))

			// A different mode is a separate wait.
			trivia := testEntry("e-3", "shard-a")
			trivia.Mode = arena.ModeTrivia
			assert.NoError(t, store.PutEntry(trivia))

			// Once the original entry is gone the shard may queue again.
			removed, err := store.DeleteEntry("e-1")
			require.NoError(t, err)
			require.True(t, removed)

			assert.NoError(t, store.PutEntry(testEntry("e-2", "shard-a")))
		})
	}
}

func TestConsumeEntriesAtomic(t *testing.T) {
	t.Parallel()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			require.NoError(t, store.PutEntry(testEntry("e-1", "shard-a")))
			require.NoError(t, store.PutEntry(testEntry("e-2", "shard-b")))

			err := store.ConsumeEntries("e-1", "e-2", testBattle("b-1"))
			require.NoError(t, err)

			entries, err := store.ListEntries()
			require.NoError(t, err)
			assert.Empty(t, entries)

			battle, err := store.GetBattle("b-1")
			require.NoError(t, err)
			require.NotNil(t, battle)
		})
	}
}

func TestConsumeEntriesMissingEntryLeavesStoreUntouched(t *testing.T) {
	t.Parallel()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			require.NoError(t, store.PutEntry(testEntry("e-1", "shard-a")))

			err := store.ConsumeEntries("e-1", "e-gone", testBattle("b-1"))
			assert.ErrorIs(t, err, arena.ErrEntryConsumed)

			entry, err := store.GetEntry("e-1")
			require.NoError(t, err)
			assert.NotNil(t, entry)

			battle, err := store.GetBattle("b-1")
			require.NoError(t, err)
			assert.Nil(t, battle)
		})
	}
}

func TestUpdateBattleMutateErrorAborts(t *testing.T) {
	t.Parallel()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			require.NoError(t, store.PutBattle(testBattle("b-1")))

			_, err := store.UpdateBattle("b-1", func(b *arena.Battle) error {
				b.Status = arena.StatusDisputed

				return errRejected
			})
			assert.ErrorIs(t, err, errRejected)

			battle, err := store.GetBattle("b-1")
			require.NoError(t, err)
			require.NotNil(t, battle)
			assert.Equal(t, arena.StatusActive, battle.Status)
		})
	}
}

func TestUpdateBattleMissing(t *testing.T) {
	t.Parallel()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := store.UpdateBattle("nope", func(*arena.Battle) error { return nil })

			assert.ErrorIs(t, err, arena.ErrBattleNotFound)
		})
	}
}
