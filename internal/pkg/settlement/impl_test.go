package settlement_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Legatia/Siphon-sub001/internal/pkg/arena"
	"github.com/Legatia/Siphon-sub001/internal/pkg/settlement"
)

var errLedgerDown = errors.New("ledger down")

type fakeEscrow struct {
	result settlement.SettlementResult
	err    error
	calls  int
}

func (f *fakeEscrow) VerifyEscrow(_ context.Context, _ string, _ int64) error {
	return nil
}

func (f *fakeEscrow) SettlementStatus(_ context.Context, _, _ string) (settlement.SettlementResult, error) {
	f.calls++

	return f.result, f.err
}

func newService(escrow settlement.ChainEscrow) (*settlement.SettlementService, *arena.MemoryStore) {
	store := arena.NewMemoryStore()

	return &settlement.SettlementService{
		Store:   store,
		Escrow:  escrow,
		Timeout: time.Second,
	}, store
}

func completedBattle(stake int64) arena.Battle {
	completedAt := time.Now()

	return arena.Battle{
		ID:           "b-1",
		Mode:         arena.ModeDebate,
		Status:       arena.StatusCompleted,
		Challenger:   arena.ParticipantSide{ShardID: "shard-a", KeeperID: "keeper-a", EloRating: 1200, EloDelta: 16},
		Defender:     arena.ParticipantSide{ShardID: "shard-b", KeeperID: "keeper-b", EloRating: 1200, EloDelta: -16},
		Rounds:       []arena.BattleRound{},
		WinnerID:     "shard-a",
		StakeAmount:  stake,
		EscrowTxHash: "0xescrow",
		CreatedAt:    time.Now().Add(-time.Hour),
		CompletedAt:  &completedAt,
	}
}

func TestReconcileZeroStakeSkipsLedger(t *testing.T) {
	t.Parallel()

	escrow := &fakeEscrow{}
	service, store := newService(escrow)

	require.NoError(t, store.PutBattle(completedBattle(0)))

	battle, err := service.Reconcile(context.Background(), "b-1")
	require.NoError(t, err)

	assert.Empty(t, battle.FinalizationTxHash)
	assert.Equal(t, 0, escrow.calls, "zero-stake battles never hit the ledger")
}

func TestReconcileAlreadyFinalizedIsIdempotent(t *testing.T) {
	t.Parallel()

	escrow := &fakeEscrow{}
	service, store := newService(escrow)

	seeded := completedBattle(500)
	seeded.FinalizationTxHash = "0xdone"

	require.NoError(t, store.PutBattle(seeded))

	battle, err := service.Reconcile(context.Background(), "b-1")
	require.NoError(t, err)

	assert.Equal(t, "0xdone", battle.FinalizationTxHash)
	assert.Equal(t, 0, escrow.calls)
}

func TestReconcileUnresolvedReturnsUnchanged(t *testing.T) {
	t.Parallel()

	escrow := &fakeEscrow{result: settlement.SettlementResult{Resolved: false}}
	service, store := newService(escrow)

	require.NoError(t, store.PutBattle(completedBattle(500)))

	battle, err := service.Reconcile(context.Background(), "b-1")
	require.NoError(t, err)

	assert.Empty(t, battle.FinalizationTxHash)
	assert.Equal(t, 1, escrow.calls)
}

func TestReconcileLedgerErrorIsRetryable(t *testing.T) {
	t.Parallel()

	escrow := &fakeEscrow{err: errLedgerDown}
	service, store := newService(escrow)

	require.NoError(t, store.PutBattle(completedBattle(500)))

	// Ledger failures surface as "not yet reconciled", not as an error.
	battle, err := service.Reconcile(context.Background(), "b-1")
	require.NoError(t, err)
	assert.Empty(t, battle.FinalizationTxHash)
}

func TestReconcileResolvedStoresFinalizationTx(t *testing.T) {
	t.Parallel()

	escrow := &fakeEscrow{result: settlement.SettlementResult{TxHash: "0xpayout", Resolved: true}}
	service, store := newService(escrow)

	require.NoError(t, store.PutBattle(completedBattle(500)))

	battle, err := service.Reconcile(context.Background(), "b-1")
	require.NoError(t, err)

	assert.Equal(t, "0xpayout", battle.FinalizationTxHash)

	// Settlement moves money only: outcome and deltas are untouched.
	assert.Equal(t, "shard-a", battle.WinnerID)
	assert.Equal(t, 16, battle.Challenger.EloDelta)

	// Another pass is a no-op.
	battle, err = service.Reconcile(context.Background(), "b-1")
	require.NoError(t, err)
	assert.Equal(t, "0xpayout", battle.FinalizationTxHash)
	assert.Equal(t, 1, escrow.calls)
}

func TestReconcileNotCompletedWaits(t *testing.T) {
	t.Parallel()

	escrow := &fakeEscrow{result: settlement.SettlementResult{TxHash: "0xpayout", Resolved: true}}
	service, store := newService(escrow)

	seeded := completedBattle(500)
	seeded.Status = arena.StatusActive
	seeded.CompletedAt = nil
	seeded.WinnerID = ""

	require.NoError(t, store.PutBattle(seeded))

	battle, err := service.Reconcile(context.Background(), "b-1")
	require.NoError(t, err)

	assert.Empty(t, battle.FinalizationTxHash)
	assert.Equal(t, 0, escrow.calls)
}

func TestReconcileMissingBattle(t *testing.T) {
	t.Parallel()

	service, _ := newService(&fakeEscrow{})

	_, err := service.Reconcile(context.Background(), "nope")

	assert.ErrorIs(t, err, arena.ErrBattleNotFound)
}
