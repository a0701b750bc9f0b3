package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/do/v2"

	"github.com/Legatia/Siphon-sub001/internal/pkg/arena"
)

// ChainEscrow is the on-chain ledger capability. VerifyEscrow confirms a
// deposit backing a staked battle; SettlementStatus polls for the payout
// transaction tied to a completed battle.
type ChainEscrow interface {
	VerifyEscrow(ctx context.Context, escrowTxHash string, amount int64) error
	SettlementStatus(ctx context.Context, battleID, escrowTxHash string) (SettlementResult, error)
}

type SettlementResult struct {
	TxHash   string `json:"tx_hash"`
	Resolved bool   `json:"resolved"`
}

type SettlementService struct {
	Store  arena.Store
	Escrow ChainEscrow

	Timeout time.Duration
}

func NewSettlementService(i do.Injector) (*SettlementService, error) {
	store, err := do.Invoke[arena.Store](i)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	chainRPCURL := do.MustInvokeNamed[string](i, "chain-rpc-url")
	escrowContract := do.MustInvokeNamed[string](i, "escrow-contract")
	chainTimeoutSeconds := do.MustInvokeNamed[int](i, "chain-timeout-seconds")

	result := &SettlementService{
		Store:   store,
		Escrow:  nil,
		Timeout: time.Duration(chainTimeoutSeconds) * time.Second,
	}

	if chainRPCURL != "" {
		result.Escrow = NewLedgerClient(chainRPCURL, escrowContract)
	}

	return result, nil
}

// Reconcile syncs a completed battle's stake payout with the escrow ledger.
// It is a polling operation: when the ledger is unreachable or the payout
// is still pending, the battle comes back unchanged and the caller retries
// later. Reconcile never touches the winner or any score.
func (s *SettlementService) Reconcile(ctx context.Context, battleID string) (*arena.Battle, error) {
	battle, err := s.Store.GetBattle(battleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load battle: %w", err)
	}

	if battle == nil {
		return nil, arena.ErrBattleNotFound
	}

	if battle.StakeAmount <= 0 || battle.FinalizationTxHash != "" {
		return battle, nil
	}

	if battle.Status != arena.StatusCompleted || s.Escrow == nil {
		return battle, nil
	}

	statusCtx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	result, err := s.Escrow.SettlementStatus(statusCtx, battle.ID, battle.EscrowTxHash)
	if err != nil || !result.Resolved {
		// Not yet reconciled; retryable by the caller.
		return battle, nil
	}

	battle, err = s.Store.UpdateBattle(battle.ID, func(b *arena.Battle) error {
		if b.FinalizationTxHash == "" {
			b.FinalizationTxHash = result.TxHash
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store finalization tx: %w", err)
	}

	return battle, nil
}
