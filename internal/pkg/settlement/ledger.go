package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

var (
	ErrEscrowNotConfirmed = errors.New("escrow transaction not confirmed")
	ErrEscrowUnderfunded  = errors.New("escrow transaction doesn't cover the stake")
)

// LedgerClient talks to the escrow ledger indexer over JSON HTTP. The
// indexer fronts the staking contract and exposes deposit and payout
// lookups; this client never submits transactions.
type LedgerClient struct {
	Contract string

	Client *resty.Client
}

func NewLedgerClient(baseURL, contract string) *LedgerClient {
	return &LedgerClient{
		Contract: contract,
		Client:   resty.New().SetBaseURL(strings.TrimSuffix(baseURL, "/")),
	}
}

type escrowDeposit struct {
	Confirmed bool  `json:"confirmed"`
	Amount    int64 `json:"amount"`
}

func (c *LedgerClient) VerifyEscrow(ctx context.Context, escrowTxHash string, amount int64) error {
	var deposit escrowDeposit

	resp, err := c.Client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"contract": c.Contract,
			"tx":       escrowTxHash,
		}).
		SetResult(&deposit).
		Get("/escrow/{contract}/{tx}")
	if err != nil {
		return fmt.Errorf("ledger request failed: %w", err)
	}

	if resp.IsError() {
		return fmt.Errorf("ledger returned status %d", resp.StatusCode()) //nolint:err113
	}

	if !deposit.Confirmed {
		return ErrEscrowNotConfirmed
	}

	if deposit.Amount < amount {
		return ErrEscrowUnderfunded
	}

	return nil
}

func (c *LedgerClient) SettlementStatus(ctx context.Context, battleID, escrowTxHash string) (SettlementResult, error) {
	var result SettlementResult

	resp, err := c.Client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"contract":       c.Contract,
			"battle_id":      battleID,
			"escrow_tx_hash": escrowTxHash,
		}).
		SetResult(&result).
		Post("/settlements/status")
	if err != nil {
		return SettlementResult{}, fmt.Errorf("settlement query failed: %w", err)
	}

	if resp.IsError() {
		return SettlementResult{}, fmt.Errorf("ledger returned status %d", resp.StatusCode()) //nolint:err113
	}

	return result, nil
}
