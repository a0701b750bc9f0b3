package settlement_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Legatia/Siphon-sub001/internal/pkg/settlement"
)

func ledgerServer(t *testing.T, handler http.HandlerFunc) *settlement.LedgerClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return settlement.NewLedgerClient(server.URL, "contract-1")
}

func TestVerifyEscrowConfirmed(t *testing.T) {
	t.Parallel()

	client := ledgerServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/escrow/contract-1/0xabc", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"confirmed": true, "amount": 500}`))
	})

	assert.NoError(t, client.VerifyEscrow(context.Background(), "0xabc", 500))
}

func TestVerifyEscrowNotConfirmed(t *testing.T) {
	t.Parallel()

	client := ledgerServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"confirmed": false, "amount": 500}`))
	})

	err := client.VerifyEscrow(context.Background(), "0xabc", 500)

	assert.ErrorIs(t, err, settlement.ErrEscrowNotConfirmed)
}

func TestVerifyEscrowUnderfunded(t *testing.T) {
	t.Parallel()

	client := ledgerServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"confirmed": true, "amount": 100}`))
	})

	err := client.VerifyEscrow(context.Background(), "0xabc", 500)

	assert.ErrorIs(t, err, settlement.ErrEscrowUnderfunded)
}

func TestVerifyEscrowLedgerError(t *testing.T) {
	t.Parallel()

	client := ledgerServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "indexer catching up", http.StatusBadGateway)
	})

	err := client.VerifyEscrow(context.Background(), "0xabc", 500)

	assert.ErrorContains(t, err, "502")
}

func TestSettlementStatus(t *testing.T) {
	t.Parallel()

	client := ledgerServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/settlements/status", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "contract-1", body["contract"])
		assert.Equal(t, "b-1", body["battle_id"])
		assert.Equal(t, "0xescrow", body["escrow_tx_hash"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tx_hash": "0xpayout", "resolved": true}`))
	})

	result, err := client.SettlementStatus(context.Background(), "b-1", "0xescrow")
	require.NoError(t, err)

	assert.Equal(t, "0xpayout", result.TxHash)
	assert.True(t, result.Resolved)
}
