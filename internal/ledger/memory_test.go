package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "greenhop/pkg/domain"
	dErrors "greenhop/pkg/domain-errors"
)

func TestInMemoryLedgerMintAndTransfer(t *testing.T) {
	treasury := id.MustAccountID("0.0.2")
	user := id.MustAccountID("0.0.12345")
	l := NewInMemory("0.0.777", treasury)
	ctx := context.Background()

	mintTx, err := l.Mint(ctx, 10, "trip reward")
	require.NoError(t, err)
	assert.Contains(t, mintTx.String(), "0.0.2@")

	transferTx, err := l.Transfer(ctx, user, 4)
	require.NoError(t, err)
	assert.NotEqual(t, mintTx, transferTx)

	userBal, err := l.Balance(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(4), userBal)

	treasuryBal, err := l.Balance(ctx, treasury)
	require.NoError(t, err)
	assert.Equal(t, int64(6), treasuryBal)

	info, err := l.TokenInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0.0.777", info.TokenID)
	assert.Equal(t, int64(10), info.TotalSupply)
}

func TestInMemoryLedgerTransferGuards(t *testing.T) {
	treasury := id.MustAccountID("0.0.2")
	l := NewInMemory("0.0.777", treasury)
	ctx := context.Background()

	// Insufficient treasury funds
	_, err := l.Transfer(ctx, id.MustAccountID("0.0.12345"), 1)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTransferFailed))

	// Zero account destination
	_, err = l.Transfer(ctx, id.AccountID{}, 1)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTransferFailed))

	// Non-positive amounts
	_, err = l.Mint(ctx, 0, "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeMintFailed))
	_, err = l.Transfer(ctx, id.MustAccountID("0.0.12345"), -1)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTransferFailed))
}

func TestInMemoryLedgerUnknownAccountBalance(t *testing.T) {
	l := NewInMemory("0.0.777", id.MustAccountID("0.0.2"))
	bal, err := l.Balance(context.Background(), id.MustAccountID("0.0.404"))
	require.NoError(t, err)
	assert.Zero(t, bal)
}
