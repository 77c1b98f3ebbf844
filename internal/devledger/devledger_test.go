package devledger

import (
	"context"
	"testing"

	"github.com/openassets/auctionhouse/asset"
	"github.com/openassets/auctionhouse/auction"
	"github.com/stretchr/testify/require"
)

// TestLedgerPayments checks the allowance-gated pull and the push path.
func TestLedgerPayments(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger := New()

	const (
		token auction.Medium   = "usdx"
		alice auction.Identity = "alice"
		bob   auction.Identity = "bob"
	)

	ledger.Fund(token, alice, 100)

	// Without an allowance nothing can be pulled, no matter the balance.
	err := ledger.Pull(ctx, token, alice, 10)
	require.ErrorContains(t, err, "allowance")

	ledger.Approve(token, alice, 60)
	require.NoError(t, ledger.Pull(ctx, token, alice, 40))
	require.Equal(t, auction.Amount(60), ledger.Balance(token, alice))

	// The allowance is consumed by pulls, 20 of the 60 remain.
	err = ledger.Pull(ctx, token, alice, 30)
	require.ErrorContains(t, err, "allowance")

	// A pull above the balance fails even with sufficient allowance.
	ledger.Approve(token, alice, 1000)
	err = ledger.Pull(ctx, token, alice, 70)
	require.ErrorContains(t, err, "balance")

	require.NoError(t, ledger.Push(ctx, token, bob, 40))
	require.Equal(t, auction.Amount(40), ledger.Balance(token, bob))
}

// TestLedgerAssets checks minting, holdings and transfers.
func TestLedgerAssets(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger := New()

	singles, err := ledger.CreateRegistry(
		"art", auction.KindSingleton,
	)
	require.NoError(t, err)

	// Recreating with the same kind returns the same registry,
	// recreating with another kind fails.
	again, err := ledger.CreateRegistry("art", auction.KindSingleton)
	require.NoError(t, err)
	require.Same(t, singles, again)
	_, err = ledger.CreateRegistry("art", auction.KindQuantized)
	require.ErrorContains(t, err, "different kind")

	require.NoError(t, singles.Mint("mona-lisa", "alice", 1))

	// A singleton can only ever exist once.
	err = singles.Mint("mona-lisa", "bob", 1)
	require.ErrorContains(t, err, "already minted")

	holding, err := singles.Holding(ctx, "mona-lisa", "alice")
	require.NoError(t, err)
	require.EqualValues(t, 1, holding)

	_, err = singles.Holding(ctx, "no-such-unit", "alice")
	require.ErrorIs(t, err, asset.ErrUnitNotFound)

	// Transfers respect the sender's holding.
	err = singles.Transfer(ctx, "mona-lisa", "bob", "carol", 1)
	require.ErrorContains(t, err, "too low")

	require.NoError(
		t, singles.Transfer(ctx, "mona-lisa", "alice", "bob", 1),
	)
	holding, err = singles.Holding(ctx, "mona-lisa", "bob")
	require.NoError(t, err)
	require.EqualValues(t, 1, holding)
}
