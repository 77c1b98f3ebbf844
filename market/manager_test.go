package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openassets/auctionhouse/auction"
	"github.com/openassets/auctionhouse/event"
	"github.com/openassets/auctionhouse/marketdb"
	"github.com/openassets/auctionhouse/payment"
	"github.com/openassets/auctionhouse/royalty"
	"github.com/openassets/auctionhouse/terms"
	"github.com/stretchr/testify/require"
)

const (
	testSeller  auction.Identity = "seller-1"
	testBuyer   auction.Identity = "buyer-1"
	testFeePool auction.Identity = "fee-pool"
	testCreator auction.Identity = "creator-1"

	testRegistryID auction.RegistryID = "registry-1"
	testUnitID     auction.UnitID     = "unit-1"

	testToken auction.Medium = "usdx"
)

var testStart = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// coins converts a value expressed in hundredths of a whole unit into an
// amount, so coins(44) is 0.44.
func coins(hundredths uint64) auction.Amount {
	return auction.Amount(hundredths) * auction.UnitAmount / 100
}

type testHarness struct {
	t *testing.T

	store     *marketdb.DB
	assets    *mockAssets
	registry  *mockRegistry
	ledger    *mockLedger
	royalties *mockRoyalties
	clock     *TestClock

	manager *Manager
}

func newTestHarness(t *testing.T, kind auction.AssetKind) *testHarness {
	t.Helper()

	store, err := marketdb.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	registry := newMockRegistry(kind)
	assets := newMockAssets()
	assets.registries[testRegistryID] = registry

	ledger := &mockLedger{}
	royalties := &mockRoyalties{
		infos: make(map[auction.RegistryID]*royalty.Info),
	}
	clock := NewTestClock(testStart)

	manager := NewManager(&ManagerConfig{
		Store:           store,
		Assets:          assets,
		Payments:        ledger,
		PaymentRegistry: payment.NewStaticRegistry(testToken),
		Royalties:       royalties,
		FeeSchedule:     terms.NewBpsFeeSchedule(250, 300),
		FeeRecipient:    testFeePool,
		Clock:           clock,
	})

	return &testHarness{
		t:         t,
		store:     store,
		assets:    assets,
		registry:  registry,
		ledger:    ledger,
		royalties: royalties,
		clock:     clock,
		manager:   manager,
	}
}

// defaultParams returns a valid set of listing parameters matching the
// harness' mock registry.
func (h *testHarness) defaultParams(
	kind auction.AssetKind) *CreateParams {

	quantity := auction.Quantity(1)
	if kind == auction.KindQuantized {
		quantity = 3
	}
	return &CreateParams{
		Seller:        testSeller,
		AssetRegistry: testRegistryID,
		AssetUnit:     testUnitID,
		AssetKind:     kind,
		StartingPrice: coins(100),
		EndingPrice:   coins(20),
		Duration:      1000 * time.Second,
		Quantity:      quantity,
		PaymentMedium: auction.MediumNative,
	}
}

func (h *testHarness) create(params *CreateParams) *auction.Auction {
	h.t.Helper()

	a, err := h.manager.CreateAuction(context.Background(), params)
	require.NoError(h.t, err)
	return a
}

func (h *testHarness) bid(id auction.ID, quantity auction.Quantity,
	supplied auction.Amount) (*auction.Sale, error) {

	return h.manager.Bid(
		context.Background(), testBuyer, id, quantity, supplied,
	)
}

// TestCreateAuctionValidation makes sure invalid listing parameters are
// rejected with the right error.
func TestCreateAuctionValidation(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		kind        auction.AssetKind
		mutate      func(*CreateParams)
		expectedErr error
	}{{
		name: "unknown registry",
		kind: auction.KindSingleton,
		mutate: func(p *CreateParams) {
			p.AssetRegistry = "no-such-registry"
		},
		expectedErr: auction.ErrAssetDoesNotExist,
	}, {
		name: "unknown unit",
		kind: auction.KindSingleton,
		mutate: func(p *CreateParams) {
			p.AssetUnit = "no-such-unit"
		},
		expectedErr: auction.ErrAssetDoesNotExist,
	}, {
		name: "seller does not hold asset",
		kind: auction.KindSingleton,
		mutate: func(p *CreateParams) {
			p.Seller = "somebody-else"
		},
		expectedErr: auction.ErrSellerNotAssetOwner,
	}, {
		name: "insufficient quantized holding",
		kind: auction.KindQuantized,
		mutate: func(p *CreateParams) {
			p.Quantity = 100
		},
		expectedErr: auction.ErrSellerNotAssetOwner,
	}, {
		name: "duration at minimum",
		kind: auction.KindSingleton,
		mutate: func(p *CreateParams) {
			p.Duration = time.Second
		},
		expectedErr: auction.ErrInvalidDuration,
	}, {
		name: "duration too long",
		kind: auction.KindSingleton,
		mutate: func(p *CreateParams) {
			p.Duration = auction.MaxAuctionDuration + time.Second
		},
		expectedErr: auction.ErrInvalidDuration,
	}, {
		name: "singleton quantity above one",
		kind: auction.KindSingleton,
		mutate: func(p *CreateParams) {
			p.Quantity = 2
		},
		expectedErr: auction.ErrInvalidAmount,
	}, {
		name: "quantized quantity zero",
		kind: auction.KindQuantized,
		mutate: func(p *CreateParams) {
			p.Quantity = 0
		},
		expectedErr: auction.ErrInvalidAmount,
	}, {
		name: "unsupported payment token",
		kind: auction.KindSingleton,
		mutate: func(p *CreateParams) {
			p.PaymentMedium = "no-such-token"
		},
		expectedErr: auction.ErrInvalidPaymentMethod,
	}, {
		name: "declared kind disagrees with registry",
		kind: auction.KindQuantized,
		mutate: func(p *CreateParams) {
			p.AssetKind = auction.KindSingleton
			p.Quantity = 1
		},
		expectedErr: auction.ErrInvalidAssetInterface,
	}}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := newTestHarness(t, tc.kind)
			h.registry.mint(testUnitID, testSeller, 10)

			params := h.defaultParams(tc.kind)
			tc.mutate(params)

			_, err := h.manager.CreateAuction(
				context.Background(), params,
			)
			require.ErrorIs(t, err, tc.expectedErr)
		})
	}
}

// TestCreateAuctionReplace asserts that re-listing the same asset by the
// same seller replaces the existing record, discarding its unsold
// remainder.
func TestCreateAuctionReplace(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, auction.KindQuantized)
	h.registry.mint(testUnitID, testSeller, 10)

	params := h.defaultParams(auction.KindQuantized)
	params.Quantity = 5
	params.StartingPrice = coins(20)
	params.EndingPrice = coins(20)
	first := h.create(params)

	// Sell two units so the stored remainder differs from the listed
	// quantity.
	unitTotal := coins(20) + coins(20)*300/10000
	_, err := h.bid(first.ID(), 2, unitTotal*2)
	require.NoError(t, err)

	stored, err := h.manager.GetAuction(first.ID())
	require.NoError(t, err)
	require.EqualValues(t, 3, stored.RemainingQuantity)

	// The replacement lists only three units and a new price.
	params.Quantity = 3
	params.StartingPrice = coins(50)
	params.EndingPrice = coins(50)
	second := h.create(params)
	require.Equal(t, first.ID(), second.ID())

	stored, err = h.manager.GetAuction(first.ID())
	require.NoError(t, err)
	require.EqualValues(t, 3, stored.RemainingQuantity)
	require.Equal(t, coins(50), stored.StartingPrice)
}

// TestGetCurrentPrice walks the price down the linear curve.
func TestGetCurrentPrice(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, auction.KindSingleton)
	h.registry.mint(testUnitID, testSeller, 1)

	// 1.00 down to 0.20 over 1000 seconds.
	a := h.create(h.defaultParams(auction.KindSingleton))

	price, err := h.manager.GetCurrentPrice(a.ID())
	require.NoError(t, err)
	require.Equal(t, coins(100), price)

	h.clock.SetTime(testStart.Add(700 * time.Second))
	price, err = h.manager.GetCurrentPrice(a.ID())
	require.NoError(t, err)
	require.Equal(t, coins(44), price)

	h.clock.SetTime(testStart.Add(800 * time.Second))
	price, err = h.manager.GetCurrentPrice(a.ID())
	require.NoError(t, err)
	require.Equal(t, coins(36), price)

	// Past the end of the curve the price stays pinned to the floor.
	h.clock.SetTime(testStart.Add(5000 * time.Second))
	price, err = h.manager.GetCurrentPrice(a.ID())
	require.NoError(t, err)
	require.Equal(t, coins(20), price)

	_, err = h.manager.GetCurrentPrice(auction.ID{1, 2, 3})
	require.ErrorIs(t, err, auction.ErrNoAuction)
}

// TestBidNativeSettlement settles a singleton sale in the native medium and
// checks the exact four way split of the buyer's payment.
func TestBidNativeSettlement(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, auction.KindSingleton)
	h.registry.mint(testUnitID, testSeller, 1)
	h.royalties.infos[testRegistryID] = &royalty.Info{
		Recipient: testCreator,
		RateBps:   1000,
	}

	a := h.create(h.defaultParams(auction.KindSingleton))

	// Let the price run all the way down to 0.20. With a 3% taker fee
	// the buyer owes exactly 0.206.
	h.clock.SetTime(testStart.Add(2000 * time.Second))

	// A mismatched native amount is rejected outright, in both
	// directions.
	_, err := h.bid(a.ID(), 1, coins(20))
	require.ErrorIs(t, err, auction.ErrInvalidValueProvided)
	_, err = h.bid(a.ID(), 1, coins(21))
	require.ErrorIs(t, err, auction.ErrInvalidValueProvided)

	total := coins(20) + coins(20)*300/10000
	sale, err := h.bid(a.ID(), 1, total)
	require.NoError(t, err)
	require.Equal(t, coins(20), sale.UnitPrice)

	// Maker 2.5% of 0.20 is 0.005, taker 3% is 0.006, royalty 10% is
	// 0.02. The seller nets 0.20 - 0.005 - 0.02 = 0.175.
	require.Equal(t, coins(20)*250/10000+coins(20)*300/10000,
		sale.TotalFee)
	require.Equal(t, auction.Amount(17500000), h.ledger.paidTo(testSeller))
	require.Equal(t, auction.Amount(1100000), h.ledger.paidTo(testFeePool))
	require.Equal(t, auction.Amount(2000000), h.ledger.paidTo(testCreator))

	// The payout legs together spend exactly what the buyer supplied.
	payoutSum := h.ledger.paidTo(testSeller) +
		h.ledger.paidTo(testFeePool) + h.ledger.paidTo(testCreator)
	require.Equal(t, total, payoutSum)

	// The asset moved and the auction concluded.
	require.Len(t, h.registry.transfers, 1)
	require.Equal(t, testBuyer, h.registry.transfers[0].to)
	_, err = h.manager.GetAuction(a.ID())
	require.ErrorIs(t, err, auction.ErrNoAuction)

	// The sale made it into the event log.
	events, err := h.store.AllEvents(event.TypeAuctionSale)
	require.NoError(t, err)
	require.Len(t, events, 1)
}

// TestBidTokenSettlement settles a sale paid in a registered token. The
// buyer's side is pulled from their token balance, no native funds may be
// supplied.
func TestBidTokenSettlement(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, auction.KindSingleton)
	h.registry.mint(testUnitID, testSeller, 1)

	params := h.defaultParams(auction.KindSingleton)
	params.PaymentMedium = testToken
	params.StartingPrice = coins(20)
	params.EndingPrice = coins(20)
	a := h.create(params)

	_, err := h.bid(a.ID(), 1, coins(20))
	require.ErrorIs(t, err, auction.ErrInvalidValueProvided)

	sale, err := h.bid(a.ID(), 1, 0)
	require.NoError(t, err)

	// Price plus taker fee is collected from the buyer in one pull.
	expectedPull := coins(20) + coins(20)*300/10000
	require.Equal(t, expectedPull, h.ledger.pulledFrom(testBuyer))
	require.Equal(t, expectedPull,
		sale.UnitPrice+coins(20)*300/10000)

	// The seller is paid in the token medium as well.
	require.Equal(t, testToken, h.ledger.payments[0].medium)
	require.Equal(t, coins(20)-coins(20)*250/10000,
		h.ledger.paidTo(testSeller))
}

// TestBidPartialFulfillment buys a quantized listing down in steps.
func TestBidPartialFulfillment(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, auction.KindQuantized)
	h.registry.mint(testUnitID, testSeller, 3)

	params := h.defaultParams(auction.KindQuantized)
	params.StartingPrice = coins(20)
	params.EndingPrice = coins(20)
	a := h.create(params)

	unitTotal := coins(20) + coins(20)*300/10000

	// More than the remainder is rejected without touching the record.
	_, err := h.bid(a.ID(), 4, unitTotal*4)
	require.ErrorIs(t, err, auction.ErrInvalidAmount)
	_, err = h.bid(a.ID(), 0, 0)
	require.ErrorIs(t, err, auction.ErrInvalidAmount)

	// A bid wrong on both the supplied amount and the quantity reports
	// the payment mismatch, that check runs first.
	_, err = h.bid(a.ID(), 4, unitTotal)
	require.ErrorIs(t, err, auction.ErrInvalidValueProvided)

	sale, err := h.bid(a.ID(), 2, unitTotal*2)
	require.NoError(t, err)
	require.EqualValues(t, 2, sale.Quantity)

	stored, err := h.manager.GetAuction(a.ID())
	require.NoError(t, err)
	require.EqualValues(t, 1, stored.RemainingQuantity)

	// The last unit concludes the auction.
	_, err = h.bid(a.ID(), 1, unitTotal)
	require.NoError(t, err)
	_, err = h.bid(a.ID(), 1, unitTotal)
	require.ErrorIs(t, err, auction.ErrNoAuction)

	// Both sales are in the event log, including the concluding one.
	events, err := h.store.AllEvents(event.TypeAuctionSale)
	require.NoError(t, err)
	require.Len(t, events, 2)
}

// TestBidRollback makes sure a failed external transfer restores the
// auction record and leaves no sale record behind.
func TestBidRollback(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, auction.KindQuantized)
	h.registry.mint(testUnitID, testSeller, 3)

	params := h.defaultParams(auction.KindQuantized)
	params.StartingPrice = coins(20)
	params.EndingPrice = coins(20)
	a := h.create(params)

	h.registry.transferErr = errors.New("registry offline")

	unitTotal := coins(20) + coins(20)*300/10000
	_, err := h.bid(a.ID(), 2, unitTotal*2)
	require.ErrorContains(t, err, "registry offline")

	// The record is back to its pre-bid state.
	stored, err := h.manager.GetAuction(a.ID())
	require.NoError(t, err)
	require.EqualValues(t, 3, stored.RemainingQuantity)

	// No sale record was written for the rolled back settlement.
	events, err := h.store.AllEvents(event.TypeAuctionSale)
	require.NoError(t, err)
	require.Len(t, events, 0)

	// Once the registry recovers the same bid goes through.
	h.registry.transferErr = nil
	_, err = h.bid(a.ID(), 2, unitTotal*2)
	require.NoError(t, err)
}

// TestBidReentrancy re-enters the manager from within a payout and asserts
// the inner call observes the already mutated store.
func TestBidReentrancy(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, auction.KindSingleton)
	h.registry.mint(testUnitID, testSeller, 1)

	params := h.defaultParams(auction.KindSingleton)
	params.StartingPrice = coins(20)
	params.EndingPrice = coins(20)
	a := h.create(params)

	total := coins(20) + coins(20)*300/10000

	// The seller payout sneakily tries to buy the same singleton again.
	var innerErr error
	var reentered bool
	h.ledger.onPush = func(recipient auction.Identity,
		_ auction.Amount) {

		if recipient != testSeller || reentered {
			return
		}
		reentered = true
		_, innerErr = h.bid(a.ID(), 1, total)
	}

	_, err := h.bid(a.ID(), 1, total)
	require.NoError(t, err)
	require.True(t, reentered)
	require.ErrorIs(t, innerErr, auction.ErrNoAuction)

	// Only one unit ever moved.
	require.Len(t, h.registry.transfers, 1)
}

// TestBidOverflow makes sure a bid whose required payment would wrap around
// the amount range is rejected instead of being settled for the wrapped,
// near-zero total.
func TestBidOverflow(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, auction.KindQuantized)
	quantity := auction.Quantity(1) << 32
	h.registry.mint(testUnitID, testSeller, quantity)

	params := h.defaultParams(auction.KindQuantized)
	params.Quantity = quantity
	params.StartingPrice = auction.Amount(1) << 32
	params.EndingPrice = auction.Amount(1) << 32
	a := h.create(params)

	// (price + taker fee) * 2^32 exceeds the amount range. No supplied
	// amount may satisfy such a bid, least of all the wrapped product.
	_, err := h.bid(a.ID(), quantity, 0)
	require.ErrorIs(t, err, auction.ErrInvalidValueProvided)

	// Neither funds nor assets moved and the record is untouched.
	require.Len(t, h.registry.transfers, 0)
	require.Len(t, h.ledger.payments, 0)
	stored, err := h.manager.GetAuction(a.ID())
	require.NoError(t, err)
	require.Equal(t, quantity, stored.RemainingQuantity)
}

// TestBidReentrantCancel cancels the auction from within a payout while the
// asset transfer afterwards fails. The committed cancellation must survive
// the rollback instead of being overwritten by the pre-bid snapshot.
func TestBidReentrantCancel(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, auction.KindQuantized)
	h.registry.mint(testUnitID, testSeller, 3)

	params := h.defaultParams(auction.KindQuantized)
	params.StartingPrice = coins(20)
	params.EndingPrice = coins(20)
	a := h.create(params)

	h.registry.transferErr = errors.New("registry offline")

	// The seller pulls the listing the moment their payout arrives.
	var cancelErr error
	var canceled bool
	h.ledger.onPush = func(recipient auction.Identity,
		_ auction.Amount) {

		if recipient != testSeller || canceled {
			return
		}
		canceled = true
		cancelErr = h.manager.CancelAuction(testSeller, a.ID())
	}

	unitTotal := coins(20) + coins(20)*300/10000
	_, err := h.bid(a.ID(), 2, unitTotal*2)
	require.ErrorContains(t, err, "registry offline")
	require.True(t, canceled)
	require.NoError(t, cancelErr)

	// The cancellation is final, the rollback did not resurrect the
	// record.
	_, err = h.manager.GetAuction(a.ID())
	require.ErrorIs(t, err, auction.ErrNoAuction)

	events, err := h.store.AllEvents(event.TypeAuctionCanceled)
	require.NoError(t, err)
	require.Len(t, events, 1)

	// And the failed settlement still left no sale record behind.
	events, err = h.store.AllEvents(event.TypeAuctionSale)
	require.NoError(t, err)
	require.Len(t, events, 0)
}

// TestBidRoyaltyExceedsPrice aborts the sale when the seller side fees
// cannot be carved out of the unit price.
func TestBidRoyaltyExceedsPrice(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, auction.KindSingleton)
	h.registry.mint(testUnitID, testSeller, 1)
	h.royalties.infos[testRegistryID] = &royalty.Info{
		Recipient: testCreator,
		RateBps:   9900,
	}

	params := h.defaultParams(auction.KindSingleton)
	params.StartingPrice = coins(20)
	params.EndingPrice = coins(20)
	a := h.create(params)

	// Maker 2.5% plus royalty 99% exceed the price, the sale must fail
	// and the record stay live.
	total := coins(20) + coins(20)*300/10000
	_, err := h.bid(a.ID(), 1, total)
	require.ErrorContains(t, err, "exceed unit price")

	stored, err := h.manager.GetAuction(a.ID())
	require.NoError(t, err)
	require.EqualValues(t, 1, stored.RemainingQuantity)
}

// TestCancelAuction checks the cancellation authorization rules.
func TestCancelAuction(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, auction.KindSingleton)
	h.registry.mint(testUnitID, testSeller, 1)

	a := h.create(h.defaultParams(auction.KindSingleton))

	// Only the seller may cancel; anybody else gets the same error as
	// for a record that doesn't exist.
	err := h.manager.CancelAuction(testBuyer, a.ID())
	require.ErrorIs(t, err, auction.ErrUnauthorized)

	err = h.manager.CancelAuction(testSeller, a.ID())
	require.NoError(t, err)

	// The record is gone, a second cancel looks just like a cancel of a
	// record that never existed.
	err = h.manager.CancelAuction(testSeller, a.ID())
	require.ErrorIs(t, err, auction.ErrUnauthorized)

	_, err = h.bid(a.ID(), 1, coins(20))
	require.ErrorIs(t, err, auction.ErrNoAuction)

	events, err := h.store.AllEvents(event.TypeAuctionCanceled)
	require.NoError(t, err)
	require.Len(t, events, 1)
}
