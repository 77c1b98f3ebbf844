package terms

import (
	"testing"

	"github.com/openassets/auctionhouse/auction"
	"github.com/stretchr/testify/require"
)

// TestBpsFeeSchedule checks the maker and taker fee math against hand
// computed values.
func TestBpsFeeSchedule(t *testing.T) {
	t.Parallel()

	// 2.5% maker, 3% taker.
	schedule := NewBpsFeeSchedule(250, 300)
	require.EqualValues(t, 250, schedule.MakerRate())
	require.EqualValues(t, 300, schedule.TakerRate())

	// On a price of 0.2: maker 0.005, taker 0.006.
	price := 20 * auction.UnitAmount / 100
	require.Equal(t, 5*auction.UnitAmount/1000, schedule.MakerFee(price))
	require.Equal(t, 6*auction.UnitAmount/1000, schedule.TakerFee(price))

	// Fees truncate toward zero, a price below the rate granularity pays
	// nothing.
	require.Equal(t, auction.Amount(0), schedule.MakerFee(39))
	require.Equal(t, auction.Amount(0), schedule.TakerFee(33))
	require.Equal(t, auction.Amount(1), schedule.MakerFee(40))

	// A zero rate schedule charges nothing at all.
	free := NewBpsFeeSchedule(0, 0)
	require.Equal(t, auction.Amount(0), free.MakerFee(price))
	require.Equal(t, auction.Amount(0), free.TakerFee(price))
}

// TestBpsFeeLargePrice makes sure the fee math stays exact when the
// intermediate price times rate product exceeds 64 bits.
func TestBpsFeeLargePrice(t *testing.T) {
	t.Parallel()

	schedule := NewBpsFeeSchedule(250, 300)

	// 2^63 * 250 does not fit into 64 bits anymore. The correct quotient
	// is 2^63 / 40.
	price := auction.Amount(1) << 63
	require.Equal(t, auction.Amount(230584300921369395),
		schedule.MakerFee(price))

	// The same holds at the very top of the amount range.
	maxPrice := auction.Amount(1<<64 - 1)
	require.Equal(t, auction.Amount(553402322211286548),
		schedule.TakerFee(maxPrice))

	// A rate so absurd that even the quotient overflows clamps to the
	// maximum, which no unit price can ever cover.
	require.Equal(t, auction.Amount(1<<64-1),
		RoyaltyFee(maxPrice, 1<<32-1))
}

// TestRoyaltyFee checks the creator royalty math.
func TestRoyaltyFee(t *testing.T) {
	t.Parallel()

	// 10% of 0.2 is 0.02.
	price := 20 * auction.UnitAmount / 100
	require.Equal(t, 2*auction.UnitAmount/100, RoyaltyFee(price, 1000))

	// A full rate royalty consumes the whole price.
	require.Equal(t, price, RoyaltyFee(price, FeeRateTotalParts))
	require.Equal(t, auction.Amount(0), RoyaltyFee(price, 0))
}
