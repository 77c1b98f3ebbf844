package terms

import (
	"math"
	"math/bits"

	"github.com/openassets/auctionhouse/auction"
)

// FeeRateTotalParts defines the granularity of all fee rates. Throughout the
// codebase we use fix based arithmetic in basis points to compute fees.
const FeeRateTotalParts = 10_000

// FeeSchedule is the configuration source the settlement engine uses to
// determine how much to charge on each side of a sale.
type FeeSchedule interface {
	// MakerFee computes the fee deducted from the seller's proceeds for
	// the given per-unit price.
	MakerFee(price auction.Amount) auction.Amount

	// TakerFee computes the fee added on top of the per-unit price and
	// paid by the buyer.
	TakerFee(price auction.Amount) auction.Amount
}

// BpsFeeSchedule is a FeeSchedule that calculates both fee sides from static
// rates in basis points.
type BpsFeeSchedule struct {
	makerRateBps uint32
	takerRateBps uint32
}

// NewBpsFeeSchedule creates a new fee schedule from a maker and a taker rate
// in basis points.
func NewBpsFeeSchedule(makerRateBps, takerRateBps uint32) *BpsFeeSchedule {
	return &BpsFeeSchedule{
		makerRateBps: makerRateBps,
		takerRateBps: takerRateBps,
	}
}

// MakerRate is the maker side fee rate in basis points.
func (s *BpsFeeSchedule) MakerRate() uint32 {
	return s.makerRateBps
}

// TakerRate is the taker side fee rate in basis points.
func (s *BpsFeeSchedule) TakerRate() uint32 {
	return s.takerRateBps
}

// MakerFee computes the fee deducted from the seller's proceeds for the
// given per-unit price.
//
// NOTE: This method is part of the FeeSchedule interface.
func (s *BpsFeeSchedule) MakerFee(price auction.Amount) auction.Amount {
	return bpsFee(price, s.makerRateBps)
}

// TakerFee computes the fee added on top of the per-unit price and paid by
// the buyer.
//
// NOTE: This method is part of the FeeSchedule interface.
func (s *BpsFeeSchedule) TakerFee(price auction.Amount) auction.Amount {
	return bpsFee(price, s.takerRateBps)
}

// This is a compile time check to make certain that BpsFeeSchedule
// implements the FeeSchedule interface.
var _ FeeSchedule = (*BpsFeeSchedule)(nil)

// RoyaltyFee computes the creator royalty for the given per-unit price and
// royalty rate in basis points. The royalty is deducted from the seller's
// proceeds, never charged to the buyer.
func RoyaltyFee(price auction.Amount, rateBps uint32) auction.Amount {
	return bpsFee(price, rateBps)
}

// bpsFee computes price * rateBps / FeeRateTotalParts without the
// intermediate product wrapping around the amount range. A rate so large
// that even the final quotient overflows is clamped to the maximum amount;
// the settlement layer rejects any split the price cannot cover.
func bpsFee(price auction.Amount, rateBps uint32) auction.Amount {
	hi, lo := bits.Mul64(uint64(price), uint64(rateBps))
	if hi >= FeeRateTotalParts {
		return auction.Amount(math.MaxUint64)
	}
	quo, _ := bits.Div64(hi, lo, FeeRateTotalParts)
	return auction.Amount(quo)
}
