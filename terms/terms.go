package terms

import "github.com/openassets/auctionhouse/auction"

// MarketTerms is a struct that holds all dynamic terms the marketplace
// operator defines. They are owned by the governance collaborator and only
// read by the settlement engine.
type MarketTerms struct {
	// MakerFeeRateBps is the fee rate in basis points deducted from the
	// seller's proceeds on every sale.
	MakerFeeRateBps uint32

	// TakerFeeRateBps is the fee rate in basis points added on top of the
	// sale price and paid by the buyer.
	TakerFeeRateBps uint32

	// FeeRecipient is the identity all maker and taker fees are paid to.
	FeeRecipient auction.Identity

	// SupportedTokens is the set of fungible token identifiers accepted
	// as payment mediums. The native currency is always accepted.
	SupportedTokens []auction.Medium
}

// FeeSchedule returns the configured maker and taker rates as a FeeSchedule.
func (t *MarketTerms) FeeSchedule() FeeSchedule {
	return NewBpsFeeSchedule(t.MakerFeeRateBps, t.TakerFeeRateBps)
}
