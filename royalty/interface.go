// Package royalty defines the resolver capability mapping asset collections
// to their creator royalty terms.
package royalty

import (
	"context"

	"github.com/openassets/auctionhouse/auction"
)

// Info holds the royalty terms of one asset collection.
type Info struct {
	// Recipient is the identity the royalty is paid to.
	Recipient auction.Identity

	// RateBps is the royalty rate in basis points of the per-unit sale
	// price. The royalty is deducted from the seller's proceeds.
	RateBps uint32
}

// Resolver looks up royalty terms per asset collection.
type Resolver interface {
	// Lookup returns the royalty terms for the given registry, or nil if
	// the collection has no royalty configured.
	Lookup(ctx context.Context, registry auction.RegistryID) (*Info, error)
}
