// Package payment defines the capability interfaces the settlement engine
// uses to move funds, in either the ledger's native currency or a registered
// fungible payment token.
package payment

import (
	"context"

	"github.com/openassets/auctionhouse/auction"
)

// Ledger is the narrow fund movement capability. For fungible tokens, Pull
// debits the payer's balance through a pre-authorized allowance. For the
// native currency the engine never pulls: the caller supplies the exact
// amount together with the bid and the engine only pushes it out again.
type Ledger interface {
	// Pull debits amt from the payer's balance in the given medium. The
	// payer must have pre-authorized at least this amount.
	Pull(ctx context.Context, medium auction.Medium,
		payer auction.Identity, amt auction.Amount) error

	// Push credits amt to the recipient in the given medium.
	Push(ctx context.Context, medium auction.Medium,
		recipient auction.Identity, amt auction.Amount) error
}

// Registry reports which payment mediums are currently accepted. The set of
// supported tokens is owned by the governance collaborator; this engine only
// reads it.
type Registry interface {
	// Supported reports whether the given medium is accepted as payment.
	Supported(medium auction.Medium) bool
}

// StaticRegistry is a Registry backed by a fixed token set. The native
// currency is always supported.
type StaticRegistry map[auction.Medium]struct{}

// NewStaticRegistry creates a registry accepting the given token mediums.
func NewStaticRegistry(tokens ...auction.Medium) StaticRegistry {
	r := make(StaticRegistry, len(tokens))
	for _, t := range tokens {
		if t.IsNative() {
			continue
		}
		r[t] = struct{}{}
	}
	return r
}

// Supported reports whether the given medium is accepted as payment.
//
// NOTE: This method is part of the Registry interface.
func (r StaticRegistry) Supported(medium auction.Medium) bool {
	if medium.IsNative() {
		return true
	}
	_, ok := r[medium]
	return ok
}

// A compile time check to make certain that StaticRegistry implements the
// Registry interface.
var _ Registry = (StaticRegistry)(nil)
