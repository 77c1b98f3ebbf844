// Package asset defines the capability interfaces the settlement engine uses
// to verify and move asset ownership. The engine depends only on these
// interfaces, never on a concrete registry implementation.
package asset

import (
	"context"
	"errors"

	"github.com/openassets/auctionhouse/auction"
)

// ErrUnitNotFound is returned by a registry when the asset unit identifier
// itself is unknown, as opposed to a holder simply having a zero balance.
var ErrUnitNotFound = errors.New("asset unit not found in registry")

// Registry is the narrow capability over a single asset registry. For
// singleton registries Holding reports 1 for the current owner and 0 for
// everyone else; for quantized registries it reports the holder's integer
// balance of the unit.
type Registry interface {
	// Kind returns the kind of assets the registry tracks.
	Kind(ctx context.Context) (auction.AssetKind, error)

	// Holding returns how many units of the given identifier the holder
	// currently has. ErrUnitNotFound is returned if the unit identifier
	// itself does not exist.
	Holding(ctx context.Context, unit auction.UnitID,
		holder auction.Identity) (auction.Quantity, error)

	// Transfer moves qty units of the given identifier from one holder
	// to another in a single all-or-nothing step.
	Transfer(ctx context.Context, unit auction.UnitID, from,
		to auction.Identity, qty auction.Quantity) error
}

// Provider resolves registry identifiers to registry capabilities.
type Provider interface {
	// Registry returns the capability for the given registry identifier
	// or an error if no such registry exists.
	Registry(ctx context.Context, id auction.RegistryID) (Registry, error)
}
