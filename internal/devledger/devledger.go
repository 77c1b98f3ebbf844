// Package devledger provides in-memory implementations of the asset,
// payment and royalty interfaces. It backs the standalone daemon mode used
// for development and integration testing, where no real registry or
// payment rail is attached.
package devledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/openassets/auctionhouse/asset"
	"github.com/openassets/auctionhouse/auction"
	"github.com/openassets/auctionhouse/royalty"
)

// balanceKey addresses one identity's balance in one payment medium.
type balanceKey struct {
	medium auction.Medium
	id     auction.Identity
}

// Ledger is an in-memory world of asset registries, fund balances and
// royalty terms. The zero value is not usable, use New.
type Ledger struct {
	mtx sync.Mutex

	registries map[auction.RegistryID]*Registry
	royalties  map[auction.RegistryID]*royalty.Info
	balances   map[balanceKey]auction.Amount
	allowances map[balanceKey]auction.Amount
}

// New creates an empty dev ledger.
func New() *Ledger {
	return &Ledger{
		registries: make(map[auction.RegistryID]*Registry),
		royalties:  make(map[auction.RegistryID]*royalty.Info),
		balances:   make(map[balanceKey]auction.Amount),
		allowances: make(map[balanceKey]auction.Amount),
	}
}

// CreateRegistry adds a new asset registry of the given kind. Creating a
// registry that already exists returns the existing one, the kind must
// match in that case.
func (l *Ledger) CreateRegistry(id auction.RegistryID,
	kind auction.AssetKind) (*Registry, error) {

	l.mtx.Lock()
	defer l.mtx.Unlock()

	if existing, ok := l.registries[id]; ok {
		if existing.kind != kind {
			return nil, fmt.Errorf("registry %v already exists "+
				"with different kind", id)
		}
		return existing, nil
	}

	r := &Registry{
		ledger: l,
		kind:   kind,
		holdings: make(
			map[auction.UnitID]map[auction.Identity]auction.Quantity,
		),
	}
	l.registries[id] = r
	return r, nil
}

// SetRoyalty attaches royalty terms to a registry. A nil info clears them.
func (l *Ledger) SetRoyalty(id auction.RegistryID, info *royalty.Info) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	if info == nil {
		delete(l.royalties, id)
		return
	}
	l.royalties[id] = info
}

// Fund credits an identity's balance in the given medium out of thin air.
func (l *Ledger) Fund(medium auction.Medium, id auction.Identity,
	amt auction.Amount) {

	l.mtx.Lock()
	defer l.mtx.Unlock()

	l.balances[balanceKey{medium, id}] += amt
}

// Approve sets (not adds) the amount the settlement engine may pull from an
// identity's balance in the given medium.
func (l *Ledger) Approve(medium auction.Medium, id auction.Identity,
	amt auction.Amount) {

	l.mtx.Lock()
	defer l.mtx.Unlock()

	l.allowances[balanceKey{medium, id}] = amt
}

// Balance returns an identity's current balance in the given medium.
func (l *Ledger) Balance(medium auction.Medium,
	id auction.Identity) auction.Amount {

	l.mtx.Lock()
	defer l.mtx.Unlock()

	return l.balances[balanceKey{medium, id}]
}

// Registry looks up an asset registry.
//
// NOTE: This method is part of the asset.Provider interface.
func (l *Ledger) Registry(_ context.Context,
	id auction.RegistryID) (asset.Registry, error) {

	l.mtx.Lock()
	defer l.mtx.Unlock()

	r, ok := l.registries[id]
	if !ok {
		return nil, fmt.Errorf("unknown registry %v", id)
	}
	return r, nil
}

// Pull debits amt from the payer's balance, consuming their allowance.
//
// NOTE: This method is part of the payment.Ledger interface.
func (l *Ledger) Pull(_ context.Context, medium auction.Medium,
	payer auction.Identity, amt auction.Amount) error {

	l.mtx.Lock()
	defer l.mtx.Unlock()

	key := balanceKey{medium, payer}
	if l.allowances[key] < amt {
		return fmt.Errorf("allowance of %v too low to pull %v from "+
			"%v", l.allowances[key], amt, payer)
	}
	if l.balances[key] < amt {
		return fmt.Errorf("balance of %v too low to pull %v from %v",
			l.balances[key], amt, payer)
	}

	l.allowances[key] -= amt
	l.balances[key] -= amt
	return nil
}

// Push credits amt to the recipient's balance.
//
// NOTE: This method is part of the payment.Ledger interface.
func (l *Ledger) Push(_ context.Context, medium auction.Medium,
	recipient auction.Identity, amt auction.Amount) error {

	l.mtx.Lock()
	defer l.mtx.Unlock()

	l.balances[balanceKey{medium, recipient}] += amt
	return nil
}

// Lookup returns the royalty terms of a registry, nil if none are set.
//
// NOTE: This method is part of the royalty.Resolver interface.
func (l *Ledger) Lookup(_ context.Context,
	id auction.RegistryID) (*royalty.Info, error) {

	l.mtx.Lock()
	defer l.mtx.Unlock()

	return l.royalties[id], nil
}

var _ asset.Provider = (*Ledger)(nil)
var _ royalty.Resolver = (*Ledger)(nil)

// Registry is one in-memory asset registry of a fixed kind.
type Registry struct {
	ledger   *Ledger
	kind     auction.AssetKind
	holdings map[auction.UnitID]map[auction.Identity]auction.Quantity
}

// Mint credits units of an asset to a holder. For singleton registries the
// total supply of a unit may never exceed one.
func (r *Registry) Mint(unit auction.UnitID, holder auction.Identity,
	quantity auction.Quantity) error {

	r.ledger.mtx.Lock()
	defer r.ledger.mtx.Unlock()

	if r.kind == auction.KindSingleton {
		if quantity != 1 || len(r.holdings[unit]) > 0 {
			return fmt.Errorf("singleton unit %v already minted",
				unit)
		}
	}

	if r.holdings[unit] == nil {
		r.holdings[unit] = make(
			map[auction.Identity]auction.Quantity,
		)
	}
	r.holdings[unit][holder] += quantity
	return nil
}

// Kind returns the registry's asset kind.
//
// NOTE: This method is part of the asset.Registry interface.
func (r *Registry) Kind(_ context.Context) (auction.AssetKind, error) {
	return r.kind, nil
}

// Holding returns how many units of an asset the holder currently owns.
//
// NOTE: This method is part of the asset.Registry interface.
func (r *Registry) Holding(_ context.Context, unit auction.UnitID,
	holder auction.Identity) (auction.Quantity, error) {

	r.ledger.mtx.Lock()
	defer r.ledger.mtx.Unlock()

	holders, ok := r.holdings[unit]
	if !ok {
		return 0, asset.ErrUnitNotFound
	}
	return holders[holder], nil
}

// Transfer moves units of an asset between two identities.
//
// NOTE: This method is part of the asset.Registry interface.
func (r *Registry) Transfer(_ context.Context, unit auction.UnitID,
	from, to auction.Identity, quantity auction.Quantity) error {

	r.ledger.mtx.Lock()
	defer r.ledger.mtx.Unlock()

	holders, ok := r.holdings[unit]
	if !ok {
		return asset.ErrUnitNotFound
	}
	if holders[from] < quantity {
		return fmt.Errorf("holding of %d too low to transfer %d "+
			"units of %v", holders[from], quantity, unit)
	}

	holders[from] -= quantity
	holders[to] += quantity
	return nil
}

var _ asset.Registry = (*Registry)(nil)
