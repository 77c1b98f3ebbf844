package market

import (
	"context"
	"fmt"
	"sync"

	"github.com/openassets/auctionhouse/asset"
	"github.com/openassets/auctionhouse/auction"
	"github.com/openassets/auctionhouse/royalty"
)

// mockRegistry is an in-memory asset registry with adjustable holdings and
// an optional transfer failure.
type mockRegistry struct {
	sync.Mutex

	kind     auction.AssetKind
	holdings map[auction.UnitID]map[auction.Identity]auction.Quantity

	kindErr     error
	transferErr error

	transfers []mockTransfer
}

type mockTransfer struct {
	unit     auction.UnitID
	from, to auction.Identity
	quantity auction.Quantity
}

func newMockRegistry(kind auction.AssetKind) *mockRegistry {
	return &mockRegistry{
		kind: kind,
		holdings: make(
			map[auction.UnitID]map[auction.Identity]auction.Quantity,
		),
	}
}

func (r *mockRegistry) mint(unit auction.UnitID, holder auction.Identity,
	quantity auction.Quantity) {

	r.Lock()
	defer r.Unlock()

	if r.holdings[unit] == nil {
		r.holdings[unit] = make(map[auction.Identity]auction.Quantity)
	}
	r.holdings[unit][holder] += quantity
}

func (r *mockRegistry) Kind(_ context.Context) (auction.AssetKind, error) {
	if r.kindErr != nil {
		return 0, r.kindErr
	}
	return r.kind, nil
}

func (r *mockRegistry) Holding(_ context.Context, unit auction.UnitID,
	holder auction.Identity) (auction.Quantity, error) {

	r.Lock()
	defer r.Unlock()

	holders, ok := r.holdings[unit]
	if !ok {
		return 0, asset.ErrUnitNotFound
	}
	return holders[holder], nil
}

func (r *mockRegistry) Transfer(_ context.Context, unit auction.UnitID,
	from, to auction.Identity, quantity auction.Quantity) error {

	r.Lock()
	defer r.Unlock()

	if r.transferErr != nil {
		return r.transferErr
	}

	holders, ok := r.holdings[unit]
	if !ok {
		return asset.ErrUnitNotFound
	}
	if holders[from] < quantity {
		return fmt.Errorf("insufficient holding: have %d, need %d",
			holders[from], quantity)
	}
	holders[from] -= quantity
	holders[to] += quantity

	r.transfers = append(r.transfers, mockTransfer{
		unit:     unit,
		from:     from,
		to:       to,
		quantity: quantity,
	})

	return nil
}

var _ asset.Registry = (*mockRegistry)(nil)

// mockAssets maps registry IDs to mock registries.
type mockAssets struct {
	registries map[auction.RegistryID]*mockRegistry
}

func newMockAssets() *mockAssets {
	return &mockAssets{
		registries: make(map[auction.RegistryID]*mockRegistry),
	}
}

func (p *mockAssets) Registry(_ context.Context,
	id auction.RegistryID) (asset.Registry, error) {

	registry, ok := p.registries[id]
	if !ok {
		return nil, fmt.Errorf("unknown registry %v", id)
	}
	return registry, nil
}

var _ asset.Provider = (*mockAssets)(nil)

// mockPayment is a single recorded ledger movement.
type mockPayment struct {
	medium    auction.Medium
	party     auction.Identity
	amount    auction.Amount
	collected bool
}

// mockLedger records all pulls and pushes. The onPush hook runs before the
// push is recorded and can be used to re-enter the manager mid settlement.
type mockLedger struct {
	sync.Mutex

	pullErr error
	pushErr error
	onPush  func(recipient auction.Identity, amount auction.Amount)

	payments []mockPayment
}

func (l *mockLedger) Pull(_ context.Context, medium auction.Medium,
	payer auction.Identity, amount auction.Amount) error {

	if l.pullErr != nil {
		return l.pullErr
	}

	l.Lock()
	defer l.Unlock()

	l.payments = append(l.payments, mockPayment{
		medium:    medium,
		party:     payer,
		amount:    amount,
		collected: true,
	})
	return nil
}

func (l *mockLedger) Push(_ context.Context, medium auction.Medium,
	recipient auction.Identity, amount auction.Amount) error {

	if l.pushErr != nil {
		return l.pushErr
	}
	if l.onPush != nil {
		l.onPush(recipient, amount)
	}

	l.Lock()
	defer l.Unlock()

	l.payments = append(l.payments, mockPayment{
		medium: medium,
		party:  recipient,
		amount: amount,
	})
	return nil
}

// paidTo sums up all amounts pushed to the given identity.
func (l *mockLedger) paidTo(id auction.Identity) auction.Amount {
	l.Lock()
	defer l.Unlock()

	var total auction.Amount
	for _, p := range l.payments {
		if !p.collected && p.party == id {
			total += p.amount
		}
	}
	return total
}

// pulledFrom sums up all amounts collected from the given identity.
func (l *mockLedger) pulledFrom(id auction.Identity) auction.Amount {
	l.Lock()
	defer l.Unlock()

	var total auction.Amount
	for _, p := range l.payments {
		if p.collected && p.party == id {
			total += p.amount
		}
	}
	return total
}

// mockRoyalties returns fixed royalty terms per registry.
type mockRoyalties struct {
	infos map[auction.RegistryID]*royalty.Info
}

func (r *mockRoyalties) Lookup(_ context.Context,
	id auction.RegistryID) (*royalty.Info, error) {

	return r.infos[id], nil
}

var _ royalty.Resolver = (*mockRoyalties)(nil)
