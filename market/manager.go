package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openassets/auctionhouse/asset"
	"github.com/openassets/auctionhouse/auction"
	"github.com/openassets/auctionhouse/payment"
	"github.com/openassets/auctionhouse/royalty"
	"github.com/openassets/auctionhouse/terms"
)

// CreateParams holds everything a seller submits when listing an asset for
// sale. The auction ID is not part of the parameters, it is derived from the
// seller and asset fields.
type CreateParams struct {
	// Seller is the identity listing the asset.
	Seller auction.Identity

	// AssetRegistry identifies the registry the asset lives in.
	AssetRegistry auction.RegistryID

	// AssetUnit identifies the asset unit within its registry.
	AssetUnit auction.UnitID

	// AssetKind is the kind the seller declares for the asset. It must
	// match what the registry itself reports.
	AssetKind auction.AssetKind

	// StartingPrice is the per unit price at the moment the auction
	// starts.
	StartingPrice auction.Amount

	// EndingPrice is the per unit price once the full duration has
	// elapsed.
	EndingPrice auction.Amount

	// Duration is how long the price takes to travel from the starting to
	// the ending price.
	Duration time.Duration

	// Quantity is the number of units offered. Must be exactly 1 for
	// singleton assets.
	Quantity auction.Quantity

	// PaymentMedium is the medium buyers pay in. The empty string selects
	// the native medium.
	PaymentMedium auction.Medium
}

// ManagerConfig holds all of the manager's dependencies, allowing them to be
// mocked out in tests.
type ManagerConfig struct {
	// Store is where live auction records are kept.
	Store auction.Store

	// Assets resolves asset registries for ownership checks and
	// transfers.
	Assets asset.Provider

	// Payments moves funds between the parties of a settlement.
	Payments payment.Ledger

	// PaymentRegistry decides which payment media sellers may list in.
	PaymentRegistry payment.Registry

	// Royalties resolves the royalty terms of an asset registry. May be
	// nil if no royalties are paid out.
	Royalties royalty.Resolver

	// FeeSchedule determines the maker and taker fees charged on each
	// sale.
	FeeSchedule terms.FeeSchedule

	// FeeRecipient is the identity the maker and taker fees are paid to.
	FeeRecipient auction.Identity

	// Clock is the time source for the price curve. Defaults to the
	// system clock if nil.
	Clock Clock
}

// Manager lists, prices, settles and cancels auctions. All state lives in
// the configured store, the manager itself is stateless and safe for
// concurrent use as far as the store and the configured adapters are.
type Manager struct {
	cfg ManagerConfig
}

// NewManager returns a manager that operates on the given dependencies.
func NewManager(cfg *ManagerConfig) *Manager {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	return &Manager{
		cfg: *cfg,
	}
}

// CreateAuction validates the submitted parameters and stores a new live
// auction. Listing the same (seller, registry, unit) triple again replaces
// the previous record entirely, any unsold remainder of the replaced record
// is discarded.
func (m *Manager) CreateAuction(ctx context.Context,
	params *CreateParams) (*auction.Auction, error) {

	// The seller must actually hold the asset in the offered quantity.
	// We resolve the registry first, an unknown registry and an unknown
	// unit are indistinguishable to the caller.
	registry, err := m.cfg.Assets.Registry(ctx, params.AssetRegistry)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", auction.ErrAssetDoesNotExist,
			err)
	}

	holding, err := registry.Holding(
		ctx, params.AssetUnit, params.Seller,
	)
	switch {
	case errors.Is(err, asset.ErrUnitNotFound):
		return nil, auction.ErrAssetDoesNotExist

	case err != nil:
		return nil, fmt.Errorf("unable to query holding: %w", err)
	}

	requiredQuantity := params.Quantity
	if requiredQuantity == 0 {
		requiredQuantity = 1
	}
	if holding < requiredQuantity {
		return nil, auction.ErrSellerNotAssetOwner
	}

	// The curve needs a real time window to travel through. A zero or
	// near zero duration would make every price read land on the ending
	// price, so anything at or below the minimum is rejected.
	if params.Duration <= auction.MinAuctionDuration ||
		params.Duration > auction.MaxAuctionDuration {

		return nil, auction.ErrInvalidDuration
	}

	switch params.AssetKind {
	case auction.KindSingleton:
		if params.Quantity != 1 {
			return nil, auction.ErrInvalidAmount
		}

	case auction.KindQuantized:
		if params.Quantity < 1 {
			return nil, auction.ErrInvalidAmount
		}

	default:
		return nil, auction.ErrInvalidAssetInterface
	}

	if !m.cfg.PaymentRegistry.Supported(params.PaymentMedium) {
		return nil, auction.ErrInvalidPaymentMethod
	}

	// The declared kind must agree with what the registry reports for
	// itself. A quantized listing of a singleton registry (or the other
	// way around) would corrupt the settlement math.
	actualKind, err := registry.Kind(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to query asset kind: %w", err)
	}
	if actualKind != params.AssetKind {
		return nil, auction.ErrInvalidAssetInterface
	}

	a := auction.NewAuction(
		params.Seller, params.AssetRegistry, params.AssetUnit,
	)
	a.AssetKind = params.AssetKind
	a.StartingPrice = params.StartingPrice
	a.EndingPrice = params.EndingPrice
	a.StartedAt = m.cfg.Clock.Now()
	a.Duration = params.Duration
	a.RemainingQuantity = params.Quantity
	a.PaymentMedium = params.PaymentMedium

	if err := m.cfg.Store.CreateAuction(a); err != nil {
		return nil, fmt.Errorf("unable to store auction: %w", err)
	}

	log.Infof("Created auction %v: seller=%v, asset=%v/%v, quantity=%d, "+
		"price=%v->%v over %v", a.ID(), a.Seller, a.AssetRegistry,
		a.AssetUnit, a.RemainingQuantity, a.StartingPrice,
		a.EndingPrice, a.Duration)

	return a, nil
}

// GetAuction returns the live auction with the given ID.
func (m *Manager) GetAuction(id auction.ID) (*auction.Auction, error) {
	return m.cfg.Store.GetAuction(id)
}

// GetAuctions returns all currently live auctions.
func (m *Manager) GetAuctions() ([]*auction.Auction, error) {
	return m.cfg.Store.GetAuctions()
}

// GetCurrentPrice returns the current per unit price of the live auction
// with the given ID.
func (m *Manager) GetCurrentPrice(id auction.ID) (auction.Amount, error) {
	a, err := m.cfg.Store.GetAuction(id)
	if err != nil {
		return 0, err
	}
	return a.PriceAt(m.cfg.Clock.Now()), nil
}

// Bid buys the given quantity out of a live auction at the current per unit
// price. The buyer pays the price plus the taker fee for every unit bought.
// For native auctions the supplied amount must match that total exactly; for
// token auctions it must be zero, the total is pulled from the buyer's token
// balance instead.
//
// The store is mutated before any funds or assets move. If one of the
// external transfers then fails, the record is restored to its pre-bid
// snapshot and the failure is returned. A payment adapter that re-enters the
// manager during settlement therefore observes the auction already
// decremented (or gone entirely); any state such a reentrant call commits
// itself survives the rollback, the snapshot is only written back while the
// record is untouched since the decrement.
func (m *Manager) Bid(ctx context.Context, buyer auction.Identity,
	id auction.ID, quantity auction.Quantity,
	supplied auction.Amount) (*auction.Sale, error) {

	a, err := m.cfg.Store.GetAuction(id)
	if err != nil {
		return nil, err
	}

	// The price is locked in now, a slow settlement doesn't slide down
	// the curve any further. All totals are computed with checked
	// arithmetic so a quantity picked to wrap the product around the
	// amount range can never shrink the buyer's side.
	now := m.cfg.Clock.Now()
	unitPrice := a.PriceAt(now)
	takerFee := m.cfg.FeeSchedule.TakerFee(unitPrice)
	makerFee := m.cfg.FeeSchedule.MakerFee(unitPrice)

	perUnit, ok := auction.CheckedAdd(unitPrice, takerFee)
	var total auction.Amount
	if ok {
		total, ok = auction.CheckedMul(
			perUnit, auction.Amount(quantity),
		)
	}
	if !ok {
		return nil, fmt.Errorf("%w: required payment out of range",
			auction.ErrInvalidValueProvided)
	}

	if a.PaymentMedium.IsNative() {
		if supplied != total {
			return nil, fmt.Errorf("%w: need %v, got %v",
				auction.ErrInvalidValueProvided, total,
				supplied)
		}
	} else if supplied != 0 {
		return nil, fmt.Errorf("%w: token auctions take no native "+
			"funds", auction.ErrInvalidValueProvided)
	}

	if quantity == 0 || quantity > a.RemainingQuantity {
		return nil, auction.ErrInvalidAmount
	}
	if a.AssetKind == auction.KindSingleton && quantity != 1 {
		return nil, auction.ErrInvalidAmount
	}

	feePerUnit, ok := auction.CheckedAdd(makerFee, takerFee)
	var totalFee auction.Amount
	if ok {
		totalFee, ok = auction.CheckedMul(
			feePerUnit, auction.Amount(quantity),
		)
	}
	if !ok {
		return nil, fmt.Errorf("%w: total fee out of range",
			auction.ErrInvalidAmount)
	}

	sale := &auction.Sale{
		AuctionID: id,
		Buyer:     buyer,
		UnitPrice: unitPrice,
		Quantity:  quantity,
		TotalFee:  totalFee,
	}

	// Keep a snapshot around so the record can be put back if the
	// settlement falls over half way through.
	snapshot := a.Copy()

	if err := m.cfg.Store.SettleSale(sale); err != nil {
		return nil, err
	}

	if err := m.settle(ctx, a, sale, makerFee, total); err != nil {
		restoreErr := m.cfg.Store.RestoreAuction(snapshot, sale)
		switch {
		// A reentrant call changed the record while the external
		// transfers ran. Its state wins: a committed cancellation
		// stays canceled and a nested sale keeps its decrement.
		case errors.Is(restoreErr, auction.ErrStaleSnapshot):
			log.Warnf("Not restoring auction %v after failed "+
				"settlement, state changed during settlement",
				id)

		case restoreErr != nil:
			// The store is now inconsistent with the outside
			// world, nothing more we can do than scream about it.
			log.Criticalf("Unable to restore auction %v after "+
				"failed settlement: %v", id, restoreErr)
		}
		return nil, fmt.Errorf("settlement failed: %w", err)
	}

	// The sale only hits the event log once the transfers went through,
	// a rolled back settlement leaves no sale record behind.
	if err := m.cfg.Store.RecordSale(sale); err != nil {
		log.Errorf("Unable to record sale for auction %v: %v", id, err)
	}

	log.Infof("Settled sale on auction %v: buyer=%v, quantity=%d, "+
		"unit_price=%v, total_fee=%v", id, buyer, quantity, unitPrice,
		sale.TotalFee)

	return sale, nil
}

// settle runs the external side of a sale: pull the token payment if any,
// pay out fees, royalties and the seller's proceeds, then hand the asset to
// the buyer. Every amount is computed per unit and scaled by the sale
// quantity, so the split is exact: price = seller net + maker fee + royalty
// on every single unit.
func (m *Manager) settle(ctx context.Context, a *auction.Auction,
	sale *auction.Sale, makerFee, buyerTotal auction.Amount) error {

	var royaltyInfo *royalty.Info
	if m.cfg.Royalties != nil {
		var err error
		royaltyInfo, err = m.cfg.Royalties.Lookup(
			ctx, a.AssetRegistry,
		)
		if err != nil {
			return fmt.Errorf("unable to resolve royalty: %w", err)
		}
	}

	var royaltyFee auction.Amount
	if royaltyInfo != nil {
		royaltyFee = terms.RoyaltyFee(
			sale.UnitPrice, royaltyInfo.RateBps,
		)
	}

	// The maker fee and the royalty both come out of the seller's side.
	// If together they exceed the unit price the split is impossible and
	// the whole sale is aborted rather than clamped.
	sellerFees, ok := auction.CheckedAdd(makerFee, royaltyFee)
	if !ok || sellerFees > sale.UnitPrice {
		return fmt.Errorf("maker fee %v plus royalty %v exceed unit "+
			"price %v", makerFee, royaltyFee, sale.UnitPrice)
	}
	sellerNet := sale.UnitPrice - sellerFees

	// Both per-unit legs below are bounded by the unit price, so scaling
	// them by the quantity cannot overflow once the buyer total didn't.
	qty := auction.Amount(sale.Quantity)

	// Token auctions collect the buyer's side here. Native auctions were
	// already funded by the supplied amount of the bid itself.
	if !a.PaymentMedium.IsNative() {
		err := m.cfg.Payments.Pull(
			ctx, a.PaymentMedium, sale.Buyer, buyerTotal,
		)
		if err != nil {
			return fmt.Errorf("unable to collect token payment: "+
				"%w", err)
		}
	}

	if sale.TotalFee > 0 {
		err := m.cfg.Payments.Push(
			ctx, a.PaymentMedium, m.cfg.FeeRecipient,
			sale.TotalFee,
		)
		if err != nil {
			return fmt.Errorf("unable to pay fees: %w", err)
		}
	}

	if royaltyFee > 0 {
		err := m.cfg.Payments.Push(
			ctx, a.PaymentMedium, royaltyInfo.Recipient,
			royaltyFee*qty,
		)
		if err != nil {
			return fmt.Errorf("unable to pay royalty: %w", err)
		}
	}

	if sellerNet > 0 {
		err := m.cfg.Payments.Push(
			ctx, a.PaymentMedium, a.Seller, sellerNet*qty,
		)
		if err != nil {
			return fmt.Errorf("unable to pay seller: %w", err)
		}
	}

	registry, err := m.cfg.Assets.Registry(ctx, a.AssetRegistry)
	if err != nil {
		return fmt.Errorf("unable to resolve asset registry: %w", err)
	}
	err = registry.Transfer(
		ctx, a.AssetUnit, a.Seller, sale.Buyer, sale.Quantity,
	)
	if err != nil {
		return fmt.Errorf("unable to transfer asset: %w", err)
	}

	return nil
}

// CancelAuction removes a live auction. Only the seller that listed it may
// cancel it; absence of the record and a wrong caller are deliberately not
// distinguishable from each other.
func (m *Manager) CancelAuction(caller auction.Identity,
	id auction.ID) error {

	a, err := m.cfg.Store.GetAuction(id)
	switch {
	case errors.Is(err, auction.ErrNoAuction):
		return auction.ErrUnauthorized

	case err != nil:
		return err
	}

	if a.Seller != caller {
		return auction.ErrUnauthorized
	}

	if err := m.cfg.Store.RemoveAuction(id); err != nil {
		return err
	}

	log.Infof("Canceled auction %v: seller=%v, unsold=%d", id, a.Seller,
		a.RemainingQuantity)

	return nil
}
