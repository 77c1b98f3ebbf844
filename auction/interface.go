package auction

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"time"
)

// ID is the unique identifier of an auction. It is derived deterministically
// from the asset registry, the asset unit and the seller identity, so any
// caller can recompute it without reading the store.
type ID [32]byte

// String returns the hex encoded representation of the auction ID.
func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// Identity is the opaque identity of a participant (seller, buyer, fee or
// royalty recipient) on the host ledger.
type Identity string

// RegistryID identifies an asset registry, the component that tracks
// ownership of the units within one asset collection.
type RegistryID string

// UnitID identifies a single asset unit (or a pool of interchangeable units
// for quantized assets) within a registry.
type UnitID string

// AssetKind is the kind of an asset registry. We don't use iota for the
// constants due to the kind being persisted to disk.
type AssetKind uint8

const (
	// KindSingleton denotes a registry where each unit identifier maps to
	// exactly one indivisible unit with a single owner.
	KindSingleton AssetKind = 0

	// KindQuantized denotes a registry where one unit identifier
	// represents a pool of interchangeable units distributed across
	// holders in integer quantities.
	KindQuantized AssetKind = 1
)

// String returns a human readable representation of the asset kind.
func (k AssetKind) String() string {
	switch k {
	case KindSingleton:
		return "singleton"

	case KindQuantized:
		return "quantized"

	default:
		return "unknown"
	}
}

// Quantity is an integer number of asset units.
type Quantity uint64

// Medium identifies the payment medium of an auction. The empty string is
// the ledger's native currency, any other value is the identifier of a
// registered fungible payment token.
type Medium string

// MediumNative is the medium denoting the ledger's native currency.
const MediumNative Medium = ""

// IsNative reports whether the medium is the native currency.
func (m Medium) IsNative() bool {
	return m == MediumNative
}

// String returns a human readable representation of the payment medium.
func (m Medium) String() string {
	if m.IsNative() {
		return "native"
	}
	return string(m)
}

const (
	// MinAuctionDuration is the exclusive lower bound for an auction's
	// duration. The price curve needs at least one full time unit to be
	// meaningful.
	MinAuctionDuration = time.Second

	// MaxAuctionDuration is the inclusive upper bound for an auction's
	// duration.
	MaxAuctionDuration = 10 * 365 * 24 * time.Hour
)

// Auction is the authoritative record of a live sale. A record's existence is
// the sole signal of liveness; once it is cancelled or fully sold it is
// removed from the store entirely.
type Auction struct {
	// id is the identifier derived from the asset registry, asset unit
	// and seller at creation time.
	id ID

	// Seller is the identity that created the auction. It must hold the
	// asset in the offered quantity at creation time.
	Seller Identity

	// AssetRegistry is the registry that tracks ownership of the asset.
	AssetRegistry RegistryID

	// AssetUnit is the unit identifier within the registry that is being
	// sold.
	AssetUnit UnitID

	// AssetKind is the kind of the registry, as declared by the seller
	// and verified against the registry at creation time.
	AssetKind AssetKind

	// StartingPrice is the per-unit price at StartedAt. If it equals
	// EndingPrice the auction is a fixed-price sale.
	StartingPrice Amount

	// EndingPrice is the per-unit price once Duration has fully elapsed.
	EndingPrice Amount

	// StartedAt is the time the auction was created.
	StartedAt time.Time

	// Duration is the time span over which the price moves linearly from
	// StartingPrice to EndingPrice.
	Duration time.Duration

	// RemainingQuantity is the number of units still for sale. It is
	// always 1 for singleton assets and strictly decreases with every
	// successful bid. The record is deleted when it reaches zero.
	RemainingQuantity Quantity

	// PaymentMedium is the medium each bid has to be paid in.
	PaymentMedium Medium
}

// NewAuction builds an auction record and derives its identifier from the
// asset registry, unit and seller.
func NewAuction(seller Identity, registry RegistryID, unit UnitID) *Auction {
	return &Auction{
		id:            DeriveID(registry, unit, seller),
		Seller:        seller,
		AssetRegistry: registry,
		AssetUnit:     unit,
	}
}

// ID returns the derived identifier of the auction.
func (a *Auction) ID() ID {
	return a.id
}

// Copy returns a shallow copy of the auction record. Used to snapshot the
// state before settlement so it can be restored if an external transfer
// fails.
func (a *Auction) Copy() *Auction {
	c := *a
	return &c
}

// DeriveID computes the deterministic auction identifier for the given asset
// registry, asset unit and seller. The three fields are length prefixed
// before hashing so distinct inputs can never produce the same preimage.
func DeriveID(registry RegistryID, unit UnitID, seller Identity) ID {
	var msg bytes.Buffer
	for _, field := range []string{
		string(registry), string(unit), string(seller),
	} {
		var l [4]byte
		binary.BigEndian.PutUint32(l[:], uint32(len(field)))
		_, _ = msg.Write(l[:])
		_, _ = msg.WriteString(field)
	}
	return sha256.Sum256(msg.Bytes())
}

// Sale is the record emitted for every successful bid, partial or full.
type Sale struct {
	// AuctionID is the identifier of the auction the sale belongs to.
	AuctionID ID

	// Buyer is the identity the units were sold to.
	Buyer Identity

	// UnitPrice is the per-unit price at the time of the sale.
	UnitPrice Amount

	// Quantity is the number of units sold in this settlement.
	Quantity Quantity

	// TotalFee is the total maker plus taker fee collected for this
	// settlement, across all units.
	TotalFee Amount
}

// Store is the interface the authoritative auction store has to implement.
// All mutations are atomic; partial writes are never observable.
type Store interface {
	// CreateAuction stores the auction under its derived ID. If a live
	// record already exists under the same ID it is replaced in place and
	// its unsold remainder is discarded (recreate semantics).
	CreateAuction(*Auction) error

	// GetAuction returns the live auction with the given ID. If no such
	// record exists, ErrNoAuction is returned.
	GetAuction(ID) (*Auction, error)

	// GetAuctions returns all live auctions currently known to the store.
	GetAuctions() ([]*Auction, error)

	// SettleSale applies a sale to the referenced auction: the remaining
	// quantity is decremented by the sale quantity and the record is
	// deleted in the same transaction if it reaches zero.
	SettleSale(*Sale) error

	// RecordSale persists the sale record to the event log. It is called
	// after the external transfers of a settlement have succeeded, so a
	// rolled back settlement never leaves a sale record behind.
	RecordSale(*Sale) error

	// RemoveAuction deletes the record with the given ID and persists a
	// cancellation record. If no such record exists, ErrNoAuction is
	// returned.
	RemoveAuction(ID) error

	// RestoreAuction writes back a pre-settlement snapshot after the
	// external transfers of the given sale failed, without recording a
	// creation event. The snapshot is only written if the stored state
	// still is exactly what SettleSale left behind for that sale;
	// ErrStaleSnapshot is returned otherwise and the stored state is left
	// untouched. This keeps a rollback from clobbering a cancellation or
	// sale a reentrant call committed in the meantime.
	RestoreAuction(snapshot *Auction, sale *Sale) error
}
