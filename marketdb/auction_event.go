package marketdb

import (
	"fmt"
	"io"
	"time"

	"github.com/openassets/auctionhouse/auction"
	"github.com/openassets/auctionhouse/event"
)

// AuctionEvent is the main interface for auction specific events.
type AuctionEvent interface {
	event.Event

	// AuctionID returns the ID of the auction this event refers to.
	AuctionID() auction.ID
}

// CreatedEvent is an event implementation that tracks the creation (or
// re-creation under the same key) of an auction.
type CreatedEvent struct {
	// timestamp is the unique timestamp the event was created/recorded
	// at.
	timestamp time.Time

	// auctionID is the ID of the auction this event refers to.
	auctionID auction.ID
}

// NewCreatedEvent creates a new CreatedEvent from an auction with the
// current system time as the timestamp.
func NewCreatedEvent(a *auction.Auction) *CreatedEvent {
	return &CreatedEvent{
		timestamp: time.Now(),
		auctionID: a.ID(),
	}
}

// Type returns the type of the event.
//
// NOTE: This is part of the event.Event interface.
func (e *CreatedEvent) Type() event.Type {
	return event.TypeAuctionCreated
}

// Timestamp is the time the event happened.
//
// NOTE: This is part of the event.Event interface.
func (e *CreatedEvent) Timestamp() time.Time {
	return e.timestamp
}

// SetTimestamp updates the timestamp of the event. This is needed to adjust
// timestamps in case they collide to ensure the global uniqueness of all
// event timestamps.
//
// NOTE: This is part of the event.Event interface.
func (e *CreatedEvent) SetTimestamp(ts time.Time) {
	e.timestamp = ts
}

// String returns a human readable representation of the event.
//
// NOTE: This is part of the event.Event interface.
func (e *CreatedEvent) String() string {
	return fmt.Sprintf("AuctionCreated(%v)", e.auctionID)
}

// Serialize writes the event data to a binary storage format.
//
// NOTE: This is part of the event.Event interface.
func (e *CreatedEvent) Serialize(w io.Writer) error {
	return WriteElements(w, e.auctionID)
}

// Deserialize reads the event data from a binary storage format.
//
// NOTE: This is part of the event.Event interface.
func (e *CreatedEvent) Deserialize(r io.Reader) error {
	return ReadElements(r, &e.auctionID)
}

// AuctionID returns the ID of the auction this event refers to.
//
// NOTE: This is part of the AuctionEvent interface.
func (e *CreatedEvent) AuctionID() auction.ID {
	return e.auctionID
}

// A compile time assertion to make sure CreatedEvent implements both the
// event.Event and AuctionEvent interface.
var _ event.Event = (*CreatedEvent)(nil)
var _ AuctionEvent = (*CreatedEvent)(nil)

// SaleEvent is the record emitted for every successful bid, partial or
// full. It carries the complete sale information so observers never need
// the (possibly already deleted) auction record.
type SaleEvent struct {
	// timestamp is the unique timestamp the event was created/recorded
	// at.
	timestamp time.Time

	// auctionID is the ID of the auction this event refers to.
	auctionID auction.ID

	// Buyer is the identity the units were sold to.
	Buyer auction.Identity

	// UnitPrice is the per-unit price at the time of the sale.
	UnitPrice auction.Amount

	// Quantity is the number of units sold in this settlement.
	Quantity auction.Quantity

	// TotalFee is the total maker plus taker fee collected for this
	// settlement.
	TotalFee auction.Amount
}

// NewSaleEvent creates a new SaleEvent from a sale record with the current
// system time as the timestamp.
func NewSaleEvent(sale *auction.Sale) *SaleEvent {
	return &SaleEvent{
		timestamp: time.Now(),
		auctionID: sale.AuctionID,
		Buyer:     sale.Buyer,
		UnitPrice: sale.UnitPrice,
		Quantity:  sale.Quantity,
		TotalFee:  sale.TotalFee,
	}
}

// Type returns the type of the event.
//
// NOTE: This is part of the event.Event interface.
func (e *SaleEvent) Type() event.Type {
	return event.TypeAuctionSale
}

// Timestamp is the time the event happened.
//
// NOTE: This is part of the event.Event interface.
func (e *SaleEvent) Timestamp() time.Time {
	return e.timestamp
}

// SetTimestamp updates the timestamp of the event.
//
// NOTE: This is part of the event.Event interface.
func (e *SaleEvent) SetTimestamp(ts time.Time) {
	e.timestamp = ts
}

// String returns a human readable representation of the event.
//
// NOTE: This is part of the event.Event interface.
func (e *SaleEvent) String() string {
	return fmt.Sprintf("AuctionSale(%v, buyer=%v, units=%d, price=%v)",
		e.auctionID, e.Buyer, e.Quantity, e.UnitPrice)
}

// Serialize writes the event data to a binary storage format.
//
// NOTE: This is part of the event.Event interface.
func (e *SaleEvent) Serialize(w io.Writer) error {
	return WriteElements(
		w, e.auctionID, e.Buyer, e.UnitPrice, e.Quantity, e.TotalFee,
	)
}

// Deserialize reads the event data from a binary storage format.
//
// NOTE: This is part of the event.Event interface.
func (e *SaleEvent) Deserialize(r io.Reader) error {
	return ReadElements(
		r, &e.auctionID, &e.Buyer, &e.UnitPrice, &e.Quantity,
		&e.TotalFee,
	)
}

// AuctionID returns the ID of the auction this event refers to.
//
// NOTE: This is part of the AuctionEvent interface.
func (e *SaleEvent) AuctionID() auction.ID {
	return e.auctionID
}

// A compile time assertion to make sure SaleEvent implements both the
// event.Event and AuctionEvent interface.
var _ event.Event = (*SaleEvent)(nil)
var _ AuctionEvent = (*SaleEvent)(nil)

// CanceledEvent is the record emitted when the seller cancels an auction.
type CanceledEvent struct {
	// timestamp is the unique timestamp the event was created/recorded
	// at.
	timestamp time.Time

	// auctionID is the ID of the auction this event refers to.
	auctionID auction.ID
}

// NewCanceledEvent creates a new CanceledEvent with the current system time
// as the timestamp.
func NewCanceledEvent(id auction.ID) *CanceledEvent {
	return &CanceledEvent{
		timestamp: time.Now(),
		auctionID: id,
	}
}

// Type returns the type of the event.
//
// NOTE: This is part of the event.Event interface.
func (e *CanceledEvent) Type() event.Type {
	return event.TypeAuctionCanceled
}

// Timestamp is the time the event happened.
//
// NOTE: This is part of the event.Event interface.
func (e *CanceledEvent) Timestamp() time.Time {
	return e.timestamp
}

// SetTimestamp updates the timestamp of the event.
//
// NOTE: This is part of the event.Event interface.
func (e *CanceledEvent) SetTimestamp(ts time.Time) {
	e.timestamp = ts
}

// String returns a human readable representation of the event.
//
// NOTE: This is part of the event.Event interface.
func (e *CanceledEvent) String() string {
	return fmt.Sprintf("AuctionCanceled(%v)", e.auctionID)
}

// Serialize writes the event data to a binary storage format.
//
// NOTE: This is part of the event.Event interface.
func (e *CanceledEvent) Serialize(w io.Writer) error {
	return WriteElements(w, e.auctionID)
}

// Deserialize reads the event data from a binary storage format.
//
// NOTE: This is part of the event.Event interface.
func (e *CanceledEvent) Deserialize(r io.Reader) error {
	return ReadElements(r, &e.auctionID)
}

// AuctionID returns the ID of the auction this event refers to.
//
// NOTE: This is part of the AuctionEvent interface.
func (e *CanceledEvent) AuctionID() auction.ID {
	return e.auctionID
}

// A compile time assertion to make sure CanceledEvent implements both the
// event.Event and AuctionEvent interface.
var _ event.Event = (*CanceledEvent)(nil)
var _ AuctionEvent = (*CanceledEvent)(nil)
