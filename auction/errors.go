package auction

import "errors"

var (
	// ErrNoAuction is returned when an operation references an auction
	// that is not live: it was never created, already cancelled or fully
	// sold. Absence is not distinguished further in storage.
	ErrNoAuction = errors.New("no live auction with that id")

	// ErrInvalidDuration is returned when an auction's duration is not
	// strictly greater than one time unit or exceeds the representable
	// upper bound.
	ErrInvalidDuration = errors.New("auction duration out of bounds")

	// ErrInvalidAmount is returned when a quantity does not satisfy the
	// constraints of the asset kind: singleton auctions carry exactly one
	// unit, quantized auctions at least one.
	ErrInvalidAmount = errors.New("invalid quantity for asset kind")

	// ErrInvalidPaymentMethod is returned when the payment medium is
	// neither the native currency nor a currently registered fungible
	// token.
	ErrInvalidPaymentMethod = errors.New("unsupported payment medium")

	// ErrSellerNotAssetOwner is returned when the seller does not hold
	// the asset in the quantity required for the auction.
	ErrSellerNotAssetOwner = errors.New("seller does not hold the asset " +
		"in the required quantity")

	// ErrAssetDoesNotExist is returned when the asset unit lookup itself
	// fails, as opposed to the seller simply not holding it.
	ErrAssetDoesNotExist = errors.New("asset unit does not exist")

	// ErrInvalidAssetInterface is returned when the asset kind declared
	// by the seller does not match the registry's actual kind.
	ErrInvalidAssetInterface = errors.New("asset kind does not match " +
		"registry")

	// ErrInvalidValueProvided is returned when the native amount supplied
	// with a bid does not exactly match the required total payment, or a
	// native amount was supplied for a token-paid auction.
	ErrInvalidValueProvided = errors.New("supplied amount does not match " +
		"required payment")

	// ErrStaleSnapshot is returned when a rollback snapshot no longer
	// matches the stored state because another call mutated the record
	// after the snapshot was taken. The newer state wins, the snapshot is
	// not written back.
	ErrStaleSnapshot = errors.New("auction state changed since snapshot " +
		"was taken")

	// ErrUnauthorized is returned when the caller of a cancellation is
	// not the auction's seller. Absence of the auction is deliberately
	// not distinguished from a wrong caller.
	ErrUnauthorized = errors.New("caller is not the auction seller")
)
