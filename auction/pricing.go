package auction

import (
	"math/big"
	"time"
)

// PriceAt evaluates the auction's price curve at the given time. The curve
// is linear between StartingPrice at StartedAt and EndingPrice at
// StartedAt+Duration, in either direction. Once the duration has fully
// elapsed the price stays at EndingPrice, no matter how far past.
//
// The interpolation is computed over big integers so the intermediate
// product never loses precision; the single final division truncates toward
// zero.
func (a *Auction) PriceAt(now time.Time) Amount {
	elapsed := now.Sub(a.StartedAt)
	switch {
	case elapsed >= a.Duration:
		return a.EndingPrice

	case elapsed <= 0:
		return a.StartingPrice
	}

	start := new(big.Int).SetUint64(uint64(a.StartingPrice))
	end := new(big.Int).SetUint64(uint64(a.EndingPrice))

	// start + (end-start) * elapsed / duration. The span is signed, so
	// the same expression covers decaying and inclining curves. Quo
	// truncates toward zero per the arithmetic contract.
	span := new(big.Int).Sub(end, start)
	span.Mul(span, big.NewInt(int64(elapsed)))
	span.Quo(span, big.NewInt(int64(a.Duration)))

	price := span.Add(span, start)
	return Amount(price.Uint64())
}
