package auction

import (
	"fmt"
	"math/bits"

	"github.com/shopspring/decimal"
)

const (
	// AmountDecimals is the number of decimal places of the fixed-point
	// Amount type.
	AmountDecimals = 8

	// UnitAmount is the number of base amount units in one whole unit of
	// a payment medium.
	UnitAmount Amount = 1e8
)

// Amount is a fixed-point monetary amount, expressed in base units of
// 10^-8 of the payment medium. All engine arithmetic is integer based; the
// decimal representation only appears at API and CLI boundaries.
type Amount uint64

// String returns the decimal representation of the amount in whole units of
// the payment medium.
func (a Amount) String() string {
	return decimal.New(int64(a), -AmountDecimals).String()
}

// CheckedAdd returns a+b and reports whether the sum stayed within the
// amount range. The returned amount is only meaningful if ok is true.
func CheckedAdd(a, b Amount) (Amount, bool) {
	sum, carry := bits.Add64(uint64(a), uint64(b), 0)
	return Amount(sum), carry == 0
}

// CheckedMul returns a*b and reports whether the product stayed within the
// amount range. The returned amount is only meaningful if ok is true.
func CheckedMul(a, b Amount) (Amount, bool) {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	return Amount(lo), hi == 0
}

// ParseAmount parses a decimal string into a fixed-point amount. Negative
// values and values with more than AmountDecimals fractional digits are
// rejected.
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("invalid amount %q: negative", s)
	}
	if d.Exponent() < -AmountDecimals {
		return 0, fmt.Errorf("invalid amount %q: more than %d "+
			"decimal places", s, AmountDecimals)
	}

	base := d.Shift(AmountDecimals)
	if !base.BigInt().IsUint64() {
		return 0, fmt.Errorf("invalid amount %q: out of range", s)
	}
	return Amount(base.BigInt().Uint64()), nil
}
