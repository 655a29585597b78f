// Package fixmath provides fixed-point int64 arithmetic for ledger-scaled
// values. All intermediate products go through big.Int so a price times a
// size can never overflow before the rescaling division.
package fixmath

import (
	"math/big"
	"sync"
)

// Scales for the fixed-point representations used across the engine.
// On-ledger amounts arrive already scaled; these constants name the scales
// rather than invent new ones.
const (
	PriceScale    int64 = 1_000_000 // 0.000001 quote units
	UsdcScale     int64 = 1_000_000 // 0.000001 USDC
	QtyScale      int64 = 1_000_000 // 0.000001 basket shares
	WeightScale   int64 = 1_000_000 // fraction of whole; 100% == 1_000_000
	PercentScale  int64 = 100       // 0.01%
	LeverageScale int64 = 100       // 0.01x
)

type RoundingMode int

const (
	RoundHalfEven RoundingMode = iota // banker's rounding (default)
	RoundDown
	RoundUp
)

var bigPool = &sync.Pool{
	New: func() interface{} {
		return new(big.Int)
	},
}

func getBig() *big.Int {
	return bigPool.Get().(*big.Int)
}

func putBig(v *big.Int) {
	v.SetInt64(0)
	bigPool.Put(v)
}

// MulDiv computes a * b / denom without intermediate overflow.
// Rounding is applied to the magnitude, then the sign is restored, so a
// negative PnL rounds the same distance from zero as its positive mirror.
// denom must be non-zero.
func MulDiv(a, b, denom int64, mode RoundingMode) int64 {
	neg := false
	if a < 0 {
		a, neg = -a, !neg
	}
	if b < 0 {
		b, neg = -b, !neg
	}
	if denom < 0 {
		denom, neg = -denom, !neg
	}

	num := getBig()
	num.Mul(big.NewInt(a), big.NewInt(b))
	q := divRound(num, denom, mode)
	putBig(num)

	if neg {
		return -q
	}
	return q
}

// Div computes a / denom with the given rounding, magnitudes first.
func Div(a, denom int64, mode RoundingMode) int64 {
	return MulDiv(a, 1, denom, mode)
}

// divRound divides a non-negative numerator by a positive denominator.
func divRound(numerator *big.Int, denom int64, mode RoundingMode) int64 {
	d := big.NewInt(denom)
	q := getBig()
	r := getBig()

	q.DivMod(numerator, d, r)
	result := q.Int64()

	switch mode {
	case RoundUp:
		if r.Sign() != 0 {
			result++
		}
	case RoundHalfEven:
		// Compare 2*remainder against the denominator; exact for odd
		// denominators where denom/2 truncates.
		twice := getBig()
		twice.Lsh(r, 1)
		cmp := twice.Cmp(d)
		if cmp > 0 || (cmp == 0 && result%2 != 0) {
			result++
		}
		putBig(twice)
	}

	putBig(q)
	putBig(r)

	return result
}

// Abs returns the magnitude of v.
func Abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
