// Package valuation computes derived position figures: PnL, return on
// equity, liquidation price, fees, and pre-trade share estimates. Every
// operation is a pure function over a snapshot value and a reference price.
package valuation

import (
	"BasketEngine/internal/fixmath"
	"BasketEngine/internal/state"
	"errors"
)

// ErrInvalidPrice is returned when a computation needs a positive reference
// price and was given zero or less.
var ErrInvalidPrice = errors.New("reference price must be positive")

// FeeConfig holds the combined opening and closing fee rates in basis
// points. These are configuration, not business logic; the ledger program is
// the authority on what it actually charges.
type FeeConfig struct {
	OpenFeeBps  int64
	CloseFeeBps int64
}

// DefaultFeeConfig matches the ledger program's current schedule:
// 10 bps to open plus 10 bps to close.
var DefaultFeeConfig = FeeConfig{OpenFeeBps: 10, CloseFeeBps: 10}

// Engine evaluates positions. Stateless apart from the fee schedule; safe
// for concurrent use.
type Engine struct {
	fees FeeConfig
}

func NewEngine(fees FeeConfig) *Engine {
	return &Engine{fees: fees}
}

// PnL is a position's profit or loss at a reference price.
//
// Percent is return on collateral at the percent scale. When the position
// carries zero collateral the ratio is undefined; PercentDefined is false
// and Percent is zero rather than an error or a division crash.
type PnL struct {
	Value          int64 // usdc scale, signed
	Profitable     bool
	Percent        int64 // percent scale
	PercentDefined bool
}

// PnL values a position at currentPrice.
//
// The magnitude |current - entry| * usdcSize / entry and the sign are
// computed separately: profitability is a branch on direction, not the sign
// of the price difference. Keeping the two apart means a short sitting
// exactly at entry reports zero, never a "positive zero" loss.
func (e *Engine) PnL(pos *state.Position, currentPrice int64) PnL {
	if pos.EntryPrice <= 0 {
		// Entry price not yet propagated by the index; nothing to value.
		return PnL{}
	}

	magnitude := fixmath.MulDiv(
		fixmath.Abs(currentPrice-pos.EntryPrice),
		pos.UsdcSize,
		pos.EntryPrice,
		fixmath.RoundHalfEven,
	)

	profitable := false
	if pos.IsLong {
		profitable = currentPrice > pos.EntryPrice
	} else {
		profitable = currentPrice < pos.EntryPrice
	}

	value := magnitude
	if !profitable {
		value = -magnitude
	}

	result := PnL{Value: value, Profitable: profitable}

	if pos.Collateral > 0 {
		result.Percent = fixmath.MulDiv(value, 100*fixmath.PercentScale, pos.Collateral, fixmath.RoundHalfEven)
		result.PercentDefined = true
	}

	return result
}

// LiquidationPrice returns the reference price at which the posted
// collateral is deemed insufficient.
//
// With positionSize = collateral / leverage the collateral ratio
// collateral / positionSize collapses to the leverage itself, so the
// collateral argument cancels algebraically; it stays in the signature
// because the ledger program's own check is stated in those terms. The
// margin buffer is ratio - 1: long liquidates at price * (1 - (ratio - 1)),
// short at price * (1 + (ratio - 1)). At 1x leverage this degenerates to
// the entry price itself; the formula is kept verbatim rather than patched.
func (e *Engine) LiquidationPrice(collateral, price, leverage int64, isLong bool) int64 {
	_ = collateral

	if isLong {
		return fixmath.MulDiv(price, 2*fixmath.LeverageScale-leverage, fixmath.LeverageScale, fixmath.RoundHalfEven)
	}
	return fixmath.MulDiv(price, leverage, fixmath.LeverageScale, fixmath.RoundHalfEven)
}

// Fee returns the combined open+close fee on a position value.
func (e *Engine) Fee(positionValue int64) int64 {
	return fixmath.MulDiv(positionValue, e.fees.OpenFeeBps+e.fees.CloseFeeBps, 10_000, fixmath.RoundHalfEven)
}

// EstimatedShares previews the share quantity collateral / price * leverage
// buys before a trade is submitted.
func (e *Engine) EstimatedShares(collateral, price, leverage int64) (int64, error) {
	if price <= 0 {
		return 0, ErrInvalidPrice
	}

	notional := fixmath.MulDiv(collateral, leverage, fixmath.LeverageScale, fixmath.RoundHalfEven)
	return fixmath.MulDiv(notional, fixmath.PriceScale, price, fixmath.RoundHalfEven), nil
}
