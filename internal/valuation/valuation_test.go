package valuation_test

import (
	"BasketEngine/internal/state"
	"BasketEngine/internal/valuation"
	"errors"
	"testing"
)

func newEngine() *valuation.Engine {
	return valuation.NewEngine(valuation.DefaultFeeConfig)
}

func longPosition() *state.Position {
	return &state.Position{
		Address:    "Pos1111111111111111111111111111111",
		Owner:      "Owner111111111111111111111111111111",
		Basket:     "Bskt111111111111111111111111111111",
		IsLong:     true,
		Size:       1_000_000_000,   // 1000 shares
		UsdcSize:   1_000_000_000,   // $1000 at entry
		EntryPrice: 100_000_000,     // $100
		Collateral: 150_000_000,     // $150
		Status:     state.PositionStatusOpen,
	}
}

// ============================================================================
// Test: PnL
// ============================================================================

func TestPnL_LongProfitScenario(t *testing.T) {
	// long, entry $100, size $1000, collateral $150, current $110:
	// value = 10/100 * 1000 = $100, percent = 100/150*100 ~ 66.67%
	e := newEngine()
	pnl := e.PnL(longPosition(), 110_000_000)

	if pnl.Value != 100_000_000 {
		t.Errorf("value: got %d, want 100_000_000", pnl.Value)
	}
	if !pnl.Profitable {
		t.Error("long above entry should be profitable")
	}
	if !pnl.PercentDefined {
		t.Fatal("percent should be defined")
	}
	if pnl.Percent != 6_667 {
		t.Errorf("percent: got %d, want 6_667 (66.67%%)", pnl.Percent)
	}
}

func TestPnL_LongLoss(t *testing.T) {
	e := newEngine()
	pnl := e.PnL(longPosition(), 90_000_000)

	if pnl.Value != -100_000_000 {
		t.Errorf("value: got %d, want -100_000_000", pnl.Value)
	}
	if pnl.Profitable {
		t.Error("long below entry should not be profitable")
	}
}

func TestPnL_ShortSignConsistency(t *testing.T) {
	e := newEngine()
	pos := longPosition()
	pos.IsLong = false

	down := e.PnL(pos, 90_000_000)
	if !down.Profitable || down.Value != 100_000_000 {
		t.Errorf("short below entry: got value=%d profitable=%v, want 100_000_000/true", down.Value, down.Profitable)
	}

	up := e.PnL(pos, 110_000_000)
	if up.Profitable || up.Value != -100_000_000 {
		t.Errorf("short above entry: got value=%d profitable=%v, want -100_000_000/false", up.Value, up.Profitable)
	}
}

func TestPnL_AtEntryExactlyZero(t *testing.T) {
	// The magnitude/sign split must report a clean zero at the boundary for
	// both directions, not a signed zero loss.
	e := newEngine()

	for _, isLong := range []bool{true, false} {
		pos := longPosition()
		pos.IsLong = isLong

		pnl := e.PnL(pos, pos.EntryPrice)
		if pnl.Value != 0 {
			t.Errorf("isLong=%v: value at entry: got %d, want 0", isLong, pnl.Value)
		}
		if pnl.Profitable {
			t.Errorf("isLong=%v: at entry should not report profitable", isLong)
		}
		if pnl.Percent != 0 {
			t.Errorf("isLong=%v: percent at entry: got %d, want 0", isLong, pnl.Percent)
		}
	}
}

func TestPnL_ZeroCollateralPercentUndefined(t *testing.T) {
	e := newEngine()
	pos := longPosition()
	pos.Collateral = 0

	pnl := e.PnL(pos, 110_000_000)
	if pnl.PercentDefined {
		t.Error("percent should be undefined with zero collateral")
	}
	if pnl.Value != 100_000_000 {
		t.Errorf("value should still be computed: got %d", pnl.Value)
	}
}

func TestPnL_MissingEntryPrice(t *testing.T) {
	e := newEngine()
	pos := longPosition()
	pos.EntryPrice = 0

	pnl := e.PnL(pos, 110_000_000)
	if pnl.Value != 0 || pnl.Profitable || pnl.PercentDefined {
		t.Errorf("unvalued position should report zero/undefined, got %+v", pnl)
	}
}

// ============================================================================
// Test: LiquidationPrice
// ============================================================================

func TestLiquidationPrice_OneXDegeneratesToEntry(t *testing.T) {
	e := newEngine()
	price := int64(100_000_000)

	long := e.LiquidationPrice(150_000_000, price, 100, true)
	short := e.LiquidationPrice(150_000_000, price, 100, false)

	if long != price {
		t.Errorf("long 1x: got %d, want entry %d", long, price)
	}
	if short != price {
		t.Errorf("short 1x: got %d, want entry %d", short, price)
	}
}

func TestLiquidationPrice_Monotonic(t *testing.T) {
	// The formula widens the buffer as leverage grows: long liquidation
	// prices fall, short liquidation prices rise.
	e := newEngine()
	price := int64(100_000_000)
	levels := []int64{100, 150, 200, 500} // 1x, 1.5x, 2x, 5x

	prevLong := e.LiquidationPrice(0, price, levels[0], true)
	prevShort := e.LiquidationPrice(0, price, levels[0], false)

	for _, lev := range levels[1:] {
		long := e.LiquidationPrice(0, price, lev, true)
		short := e.LiquidationPrice(0, price, lev, false)

		if long >= prevLong {
			t.Errorf("long liq at lev %d: %d not below %d", lev, long, prevLong)
		}
		if short <= prevShort {
			t.Errorf("short liq at lev %d: %d not above %d", lev, short, prevShort)
		}
		prevLong, prevShort = long, short
	}
}

func TestLiquidationPrice_HalfX(t *testing.T) {
	// lev 2x: long buffer is the full entry price.
	e := newEngine()
	if got := e.LiquidationPrice(0, 100_000_000, 200, true); got != 0 {
		t.Errorf("long 2x: got %d, want 0", got)
	}
	if got := e.LiquidationPrice(0, 100_000_000, 200, false); got != 200_000_000 {
		t.Errorf("short 2x: got %d, want 200_000_000", got)
	}
}

// ============================================================================
// Test: Fee
// ============================================================================

func TestFee_DefaultRate(t *testing.T) {
	// 10 + 10 bps on $1000
	e := newEngine()
	if got := e.Fee(1_000_000_000); got != 2_000_000 {
		t.Errorf("fee: got %d, want 2_000_000", got)
	}
}

func TestFee_Linear(t *testing.T) {
	e := newEngine()
	for _, x := range []int64{5_000, 1_000_000, 750_000_000} {
		if e.Fee(2*x) != 2*e.Fee(x) {
			t.Errorf("Fee(2*%d) != 2*Fee(%d)", x, x)
		}
	}
}

func TestFee_ConfigurableRate(t *testing.T) {
	e := valuation.NewEngine(valuation.FeeConfig{OpenFeeBps: 25, CloseFeeBps: 25})
	if got := e.Fee(1_000_000_000); got != 5_000_000 {
		t.Errorf("50 bps fee: got %d, want 5_000_000", got)
	}
}

// ============================================================================
// Test: EstimatedShares
// ============================================================================

func TestEstimatedShares(t *testing.T) {
	// $100 collateral at $2 with 1.5x -> 75 shares
	e := newEngine()
	shares, err := e.EstimatedShares(100_000_000, 2_000_000, 150)
	if err != nil {
		t.Fatalf("EstimatedShares: %v", err)
	}
	if shares != 75_000_000 {
		t.Errorf("got %d, want 75_000_000", shares)
	}
}

func TestEstimatedShares_RejectsNonPositivePrice(t *testing.T) {
	e := newEngine()
	for _, price := range []int64{0, -1} {
		_, err := e.EstimatedShares(100_000_000, price, 100)
		if !errors.Is(err, valuation.ErrInvalidPrice) {
			t.Errorf("price %d: got %v, want ErrInvalidPrice", price, err)
		}
	}
}
