package fixmath_test

import (
	"BasketEngine/internal/fixmath"
	"testing"
)

// ============================================================================
// Test: MulDiv
// ============================================================================

func TestMulDiv_Exact(t *testing.T) {
	got := fixmath.MulDiv(6, 4, 8, fixmath.RoundHalfEven)
	if got != 3 {
		t.Errorf("6*4/8: got %d, want 3", got)
	}
}

func TestMulDiv_NoIntermediateOverflow(t *testing.T) {
	// 2e12 * 1e6 overflows int64 as a raw product but not after division.
	got := fixmath.MulDiv(2_000_000_000_000, fixmath.PriceScale, 1_000_000, fixmath.RoundHalfEven)
	if got != 2_000_000_000_000 {
		t.Errorf("got %d, want 2_000_000_000_000", got)
	}
}

func TestMulDiv_BankersRounding(t *testing.T) {
	cases := []struct {
		name    string
		a, b, d int64
		want    int64
	}{
		{"half to even down", 1, 5, 10, 0}, // 0.5 -> 0
		{"half to even up", 3, 5, 10, 2},   // 1.5 -> 2
		{"half to even stays", 5, 5, 10, 2},     // 2.5 -> 2
		{"above half rounds up", 1, 6, 10, 1},   // 0.6 -> 1
		{"below half rounds down", 1, 4, 10, 0}, // 0.4 -> 0
		{"odd denominator half", 1, 3, 6, 0},    // 0.5 with d=6 -> even
		{"odd denominator tie", 1, 7, 14, 0},    // exactly 0.5 -> 0
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := fixmath.MulDiv(c.a, c.b, c.d, fixmath.RoundHalfEven)
			if got != c.want {
				t.Errorf("%d*%d/%d: got %d, want %d", c.a, c.b, c.d, got, c.want)
			}
		})
	}
}

func TestMulDiv_SignedMirrorsMagnitude(t *testing.T) {
	pos := fixmath.MulDiv(7, 3, 4, fixmath.RoundHalfEven)
	neg := fixmath.MulDiv(-7, 3, 4, fixmath.RoundHalfEven)
	if neg != -pos {
		t.Errorf("signed rounding not mirrored: pos=%d neg=%d", pos, neg)
	}

	if got := fixmath.MulDiv(7, -3, -4, fixmath.RoundHalfEven); got != pos {
		t.Errorf("double negative: got %d, want %d", got, pos)
	}
}

func TestMulDiv_RoundDownUp(t *testing.T) {
	if got := fixmath.MulDiv(1, 9, 10, fixmath.RoundDown); got != 0 {
		t.Errorf("RoundDown: got %d, want 0", got)
	}
	if got := fixmath.MulDiv(1, 1, 10, fixmath.RoundUp); got != 1 {
		t.Errorf("RoundUp: got %d, want 1", got)
	}
}

func TestDiv(t *testing.T) {
	if got := fixmath.Div(10, 4, fixmath.RoundHalfEven); got != 2 {
		t.Errorf("10/4 half-even: got %d, want 2", got)
	}
}

func TestAbs(t *testing.T) {
	if fixmath.Abs(-5) != 5 || fixmath.Abs(5) != 5 || fixmath.Abs(0) != 0 {
		t.Error("Abs mismatch")
	}
}
