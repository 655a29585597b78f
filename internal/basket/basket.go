// Package basket holds the basket/asset snapshot model, creation-time
// validation, and the weight drift calculation.
package basket

import (
	"BasketEngine/internal/fixmath"
	"errors"
	"fmt"
)

// MinAssetWeight is the per-asset allocation floor enforced at basket
// creation: 5% of the whole.
const MinAssetWeight = fixmath.WeightScale * 5 / 100

// Asset is one weighted, directional exposure inside a basket.
// Instances are read-only snapshots; a new snapshot replaces them wholesale.
type Asset struct {
	Ticker  string
	Name    string
	Address string // mint address on the ledger

	TargetWeight  int64 // weight scale; fixed at last rebalance
	IsLong        bool
	BaselinePrice int64 // price scale; price at last rebalance, 0 = unknown
	CurrentPrice  int64 // price scale; latest observed, 0 = unknown
}

// Basket is a synthetic multi-asset instrument.
type Basket struct {
	Address  string
	Name     string
	Assets   []Asset
	Price    int64 // price scale; basket NAV
	IsActive bool  // trading gate
}

// ErrDriftUndefined is returned when every drifted weight collapses to zero
// or below, leaving nothing to normalize against.
var ErrDriftUndefined = errors.New("weight drift undefined: drifted weights sum to zero or less")

// Validate checks creation-time invariants: weights sum to exactly 100%,
// each asset holds at least the 5% floor, and no mint address repeats.
// All violations are reported, not just the first.
func Validate(b *Basket) error {
	var errs []error

	if len(b.Assets) == 0 {
		return fmt.Errorf("basket %s: no assets", b.Address)
	}

	var sum int64
	seen := make(map[string]string, len(b.Assets))

	for _, a := range b.Assets {
		sum += a.TargetWeight

		if a.TargetWeight < MinAssetWeight {
			errs = append(errs, fmt.Errorf("asset %s: weight %d below %d floor", a.Ticker, a.TargetWeight, MinAssetWeight))
		}
		if a.TargetWeight > fixmath.WeightScale {
			errs = append(errs, fmt.Errorf("asset %s: weight %d above 100%%", a.Ticker, a.TargetWeight))
		}
		if prev, dup := seen[a.Address]; dup {
			errs = append(errs, fmt.Errorf("duplicate asset address %s (%s and %s)", a.Address, prev, a.Ticker))
		}
		seen[a.Address] = a.Ticker
	}

	if sum != fixmath.WeightScale {
		errs = append(errs, fmt.Errorf("target weights sum to %d, want %d", sum, fixmath.WeightScale))
	}

	return errors.Join(errs...)
}

// CurrentWeights computes the allocation each asset actually holds at its
// current price, as opposed to the target fixed at the last rebalance.
//
// For asset i the directional drift factor is
//
//	factor_i = 1 + sign_i * (current - baseline) / baseline
//
// with sign +1 for long and -1 for short (a short's weight grows when its
// price falls). Drifted weights are renormalized so the set sums to
// WeightScale again.
//
// If any asset is missing either price the drift is undefined and the target
// weights are returned unchanged; there is no partial computation.
func CurrentWeights(assets []Asset) ([]int64, error) {
	weights := make([]int64, len(assets))

	for _, a := range assets {
		if a.CurrentPrice <= 0 || a.BaselinePrice <= 0 {
			for i := range assets {
				weights[i] = assets[i].TargetWeight
			}
			return weights, nil
		}
	}

	raw := make([]int64, len(assets))
	var sum int64

	for i, a := range assets {
		move := a.CurrentPrice - a.BaselinePrice
		if !a.IsLong {
			move = -move
		}

		// factor at weight scale: WeightScale + move/baseline
		factor := fixmath.WeightScale + fixmath.MulDiv(move, fixmath.WeightScale, a.BaselinePrice, fixmath.RoundHalfEven)
		raw[i] = fixmath.MulDiv(a.TargetWeight, factor, fixmath.WeightScale, fixmath.RoundHalfEven)
		sum += raw[i]
	}

	if sum <= 0 {
		return nil, ErrDriftUndefined
	}

	for i := range raw {
		weights[i] = fixmath.MulDiv(raw[i], fixmath.WeightScale, sum, fixmath.RoundHalfEven)
	}

	return weights, nil
}
