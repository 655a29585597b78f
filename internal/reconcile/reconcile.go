// Package reconcile attributes orders to the positions they produced or
// affect. The ledger and the off-chain index update asynchronously, so an
// order's linkage fields can be empty, stale, or contradictory at
// observation time; the matching chain here is total and never errors, it
// only degrades in confidence.
package reconcile

import (
	"BasketEngine/internal/fixmath"
	"BasketEngine/internal/state"
)

// Rule identifies which step of the matching chain produced an attribution.
type Rule int32

const (
	RuleNone Rule = iota
	RuleFilledPosition // filled open order's position reference
	RuleTargetPosition // intended-position reference
	RuleOpenOrderBackref
	RuleSinglePosition // zero-size order assigned the only open position
	RuleOrderSize      // order's own usdc size, unmatched
)

func (r Rule) String() string {
	switch r {
	case RuleFilledPosition:
		return "FilledPosition"
	case RuleTargetPosition:
		return "TargetPosition"
	case RuleOpenOrderBackref:
		return "OpenOrderBackref"
	case RuleSinglePosition:
		return "SinglePosition"
	case RuleOrderSize:
		return "OrderSize"
	default:
		return "None"
	}
}

// Confidence grades how trustworthy an attribution is, so callers can
// present heuristic matches as lower-confidence data instead of facts.
type Confidence int32

const (
	ConfidenceNone Confidence = iota
	ConfidenceExact             // matched a position that carried its own value
	ConfidenceDerived           // matched a position, value derived from size * entry
	ConfidenceOrderOnly         // fell back to the order's own usdc size
	ConfidenceHeuristic         // single-position assumption; ambiguous by construction
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceExact:
		return "Exact"
	case ConfidenceDerived:
		return "Derived"
	case ConfidenceOrderOnly:
		return "OrderOnly"
	case ConfidenceHeuristic:
		return "Heuristic"
	default:
		return "None"
	}
}

// Attribution is the reconciler's verdict for one order.
//
// Attributed=false is the explicit "unattributable" marker: no rule yielded
// a usable value. It is never conflated with a genuine zero; callers must
// check Attributed before reading UsdcSize.
type Attribution struct {
	UsdcSize   int64 // usdc scale
	Position   *state.Position
	Rule       Rule
	Confidence Confidence
	Attributed bool
}

// Attribute maps one order to a displayable usdc size using the snapshot's
// positions. Rules run in strict priority order; the first applicable rule
// decides, including its internal fallback.
func Attribute(order *state.Order, positions []state.Position) Attribution {
	open := openPositions(positions)

	// Rule 1: a filled open order's position reference is authoritative.
	if order.Status == state.OrderStatusFilled && order.Action == state.OrderActionOpen && order.Position != "" {
		if pos := findByAddress(open, order.Position); pos != nil {
			return fromPosition(pos, RuleFilledPosition)
		}
		return fromOrder(order, RuleFilledPosition)
	}

	// Rule 2: the position the order intends to affect.
	if order.TargetPosition != "" {
		if pos := findByAddress(open, order.TargetPosition); pos != nil {
			return fromPosition(pos, RuleTargetPosition)
		}
		return fromOrder(order, RuleTargetPosition)
	}

	// Rule 3: a position pointing back at this order.
	if order.Address != "" {
		if pos := findByOpenOrder(open, order.Address); pos != nil {
			return fromPosition(pos, RuleOpenOrderBackref)
		}
	}

	// Rule 4: a zero-size order with open exposure on the basket is assumed
	// to belong to the first open position. Weak by construction when more
	// than one position exists; flagged heuristic so the caller can say so.
	if order.UsdcSize == 0 && len(open) > 0 {
		attr := fromPosition(&open[0], RuleSinglePosition)
		attr.Confidence = ConfidenceHeuristic
		return attr
	}

	// Rule 5: the order's own size, unmatched.
	if order.UsdcSize > 0 {
		return Attribution{
			UsdcSize:   order.UsdcSize,
			Rule:       RuleOrderSize,
			Confidence: ConfidenceOrderOnly,
			Attributed: true,
		}
	}

	return Attribution{Rule: RuleNone, Confidence: ConfidenceNone}
}

// AttributeAll reconciles every order in the snapshot. The result is
// parallel to snapshot.Orders.
func AttributeAll(snapshot *state.Snapshot) []Attribution {
	out := make([]Attribution, len(snapshot.Orders))
	for i := range snapshot.Orders {
		out[i] = Attribute(&snapshot.Orders[i], snapshot.Positions)
	}
	return out
}

func fromPosition(pos *state.Position, rule Rule) Attribution {
	attr := Attribution{
		Position:   pos,
		Rule:       rule,
		Confidence: ConfidenceExact,
		Attributed: true,
	}

	if pos.UsdcSize > 0 {
		attr.UsdcSize = pos.UsdcSize
		return attr
	}

	// Index has not populated the entry value yet; derive it.
	attr.UsdcSize = fixmath.MulDiv(pos.Size, pos.EntryPrice, fixmath.PriceScale, fixmath.RoundHalfEven)
	attr.Confidence = ConfidenceDerived
	return attr
}

func fromOrder(order *state.Order, rule Rule) Attribution {
	if order.UsdcSize <= 0 {
		// Linkage pointed somewhere the snapshot cannot see and the order
		// itself carries no value: explicitly unattributable, not zero.
		return Attribution{Rule: rule, Confidence: ConfidenceNone}
	}
	return Attribution{
		UsdcSize:   order.UsdcSize,
		Rule:       rule,
		Confidence: ConfidenceOrderOnly,
		Attributed: true,
	}
}

func openPositions(positions []state.Position) []state.Position {
	var open []state.Position
	for _, p := range positions {
		if p.IsOpen() {
			open = append(open, p)
		}
	}
	return open
}

func findByAddress(positions []state.Position, address string) *state.Position {
	for i := range positions {
		if positions[i].Address == address {
			return &positions[i]
		}
	}
	return nil
}

func findByOpenOrder(positions []state.Position, orderAddress string) *state.Position {
	for i := range positions {
		if positions[i].OpenOrder == orderAddress {
			return &positions[i]
		}
	}
	return nil
}
