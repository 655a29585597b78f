package state

// OrderAction discriminates what a filled order does to a position.
type OrderAction int32

const (
	OrderActionOpen OrderAction = iota
	OrderActionClose
)

func (oa OrderAction) String() string {
	switch oa {
	case OrderActionOpen:
		return "Open"
	case OrderActionClose:
		return "Close"
	default:
		return "Unknown"
	}
}

// OrderType distinguishes immediate from resting orders.
type OrderType int32

const (
	OrderTypeMarket OrderType = iota
	OrderTypeLimit
)

func (ot OrderType) String() string {
	switch ot {
	case OrderTypeMarket:
		return "Market"
	case OrderTypeLimit:
		return "Limit"
	default:
		return "Unknown"
	}
}

// OrderStatus tracks an order's lifecycle on the ledger.
type OrderStatus int32

const (
	OrderStatusPending OrderStatus = iota
	OrderStatusFilled
	OrderStatusCancelled
)

func (os OrderStatus) String() string {
	switch os {
	case OrderStatusPending:
		return "Pending"
	case OrderStatusFilled:
		return "Filled"
	case OrderStatusCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Order is a user's instruction to the ledger, as mirrored by the index.
//
// The three linkage fields tie an order to the position it affects. The
// ledger and the index update independently, so any subset of them may be
// empty or stale at observation time. That is normal operating state, not an
// error; the reconciler is built around it.
type Order struct {
	Address string // order account address (its PDA)
	Owner   string
	Basket  string

	Action OrderAction
	Type   OrderType
	Status OrderStatus

	LimitPrice int64 // price scale; 0 for market orders
	Collateral int64 // usdc scale
	UsdcSize   int64 // usdc scale

	// Position is authoritative once the order has filled.
	Position string
	// TargetPosition is the position the order intends to affect; may be
	// set before the fill.
	TargetPosition string
}

// IsPending reports whether the ledger may still fill this order.
func (o *Order) IsPending() bool {
	return o.Status == OrderStatusPending
}
