// Package state holds the read-only Order/Position snapshot model produced
// by the off-chain index. The engine never mutates these; every computation
// pass receives a fresh snapshot and older ones are simply discarded.
package state

// PositionStatus tracks a position's lifecycle on the ledger.
type PositionStatus int32

const (
	PositionStatusOpen PositionStatus = iota
	PositionStatusClosed
)

func (ps PositionStatus) String() string {
	switch ps {
	case PositionStatusOpen:
		return "Open"
	case PositionStatusClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Position is a user's exposure to one basket, as mirrored by the index.
// Created by a filled open order, terminated by a filled close order; this
// engine only ever reads it.
type Position struct {
	Address string // position account address
	Owner   string // owning account address
	Basket  string // basket address

	IsLong     bool
	Size       int64 // quantity scale: basket share count
	UsdcSize   int64 // usdc scale: value at entry
	EntryPrice int64 // price scale
	Collateral int64 // usdc scale: margin posted

	Status PositionStatus

	// OpenOrder is the address of the order that opened this position.
	// Like the order-side linkage fields it may be empty or stale while the
	// index catches up with the ledger.
	OpenOrder string
}

// IsOpen reports whether the position still has live exposure.
func (p *Position) IsOpen() bool {
	return p.Status == PositionStatusOpen
}

// SideSign returns +1 for long, -1 for short.
func (p *Position) SideSign() int64 {
	if p.IsLong {
		return 1
	}
	return -1
}
