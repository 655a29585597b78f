package state

import (
	"BasketEngine/internal/basket"
	"time"
)

// Snapshot is one internally-consistent view of a user's orders and
// positions for a single basket, stamped with the index watermark it was
// read at. Successive snapshots carry no ordering guarantee; a computation
// run is only ever consistent with the snapshot it was given.
type Snapshot struct {
	Basket    *basket.Basket
	Owner     string
	Orders    []Order
	Positions []Position

	// AsOfSlot is the last ledger slot the index had applied when this
	// snapshot was read.
	AsOfSlot  int64
	FetchedAt time.Time
}

// OpenPositions returns the subset of positions still open, preserving
// snapshot order.
func (s *Snapshot) OpenPositions() []Position {
	var open []Position
	for _, p := range s.Positions {
		if p.IsOpen() {
			open = append(open, p)
		}
	}
	return open
}
