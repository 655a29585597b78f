// Package invalidate carries the refresh-now broadcast. After a locally
// initiated action completes (order placed, collateral added, ...), a signal
// tells every interested consumer to re-fetch its snapshot and re-run the
// engine. Signals are advisory and lossy: missing one only delays a refresh
// until the next timer tick.
package invalidate

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Kind names the action that completed.
type Kind string

const (
	KindOrderCreated    Kind = "order-created"
	KindOrderCancelled  Kind = "order-cancelled"
	KindPositionOpened  Kind = "position-opened"
	KindPositionClosed  Kind = "position-closed"
	KindCollateralAdded Kind = "collateral-added"
)

// ValidKind reports whether k names a known action.
func ValidKind(k Kind) bool {
	switch k {
	case KindOrderCreated, KindOrderCancelled, KindPositionOpened, KindPositionClosed, KindCollateralAdded:
		return true
	}
	return false
}

// Signal is one fire-and-forget invalidation event.
type Signal struct {
	ID        uuid.UUID `json:"id"`
	Kind      Kind      `json:"kind"`
	Basket    string    `json:"basket"`
	Owner     string    `json:"owner"`
	EmittedAt time.Time `json:"emitted_at"`
}

// NewSignal stamps a fresh signal for the given action.
func NewSignal(kind Kind, basketAddr, owner string) Signal {
	return Signal{
		ID:        uuid.New(),
		Kind:      kind,
		Basket:    basketAddr,
		Owner:     owner,
		EmittedAt: time.Now(),
	}
}

type subscriber struct {
	ch    chan Signal
	kinds map[Kind]struct{} // empty = all kinds
}

// Bus is an in-process broadcast of invalidation signals. Publish never
// blocks: a subscriber that cannot keep up loses the signal and the drop is
// counted. Safe for concurrent use.
type Bus struct {
	mu      sync.RWMutex
	nextKey int
	subs    map[int]*subscriber
	dropped atomic.Int64
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]*subscriber)}
}

// Subscribe registers interest in the given kinds (all kinds when none are
// named) and returns the delivery channel plus a cancel func. Cancel closes
// the channel.
func (b *Bus) Subscribe(kinds ...Kind) (<-chan Signal, func()) {
	sub := &subscriber{
		ch:    make(chan Signal, 16),
		kinds: make(map[Kind]struct{}, len(kinds)),
	}
	for _, k := range kinds {
		sub.kinds[k] = struct{}{}
	}

	b.mu.Lock()
	key := b.nextKey
	b.nextKey++
	b.subs[key] = sub
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if s, ok := b.subs[key]; ok {
			delete(b.subs, key)
			close(s.ch)
		}
		b.mu.Unlock()
	}

	return sub.ch, cancel
}

// Publish broadcasts a signal to every matching subscriber without
// blocking.
func (b *Bus) Publish(sig Signal) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		if len(sub.kinds) > 0 {
			if _, ok := sub.kinds[sig.Kind]; !ok {
				continue
			}
		}

		select {
		case sub.ch <- sig:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped returns how many deliveries were lost to slow subscribers.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}
