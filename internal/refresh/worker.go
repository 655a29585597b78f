// Package refresh owns the engine's only loop: re-fetch snapshots on a
// timer and on invalidation signals, run the pure computation pass, and
// hold the newest resulting view for the query surface. The computations
// themselves never block and never share state; all concurrency lives here
// at the boundary.
package refresh

import (
	"BasketEngine/internal/basket"
	"BasketEngine/internal/fixmath"
	"BasketEngine/internal/invalidate"
	"BasketEngine/internal/observability"
	"BasketEngine/internal/pricefeed"
	"BasketEngine/internal/reconcile"
	"BasketEngine/internal/state"
	"BasketEngine/internal/valuation"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SnapshotSource is the off-chain index boundary; index.Client satisfies
// it, tests use a fake.
type SnapshotSource interface {
	GetSnapshot(ctx context.Context, basketAddr, owner string) (*state.Snapshot, error)
}

// Target is one basket/owner pair the worker keeps fresh.
type Target struct {
	Basket string
	Owner  string
}

// PositionView is a position with its derived figures attached.
type PositionView struct {
	Position         state.Position
	PnL              valuation.PnL
	LiquidationPrice int64 // 0 when leverage is undefined (no collateral)
	Fee              int64
}

// OrderView is an order with its reconciled attribution.
type OrderView struct {
	Order       state.Order
	Attribution reconcile.Attribution
}

// BasketView is one complete computation pass over one snapshot.
type BasketView struct {
	Basket         *basket.Basket
	CurrentWeights []int64 // weight scale, parallel to Basket.Assets
	DriftFellBack  bool    // prices missing, weights are the targets
	Positions      []PositionView
	Orders         []OrderView
	AsOfSlot       int64
	RefreshedAt    time.Time
	Trigger        string
}

// Worker refreshes a set of targets.
type Worker struct {
	snapshots SnapshotSource
	prices    pricefeed.Source
	bus       *invalidate.Bus
	engine    *valuation.Engine
	targets   []Target
	interval  time.Duration

	logger  zerolog.Logger
	metrics *observability.Metrics
	health  *observability.HealthChecker

	mu    sync.RWMutex
	views map[Target]*BasketView
}

// Options carries the optional collaborators.
type Options struct {
	Interval time.Duration // default 10s, the reference cadence
	Metrics  *observability.Metrics
	Health   *observability.HealthChecker
}

func NewWorker(
	snapshots SnapshotSource,
	prices pricefeed.Source,
	bus *invalidate.Bus,
	engine *valuation.Engine,
	targets []Target,
	logger zerolog.Logger,
	opts Options,
) *Worker {
	interval := opts.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}

	return &Worker{
		snapshots: snapshots,
		prices:    prices,
		bus:       bus,
		engine:    engine,
		targets:   targets,
		interval:  interval,
		logger:    logger,
		metrics:   opts.Metrics,
		health:    opts.Health,
		views:     make(map[Target]*BasketView),
	}
}

// View returns the freshest view held for a target.
func (w *Worker) View(basketAddr, owner string) (*BasketView, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	v, ok := w.views[Target{Basket: basketAddr, Owner: owner}]
	return v, ok
}

// Run refreshes all targets immediately, then on every tick and every
// invalidation signal, until the context ends.
func (w *Worker) Run(ctx context.Context) error {
	signals, cancel := w.bus.Subscribe()
	defer cancel()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.refreshAll(ctx, "startup", "")
	if w.health != nil {
		w.health.SetReady(true)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			w.refreshAll(ctx, "timer", "")

		case sig, ok := <-signals:
			if !ok {
				return nil
			}
			w.refreshAll(ctx, "signal", sig.Basket)
		}
	}
}

// refreshAll refreshes every target, or only those on one basket when the
// trigger named it.
func (w *Worker) refreshAll(ctx context.Context, trigger, basketAddr string) {
	for _, tgt := range w.targets {
		if basketAddr != "" && tgt.Basket != basketAddr {
			continue
		}
		w.refreshOne(ctx, trigger, tgt)
	}

	if w.metrics != nil {
		w.metrics.SignalsDropped.Set(float64(w.bus.Dropped()))
	}
}

func (w *Worker) refreshOne(ctx context.Context, trigger string, tgt Target) {
	start := time.Now()

	snap, err := w.snapshots.GetSnapshot(ctx, tgt.Basket, tgt.Owner)
	if err != nil {
		w.logger.Error().Err(err).Str("basket", tgt.Basket).Str("owner", tgt.Owner).Msg("snapshot fetch failed")
		if w.metrics != nil {
			w.metrics.RefreshErrors.WithLabelValues("fetch").Inc()
		}
		return
	}

	view := w.Compute(snap, trigger)

	w.mu.Lock()
	prev := w.views[tgt]
	// An older snapshot can land after a newer one was already displayed;
	// discard it rather than going backwards.
	if prev == nil || view.AsOfSlot >= prev.AsOfSlot {
		w.views[tgt] = view
	}
	w.mu.Unlock()

	if w.metrics != nil {
		w.metrics.RefreshTotal.WithLabelValues(trigger).Inc()
		w.metrics.RefreshDuration.Observe(time.Since(start).Seconds())
		w.metrics.SnapshotAsOf.Set(float64(view.AsOfSlot))
	}

	w.logger.Debug().
		Str("basket", tgt.Basket).
		Str("trigger", trigger).
		Int64("as_of_slot", view.AsOfSlot).
		Int("orders", len(view.Orders)).
		Int("positions", len(view.Positions)).
		Msg("view refreshed")
}

// Compute runs one full pure pass over a snapshot. Exported because it is
// the engine's recompute entry point: safe to call concurrently with
// itself on different snapshots.
func (w *Worker) Compute(snap *state.Snapshot, trigger string) *BasketView {
	assets := pricefeed.Stamp(w.prices, snap.Basket.Assets)

	view := &BasketView{
		Basket:      snap.Basket,
		AsOfSlot:    snap.AsOfSlot,
		RefreshedAt: time.Now(),
		Trigger:     trigger,
	}

	weights, err := basket.CurrentWeights(assets)
	switch {
	case errors.Is(err, basket.ErrDriftUndefined):
		// Keep the view usable; weights stay absent.
		if w.metrics != nil {
			w.metrics.DriftUndefined.Inc()
		}
		w.logger.Warn().Str("basket", snap.Basket.Address).Msg("weight drift undefined")
	case err == nil:
		view.CurrentWeights = weights
		view.DriftFellBack = anyPriceMissing(assets)
		if view.DriftFellBack && w.metrics != nil {
			w.metrics.DriftFallbacks.Inc()
		}
	}

	currentPrice := w.basketPrice(snap)

	for _, pos := range snap.Positions {
		if !pos.IsOpen() {
			continue
		}

		pv := PositionView{
			Position: pos,
			PnL:      w.engine.PnL(&pos, currentPrice),
			Fee:      w.engine.Fee(pos.UsdcSize),
		}
		if pos.Collateral > 0 {
			leverage := fixmath.MulDiv(pos.UsdcSize, fixmath.LeverageScale, pos.Collateral, fixmath.RoundHalfEven)
			pv.LiquidationPrice = w.engine.LiquidationPrice(pos.Collateral, pos.EntryPrice, leverage, pos.IsLong)
		}
		view.Positions = append(view.Positions, pv)
	}

	attrs := reconcile.AttributeAll(snap)
	for i := range snap.Orders {
		view.Orders = append(view.Orders, OrderView{Order: snap.Orders[i], Attribution: attrs[i]})
		w.countAttribution(attrs[i])
	}

	return view
}

// basketPrice prefers a live feed quote for the basket over the index's
// possibly-stale NAV.
func (w *Worker) basketPrice(snap *state.Snapshot) int64 {
	if p, ok := w.prices.Latest(snap.Basket.Address); ok && p > 0 {
		return p
	}
	return snap.Basket.Price
}

func (w *Worker) countAttribution(attr reconcile.Attribution) {
	if w.metrics == nil {
		return
	}

	w.metrics.ReconcileRuleHits.WithLabelValues(attr.Rule.String()).Inc()
	if attr.Confidence == reconcile.ConfidenceHeuristic {
		w.metrics.ReconcileHeuristic.Inc()
	}
	if !attr.Attributed {
		w.metrics.ReconcileUnattributed.Inc()
	}
}

func anyPriceMissing(assets []basket.Asset) bool {
	for _, a := range assets {
		if a.CurrentPrice <= 0 || a.BaselinePrice <= 0 {
			return true
		}
	}
	return false
}
