// Package index queries the off-chain service that mirrors ledger state
// into Postgres. The mirror is eventually consistent: rows can lag the
// ledger by up to the refresh interval and linkage columns may be NULL
// while propagation catches up. Every read is stamped with the indexer's
// slot watermark so callers know what they are looking at.
//
// The schema is owned by the external indexer; this client is read-only.
package index

import (
	"BasketEngine/internal/basket"
	"BasketEngine/internal/observability"
	"BasketEngine/internal/state"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrBasketNotFound is returned when the basket is not in the mirror yet.
var ErrBasketNotFound = errors.New("basket not found in index")

// Client reads basket, order, and position snapshots from the index.
type Client struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewClient wraps an open connection pool. metrics may be nil in tests.
func NewClient(db *sql.DB, metrics *observability.Metrics) *Client {
	return &Client{db: db, metrics: metrics}
}

// GetBasket loads one basket with its asset composition.
func (c *Client) GetBasket(ctx context.Context, address string) (*basket.Basket, error) {
	defer c.observe("get_basket", time.Now())

	b := &basket.Basket{Address: address}
	err := c.db.QueryRowContext(ctx, `
		SELECT name, price, is_active
		FROM index.baskets
		WHERE address = $1
	`, address).Scan(&b.Name, &b.Price, &b.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBasketNotFound
	}
	if err != nil {
		return nil, c.fail("get_basket", err)
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT ticker, name, mint_address, target_weight, is_long,
		       baseline_price, current_price
		FROM index.basket_assets
		WHERE basket_address = $1
		ORDER BY ticker
	`, address)
	if err != nil {
		return nil, c.fail("get_basket", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a basket.Asset
		var current sql.NullInt64
		if err := rows.Scan(
			&a.Ticker, &a.Name, &a.Address, &a.TargetWeight, &a.IsLong,
			&a.BaselinePrice, &current,
		); err != nil {
			return nil, c.fail("get_basket", err)
		}
		if current.Valid {
			a.CurrentPrice = current.Int64
		}
		b.Assets = append(b.Assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, c.fail("get_basket", err)
	}

	return b, nil
}

// GetOrders returns a user's orders for one basket. Linkage columns may be
// NULL; they come back as empty strings, which is what the reconciler
// expects for absent linkage.
func (c *Client) GetOrders(ctx context.Context, basketAddr, owner string) ([]state.Order, error) {
	defer c.observe("get_orders", time.Now())

	rows, err := c.db.QueryContext(ctx, `
		SELECT address, action, order_type, status, limit_price,
		       collateral, usdc_size, position_address, target_position
		FROM index.orders
		WHERE basket_address = $1 AND owner = $2
		ORDER BY address
	`, basketAddr, owner)
	if err != nil {
		return nil, c.fail("get_orders", err)
	}
	defer rows.Close()

	var orders []state.Order
	for rows.Next() {
		o := state.Order{Owner: owner, Basket: basketAddr}
		var position, target sql.NullString
		if err := rows.Scan(
			&o.Address, &o.Action, &o.Type, &o.Status, &o.LimitPrice,
			&o.Collateral, &o.UsdcSize, &position, &target,
		); err != nil {
			return nil, c.fail("get_orders", err)
		}
		o.Position = position.String
		o.TargetPosition = target.String
		orders = append(orders, o)
	}

	return orders, c.fail("get_orders", rows.Err())
}

// GetPositions returns a user's positions for one basket, open and closed.
func (c *Client) GetPositions(ctx context.Context, basketAddr, owner string) ([]state.Position, error) {
	defer c.observe("get_positions", time.Now())

	rows, err := c.db.QueryContext(ctx, `
		SELECT address, is_long, size, usdc_size, entry_price,
		       collateral, status, open_order
		FROM index.positions
		WHERE basket_address = $1 AND owner = $2
		ORDER BY address
	`, basketAddr, owner)
	if err != nil {
		return nil, c.fail("get_positions", err)
	}
	defer rows.Close()

	var positions []state.Position
	for rows.Next() {
		p := state.Position{Owner: owner, Basket: basketAddr}
		var openOrder sql.NullString
		if err := rows.Scan(
			&p.Address, &p.IsLong, &p.Size, &p.UsdcSize, &p.EntryPrice,
			&p.Collateral, &p.Status, &openOrder,
		); err != nil {
			return nil, c.fail("get_positions", err)
		}
		p.OpenOrder = openOrder.String
		positions = append(positions, p)
	}

	return positions, c.fail("get_positions", rows.Err())
}

// GetSnapshot assembles one internally-consistent snapshot: basket, orders,
// positions, and the watermark they were read at.
func (c *Client) GetSnapshot(ctx context.Context, basketAddr, owner string) (*state.Snapshot, error) {
	asOf, err := c.getWatermark(ctx)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}

	b, err := c.GetBasket(ctx, basketAddr)
	if err != nil {
		return nil, err
	}

	orders, err := c.GetOrders(ctx, basketAddr, owner)
	if err != nil {
		return nil, err
	}

	positions, err := c.GetPositions(ctx, basketAddr, owner)
	if err != nil {
		return nil, err
	}

	return &state.Snapshot{
		Basket:    b,
		Owner:     owner,
		Orders:    orders,
		Positions: positions,
		AsOfSlot:  asOf,
		FetchedAt: time.Now(),
	}, nil
}

func (c *Client) getWatermark(ctx context.Context) (int64, error) {
	var slot int64
	err := c.db.QueryRowContext(ctx, `
		SELECT last_slot FROM index.watermark LIMIT 1
	`).Scan(&slot)
	if errors.Is(err, sql.ErrNoRows) {
		// Indexer has not written a watermark yet; cold mirror.
		return 0, nil
	}
	return slot, err
}

func (c *Client) observe(query string, start time.Time) {
	if c.metrics != nil {
		c.metrics.IndexQueryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
	}
}

func (c *Client) fail(query string, err error) error {
	if err != nil && c.metrics != nil {
		c.metrics.IndexQueryErrors.WithLabelValues(query).Inc()
	}
	return err
}
