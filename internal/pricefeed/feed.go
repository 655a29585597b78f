// Package pricefeed maintains the latest observed price per asset from the
// external feed's websocket stream. Staleness policy belongs to the caller;
// this package only reports what it last saw.
package pricefeed

import (
	"BasketEngine/internal/basket"
	"BasketEngine/internal/fixmath"
	"BasketEngine/internal/observability"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Source is what the refresh worker consumes; tests substitute a Static.
type Source interface {
	Latest(symbol string) (int64, bool)
}

// tick is the feed's wire format. Prices arrive as decimal strings and are
// converted to the engine's price scale on ingest.
type tick struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// Feed is a reconnecting websocket client over the price stream.
type Feed struct {
	url     string
	logger  zerolog.Logger
	metrics *observability.Metrics

	mu     sync.RWMutex
	prices map[string]int64

	ReadTimeout  time.Duration
	ReconnectMin time.Duration
	ReconnectMax time.Duration
}

func New(url string, logger zerolog.Logger, metrics *observability.Metrics) *Feed {
	return &Feed{
		url:          url,
		logger:       logger,
		metrics:      metrics,
		prices:       make(map[string]int64),
		ReadTimeout:  60 * time.Second,
		ReconnectMin: time.Second,
		ReconnectMax: 30 * time.Second,
	}
}

// Run dials the feed and consumes ticks until the context ends,
// reconnecting with capped backoff on any failure.
func (f *Feed) Run(ctx context.Context) error {
	backoff := f.ReconnectMin

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
		if err != nil {
			f.logger.Warn().Err(err).Str("url", f.url).Dur("retry_in", backoff).Msg("price feed dial failed")
			if f.metrics != nil {
				f.metrics.FeedReconnects.Inc()
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, f.ReconnectMax)
			continue
		}

		f.logger.Info().Str("url", f.url).Msg("price feed connected")
		backoff = f.ReconnectMin

		err = f.readLoop(ctx, conn)
		conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}

		f.logger.Warn().Err(err).Msg("price feed disconnected")
		if f.metrics != nil {
			f.metrics.FeedReconnects.Inc()
		}
	}
}

func (f *Feed) readLoop(ctx context.Context, conn *websocket.Conn) error {
	// Unblock ReadMessage when the context ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(f.ReadTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var t tick
		if err := json.Unmarshal(data, &t); err != nil {
			f.parseError(err, data)
			continue
		}

		price, err := parsePrice(t.Price)
		if err != nil {
			f.parseError(err, data)
			continue
		}

		f.mu.Lock()
		f.prices[t.Symbol] = price
		f.mu.Unlock()

		if f.metrics != nil {
			f.metrics.PriceUpdates.Inc()
		}
	}
}

func (f *Feed) parseError(err error, data []byte) {
	f.logger.Warn().Err(err).Bytes("payload", data).Msg("malformed price tick")
	if f.metrics != nil {
		f.metrics.FeedParseErrors.Inc()
	}
}

// parsePrice converts a decimal price string to price-scale fixed point.
func parsePrice(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.Mul(decimal.NewFromInt(fixmath.PriceScale)).Round(0).IntPart(), nil
}

// Latest returns the last observed price for the symbol.
func (f *Feed) Latest(symbol string) (int64, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.prices[symbol]
	return p, ok
}

// Stamp copies the assets with CurrentPrice set from the feed where known.
// Assets the feed has no price for keep whatever the index reported; the
// drift calculator handles fully-missing prices by falling back to targets.
func Stamp(src Source, assets []basket.Asset) []basket.Asset {
	out := make([]basket.Asset, len(assets))
	copy(out, assets)
	for i := range out {
		if p, ok := src.Latest(out[i].Ticker); ok && p > 0 {
			out[i].CurrentPrice = p
		}
	}
	return out
}

// Static is a fixed price table, used in tests and offline tooling.
type Static map[string]int64

func (s Static) Latest(symbol string) (int64, bool) {
	p, ok := s[symbol]
	return p, ok
}
