package invalidate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Subjects follow basket.invalidate.{kind}. Core NATS pub/sub, not
// JetStream: these signals are lossy advisories and the timer refresh
// covers anything missed, so durability would only add latency.
const subjectPrefix = "basket.invalidate"

// Publisher broadcasts local invalidation signals to other engine
// instances over NATS.
type Publisher struct {
	nc     *nats.Conn
	logger zerolog.Logger
}

func NewPublisher(nc *nats.Conn, logger zerolog.Logger) *Publisher {
	return &Publisher{nc: nc, logger: logger}
}

// Publish sends the signal on basket.invalidate.{kind}. Failures are
// non-fatal to the caller's flow; the local bus already got the signal.
func (p *Publisher) Publish(sig Signal) error {
	data, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", subjectPrefix, sig.Kind)
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Relay feeds remote invalidation signals from NATS into a local Bus, so a
// refresh triggered on one instance reaches subscribers on all of them.
type Relay struct {
	nc     *nats.Conn
	bus    *Bus
	logger zerolog.Logger
}

func NewRelay(nc *nats.Conn, bus *Bus, logger zerolog.Logger) *Relay {
	return &Relay{nc: nc, bus: bus, logger: logger}
}

// Run subscribes to basket.invalidate.> and republishes into the local bus
// until the context ends.
func (r *Relay) Run(ctx context.Context) error {
	sub, err := r.nc.Subscribe(subjectPrefix+".>", func(msg *nats.Msg) {
		var sig Signal
		if err := json.Unmarshal(msg.Data, &sig); err != nil {
			r.logger.Warn().Err(err).Str("subject", msg.Subject).Msg("malformed invalidation signal")
			return
		}
		r.bus.Publish(sig)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s.>: %w", subjectPrefix, err)
	}

	<-ctx.Done()

	if err := sub.Drain(); err != nil {
		r.logger.Warn().Err(err).Msg("drain invalidation subscription")
	}
	return ctx.Err()
}
