// Package publisher pushes enriched vehicle snapshots to NATS so
// downstream consumers do not need to poll the HTTP API.
package publisher

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/krk-transit/delay-tracker/internal/logger"
	"github.com/krk-transit/delay-tracker/internal/metrics"
)

// SnapshotSource yields the serialized snapshot to publish.
type SnapshotSource interface {
	GetJSON(ctx context.Context) ([]byte, error)
}

type Publisher struct {
	nc        *nats.Conn
	publish   func(subject string, data []byte) error
	subject   string
	interval  time.Duration
	source    SnapshotSource
	log       logger.Logger
	collector *metrics.Collector
}

func New(url, subject string, interval time.Duration, source SnapshotSource, log logger.Logger, collector *metrics.Collector) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("delay-tracker"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			if collector != nil {
				collector.NATSConnected.Set(0)
			}
			log.Warn("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if collector != nil {
				collector.NATSConnected.Set(1)
			}
			log.Info("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if collector != nil {
				collector.NATSConnected.Set(0)
			}
			log.Info("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if collector != nil {
		collector.NATSConnected.Set(1)
	}
	return &Publisher{
		nc:        nc,
		publish:   nc.Publish,
		subject:   subject,
		interval:  interval,
		source:    source,
		log:       log,
		collector: collector,
	}, nil
}

// Run publishes a snapshot immediately, then every interval until ctx
// is cancelled. The immediate publish gives subscribers data at
// startup instead of one interval later.
func (p *Publisher) Run(ctx context.Context) {
	p.publishOnce(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.publishOnce(ctx)
		}
	}
}

func (p *Publisher) publishOnce(ctx context.Context) {
	buf, err := p.source.GetJSON(ctx)
	if err != nil {
		p.log.Warn("snapshot publish skipped", "error", err)
		return
	}
	if err := p.publish(p.subject, buf); err != nil {
		if p.collector != nil {
			p.collector.NATSPublishErrs.Inc()
		}
		p.log.Error("nats publish failed", "error", err, "subject", p.subject)
		return
	}
	if p.collector != nil {
		p.collector.NATSPublished.Inc()
	}
}

func (p *Publisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
		p.nc.Close()
	}
}
