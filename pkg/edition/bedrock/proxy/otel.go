package proxy

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

var (
	meter  = otel.Meter("bedrock/proxy")
	tracer = otel.Tracer("bedrock/proxy")
)

// Results a relayed packet is counted with.
const (
	resultForwarded = "forwarded"
	resultCancelled = "cancelled"
	resultRaw       = "raw" // could not be decoded and was forwarded unchanged
)

var packetsCounter metric.Int64Counter = noop.Int64Counter{}

func init() {
	c, err := meter.Int64Counter(
		"veil.relay.packets",
		metric.WithDescription("The number of packets read from relayed connections"),
		metric.WithUnit("{packet}"),
	)
	if err == nil {
		packetsCounter = c
	}
}

func (r *Relay) initMeter() error {
	_, err := meter.Int64ObservableGauge(
		"veil.relay.sessions",
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			o.Observe(int64(r.SessionCount()))
			return nil
		}),
		metric.WithDescription("The current number of active relay sessions"),
		metric.WithUnit("1"),
	)
	return err
}
