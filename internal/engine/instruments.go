package engine

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/donaldgifford/item-notifier/internal/engine"

// Outcome attribute values.
const (
	outcomeOK      = "ok"
	outcomeError   = "error"
	outcomePartial = "partial"
)

// instruments are the OTel counterparts of the Prometheus poll metrics,
// exported over OTLP when telemetry is enabled.
type instruments struct {
	polls         metric.Int64Counter
	pollDuration  metric.Float64Histogram
	itemsDetected metric.Int64Counter
	notifications metric.Int64Counter
}

func newInstruments(mp metric.MeterProvider) instruments {
	m := mp.Meter(meterName)
	var in instruments
	var err error

	// A failed registration still yields a usable no-op instrument.
	if in.polls, err = m.Int64Counter("inotif.poll.cycles",
		metric.WithDescription("Poll cycles run, by outcome."),
		metric.WithUnit("{cycle}"),
	); err != nil {
		otel.Handle(err)
	}
	if in.pollDuration, err = m.Float64Histogram("inotif.poll.duration",
		metric.WithDescription("Duration of a poll cycle."),
		metric.WithUnit("s"),
	); err != nil {
		otel.Handle(err)
	}
	if in.itemsDetected, err = m.Int64Counter("inotif.items.detected",
		metric.WithDescription("New items selected for notification."),
		metric.WithUnit("{item}"),
	); err != nil {
		otel.Handle(err)
	}
	if in.notifications, err = m.Int64Counter("inotif.notifications",
		metric.WithDescription("Notifications handed to the sinks, by outcome."),
		metric.WithUnit("{notification}"),
	); err != nil {
		otel.Handle(err)
	}
	return in
}

func (in instruments) recordPoll(ctx context.Context, seconds float64, err error) {
	outcome := outcomeOK
	if err != nil {
		outcome = outcomeError
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	in.polls.Add(ctx, 1, attrs)
	in.pollDuration.Record(ctx, seconds, attrs)
}

func (in instruments) recordNotification(ctx context.Context, outcome string) {
	in.notifications.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
