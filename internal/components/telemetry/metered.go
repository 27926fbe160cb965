package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeteredAPI forwards every report to an inner API and mirrors it into OpenTelemetry
// instruments: broken and warning reports increment a counter, counts become gauge
// readings. Debug reports are not metered.
type MeteredAPI struct {
	inner   API
	reports metric.Int64Counter
	counts  metric.Int64Gauge
}

func NewMeteredAPI(inner API, meter metric.Meter) (MeteredAPI, error) {
	reports, err := meter.Int64Counter(
		"reports",
		metric.WithDescription("broken and warning reports by component"),
	)
	if err != nil {
		return MeteredAPI{}, err
	}
	counts, err := meter.Int64Gauge(
		"counts",
		metric.WithDescription("last reported count by id"),
	)
	if err != nil {
		return MeteredAPI{}, err
	}
	return MeteredAPI{inner: inner, reports: reports, counts: counts}, nil
}

func (m MeteredAPI) ReportBroken(id string, params ...any) {
	m.reports.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("level", "broken"),
		attribute.String("id", id),
	))
	m.inner.ReportBroken(id, params...)
}

func (m MeteredAPI) ReportWarning(id string, params ...any) {
	m.reports.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("level", "warning"),
		attribute.String("id", id),
	))
	m.inner.ReportWarning(id, params...)
}

func (m MeteredAPI) ReportDebug(msg string, params ...any) {
	m.inner.ReportDebug(msg, params...)
}

func (m MeteredAPI) ReportCount(id string, count int64) {
	m.counts.Record(context.Background(), count, metric.WithAttributes(attribute.String("id", id)))
	m.inner.ReportCount(id, count)
}
