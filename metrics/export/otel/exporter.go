package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/metric"

	"github.com/gizihub/sppgcore/metrics"
	"github.com/gizihub/sppgcore/metrics/export/internaldefs"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// Source is anything exposing a counter snapshot, in practice the wired
// sppgcore Core.
type Source interface {
	MetricsSnapshot() metrics.Snapshot
	AuditDropped() uint64
}

type observedCounter struct {
	id         metrics.MetricID
	instrument metric.Int64ObservableCounter
}

// Exporter registers observable instruments that pull from a snapshot on
// every collection cycle. Close unregisters the callback.
type Exporter struct {
	source       Source
	registration metric.Registration
	counters     []observedCounter
	pingBuckets  [8]metric.Int64ObservableGauge
	pingCount    metric.Int64ObservableGauge
	auditDropped metric.Int64ObservableCounter
}

// NewExporter wires every sppgcore counter and the ping histogram into the
// given meter.
func NewExporter(meter metric.Meter, source Source) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &Exporter{
		source:   source,
		counters: make([]observedCounter, 0, len(internaldefs.CounterDefs)),
	}

	observables := make([]metric.Observable, 0, len(internaldefs.CounterDefs)+10)

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.Name, err)
		}
		exporter.counters = append(exporter.counters, observedCounter{id: def.ID, instrument: ins})
		observables = append(observables, ins)
	}

	for i := range exporter.pingBuckets {
		name := internaldefs.PingHistogramName + "_bucket_le_" + internaldefs.HistogramBoundSuffix[i]
		ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative histogram bucket count."))
		if err != nil {
			return nil, fmt.Errorf("create histogram bucket gauge %s: %w", name, err)
		}
		exporter.pingBuckets[i] = ins
		observables = append(observables, ins)
	}

	countIns, err := meter.Int64ObservableGauge(
		internaldefs.PingHistogramName+"_count",
		metric.WithDescription("Histogram total sample count."),
	)
	if err != nil {
		return nil, fmt.Errorf("create histogram count gauge: %w", err)
	}
	exporter.pingCount = countIns
	observables = append(observables, countIns)

	auditDropped, err := meter.Int64ObservableCounter(
		"sppgcore_audit_dispatcher_dropped_total",
		metric.WithDescription("Audit events dropped by dispatcher backpressure."),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	exporter.auditDropped = auditDropped
	observables = append(observables, auditDropped)

	registration, err := meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		snapshot := exporter.source.MetricsSnapshot()
		for _, c := range exporter.counters {
			observer.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.PingLatency))
		for i := range cumulative {
			observer.ObserveInt64(exporter.pingBuckets[i], int64(cumulative[i]))
		}
		observer.ObserveInt64(exporter.pingCount, int64(cumulative[len(cumulative)-1]))
		observer.ObserveInt64(exporter.auditDropped, int64(exporter.source.AuditDropped()))
		return nil
	}, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	exporter.registration = registration
	return exporter, nil
}

// Close unregisters the collection callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
