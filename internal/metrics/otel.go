package metrics

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// ErrNilMeter is returned by RegisterOTel when no meter is supplied.
var ErrNilMeter = errors.New("nil meter")

// OTelExporter publishes the registry through observable instruments. The
// caller owns the MeterProvider.
type OTelExporter struct {
	registration metric.Registration
}

// RegisterOTel creates one observable instrument per metric on meter and a
// single callback that reads a Snapshot per collection.
func RegisterOTel(meter metric.Meter, r *Registry) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}

	var counters [numCounters]metric.Int64ObservableCounter
	observables := make([]metric.Observable, 0, int(numCounters)+3)
	for id, d := range counterDefs {
		ins, err := meter.Int64ObservableCounter(d.name, metric.WithDescription(d.help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", d.name, err)
		}
		counters[id] = ins
		observables = append(observables, ins)
	}

	corrections, err := meter.Int64ObservableCounter(correctionsDef.name, metric.WithDescription(correctionsDef.help))
	if err != nil {
		return nil, fmt.Errorf("create observable counter %s: %w", correctionsDef.name, err)
	}
	available, err := meter.Int64ObservableGauge(availableDef.name, metric.WithDescription(availableDef.help))
	if err != nil {
		return nil, fmt.Errorf("create observable gauge %s: %w", availableDef.name, err)
	}
	queue, err := meter.Int64ObservableGauge(queueDef.name, metric.WithDescription(queueDef.help))
	if err != nil {
		return nil, fmt.Errorf("create observable gauge %s: %w", queueDef.name, err)
	}
	observables = append(observables, corrections, available, queue)

	registration, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := r.Snapshot()
		for id, ins := range counters {
			o.ObserveInt64(ins, int64(s.Counters[id]))
		}
		o.ObserveInt64(corrections, int64(s.Corrections))
		var avail int64
		if s.Available {
			avail = 1
		}
		o.ObserveInt64(available, avail)
		o.ObserveInt64(queue, int64(s.QueueDepth))
		return nil
	}, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return &OTelExporter{registration: registration}, nil
}

// Close unregisters the callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
