package pipeline

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "record_mapper"

// Row outcomes used as the "outcome" label of the rows counter.
const (
	OutcomePresent = "present"
	OutcomeAbsent  = "absent"
	OutcomeInvalid = "invalid"
)

// Metrics are the pipeline collectors. The zero value is not usable; a nil
// *Metrics disables collection.
type Metrics struct {
	Rows          *prometheus.CounterVec
	Saved         *prometheus.CounterVec
	Failures      *prometheus.CounterVec
	BatchDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg. Collectors
// already registered by an earlier call are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Input rows ingested, by record and outcome.",
		}, []string{"record", "outcome"}),
		Saved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_saved_total",
			Help:      "Records saved to the database.",
		}, []string{"record"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_failures_total",
			Help:      "Batches rolled back.",
		}, []string{"record"}),
		BatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Time to ingest and save one batch.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"record"}),
	}

	var err error

	if m.Rows, err = register(reg, m.Rows); err != nil {
		return nil, err
	}

	if m.Saved, err = register(reg, m.Saved); err != nil {
		return nil, err
	}

	if m.Failures, err = register(reg, m.Failures); err != nil {
		return nil, err
	}

	if m.BatchDuration, err = register(reg, m.BatchDuration); err != nil {
		return nil, err
	}

	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}

		return c, fmt.Errorf("failed to register metrics: %w", err)
	}

	return c, nil
}
