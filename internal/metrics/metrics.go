// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package metrics exports field-operation timings and job outcomes to
// Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fhe_ecdsa"

// Metrics holds the collectors of one process. It implements field.Observer.
type Metrics struct {
	fieldOps    *prometheus.HistogramVec
	jobs        *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	inflight    prometheus.Gauge
}

// New creates the collectors and registers them with reg, which may be nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fieldOps: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "field_op_seconds",
			Help:      "Duration of encrypted modular arithmetic operations.",
			Buckets:   prometheus.ExponentialBuckets(1e-4, 4, 12),
		}, []string{"op"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Jobs finished, by kind and outcome.",
		}, []string{"kind", "status"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_seconds",
			Help:      "Wall time of review and sign jobs.",
			Buckets:   prometheus.ExponentialBuckets(1e-3, 4, 12),
		}, []string{"kind"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_inflight",
			Help:      "Jobs currently executing.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.fieldOps, m.jobs, m.jobDuration, m.inflight)
	}
	return m
}

// ObserveOp records one field operation.
func (m *Metrics) ObserveOp(op string, d time.Duration) {
	m.fieldOps.WithLabelValues(op).Observe(d.Seconds())
}

// JobStarted marks a job as executing.
func (m *Metrics) JobStarted() { m.inflight.Inc() }

// JobFinished records the outcome of a job started with JobStarted.
func (m *Metrics) JobFinished(kind, status string, d time.Duration) {
	m.inflight.Dec()
	m.jobs.WithLabelValues(kind, status).Inc()
	m.jobDuration.WithLabelValues(kind).Observe(d.Seconds())
}
