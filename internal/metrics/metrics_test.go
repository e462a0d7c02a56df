// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/fhe-ecdsa/field"
)

var _ field.Observer = (*Metrics)(nil)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveOp("MulMod", 3*time.Millisecond)
	m.ObserveOp("MulMod", time.Millisecond)
	m.ObserveOp("Inverse", time.Second)
	assert.Equal(t, 2, testutil.CollectAndCount(m.fieldOps))

	m.JobStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inflight))
	m.JobFinished("sign", "completed", 2*time.Second)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inflight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobs.WithLabelValues("sign", "completed")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "fhe_ecdsa_field_op_seconds")
	assert.Contains(t, names, "fhe_ecdsa_jobs_total")
}

func TestNilRegisterer(t *testing.T) {
	m := New(nil)
	m.ObserveOp("AddMod", time.Microsecond)
	assert.Equal(t, 1, testutil.CollectAndCount(m.fieldOps))
}
