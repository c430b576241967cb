package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	assert.Error(t, Register(reg), "registering twice must fail")

	before := testutil.ToFloat64(SweepCycles.WithLabelValues("idle"))
	SweepCycles.WithLabelValues("idle").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(SweepCycles.WithLabelValues("idle")))
}
