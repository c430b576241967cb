// Package metrics holds the Prometheus collectors shared by the RPC adapter,
// the payment checks and the settlement sweeper.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RPCCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feedgate",
		Subsystem: "rpc",
		Name:      "calls_total",
		Help:      "Wallet RPC calls by method and outcome.",
	}, []string{"method", "outcome"})

	RPCDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "feedgate",
		Subsystem: "rpc",
		Name:      "call_duration_seconds",
		Help:      "Wallet RPC round-trip latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	BalanceChecks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feedgate",
		Subsystem: "payments",
		Name:      "balance_checks_total",
		Help:      "Balance aggregations by outcome.",
	}, []string{"outcome"})

	SweepCycles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feedgate",
		Subsystem: "settlement",
		Name:      "cycles_total",
		Help:      "Settlement cycles by outcome.",
	}, []string{"outcome"})

	SweptSatoshis = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "feedgate",
		Subsystem: "settlement",
		Name:      "swept_satoshis_total",
		Help:      "Satoshis sent to the collection address.",
	})

	NextSweep = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "feedgate",
		Subsystem: "settlement",
		Name:      "next_cycle_timestamp_seconds",
		Help:      "Unix time of the next scheduled settlement cycle.",
	})
)

// Register adds every collector to reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		RPCCalls, RPCDuration, BalanceChecks, SweepCycles, SweptSatoshis, NextSweep,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
