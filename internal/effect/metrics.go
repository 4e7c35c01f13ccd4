package effect

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	effectsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldops_effects_started_total",
		Help: "Asynchronous effects started, by kind",
	}, []string{"kind"})

	effectsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldops_effects_delivered_total",
		Help: "Actions delivered by asynchronous effects, by kind",
	}, []string{"kind"})

	effectsCancelled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldops_effects_cancelled_total",
		Help: "Asynchronous effects cancelled by identity, by kind",
	}, []string{"kind"})

	effectsInflight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fieldops_effects_inflight",
		Help: "Asynchronous effects currently running",
	})
)
