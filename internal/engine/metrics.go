package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	actionsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldops_engine_actions_total",
		Help: "Actions reduced by the engine, by action name",
	}, []string{"action"})

	mailboxDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fieldops_engine_mailbox_depth",
		Help: "Actions waiting in the engine mailbox",
	})
)
