package queue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var queueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "modbot_queue_depth",
	Help: "Number of reports waiting in each triage lane",
}, []string{"lane"})

var queueEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modbot_queue_enqueued",
	Help: "Number of reports placed in each triage lane",
}, []string{"lane"})

var queueDequeued = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modbot_queue_dequeued",
	Help: "Number of reports handed out from each triage lane",
}, []string{"lane"})
