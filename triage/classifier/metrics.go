package classifier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var classifyDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "modbot_classifier_duration_sec",
	Help:    "Duration of classifier calls, by classifier implementation",
	Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
}, []string{"classifier"})

var classifyCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modbot_classifier_count",
	Help: "Number of classifier calls, by implementation and result",
}, []string{"classifier", "result"})

var httpAPICount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modbot_classifier_http_count",
	Help: "Number of hosted classifier API calls, by HTTP status code",
}, []string{"status"})
