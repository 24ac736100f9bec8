package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var reportsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modbot_reports_created",
	Help: "Number of reports created, by source",
}, []string{"source"})

var reportsFinalized = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modbot_reports_finalized",
	Help: "Number of reports released after reaching a terminal state, by outcome",
}, []string{"outcome"})

var reportsWithdrawn = promauto.NewCounter(prometheus.CounterOpts{
	Name: "modbot_reports_withdrawn",
	Help: "Number of reports cancelled by the reporter before a moderator claimed them",
})

var activeReports = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "modbot_active_reports",
	Help: "Number of reports currently tracked by the dispatcher",
})

var throttledSubmissions = promauto.NewCounter(prometheus.CounterOpts{
	Name: "modbot_throttled_submissions",
	Help: "Number of report submissions rejected for false reporting",
})

var assignmentRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modbot_assignment_requests",
	Help: "Number of moderator assignment requests, by result",
}, []string{"result"})

var effectsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modbot_effects_applied",
	Help: "Number of moderation effect steps, by step and result",
}, []string{"step", "result"})

var screenedMessages = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modbot_screened_messages",
	Help: "Number of channel messages screened by the classifier, by whether they were flagged",
}, []string{"flagged"})

var releaseErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "modbot_release_errors",
	Help: "Number of failed release steps",
}, []string{"step"})
