package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("modbot")

var messagesReceived = promauto.NewCounter(prometheus.CounterOpts{
	Name: "modbot_messages_received",
	Help: "Number of channel messages received for screening",
})

var messagesFailed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "modbot_messages_failed",
	Help: "Number of channel messages that failed screening",
})

var directMessagesReceived = promauto.NewCounter(prometheus.CounterOpts{
	Name: "modbot_direct_messages_received",
	Help: "Number of direct messages received",
})
