package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oakmirror",
			Name:      "kafka_messages_published_total",
			Help:      "Total number of events published",
		},
		[]string{"topic"},
	)

	publishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oakmirror",
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of failed or short-circuited publishes",
		},
		[]string{"topic", "reason"},
	)

	publishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "oakmirror",
			Name:      "kafka_publish_duration_seconds",
			Help:      "Duration of publish calls that reached the broker",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"topic"},
	)
)
