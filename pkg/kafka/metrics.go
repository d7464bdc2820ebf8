package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Publish outcomes recorded by ProducerMessages.
const (
	resultPublished = "published"
	resultFailed    = "failed"
)

var (
	// ProducerMessages counts publish attempts by topic and result.
	ProducerMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bcart",
			Name:      "kafka_producer_messages_total",
			Help:      "Kafka publish attempts by topic and result (published, failed)",
		},
		[]string{"topic", "result"},
	)

	// ProducerPublishDuration observes how long WriteMessages takes.
	ProducerPublishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bcart",
			Name:      "kafka_producer_publish_duration_seconds",
			Help:      "Duration of Kafka publish operations in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"topic"},
	)
)
