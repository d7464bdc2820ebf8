package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reviewsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bcart",
		Subsystem: "reviewstore",
		Name:      "reviews_submitted_total",
		Help:      "Total number of reviews accepted in pending status.",
	}, []string{"shop_id"})

	reviewsApproved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bcart",
		Subsystem: "reviewstore",
		Name:      "reviews_approved_total",
		Help:      "Total number of review approvals.",
	}, []string{"shop_id"})
)
