package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	OrderTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Total number of successful order transitions",
	}, []string{"status"})

	OrderTransitionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_rejected_total",
		Help: "Total number of rejected order transitions",
	}, []string{"reason"})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of failed order creations",
	}, []string{"reason"})

	SearchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "supplier_searches_total",
		Help: "Total number of supplier discovery searches",
	})

	SearchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "supplier_search_latency_seconds",
		Help:    "Latency of supplier discovery searches",
		Buckets: prometheus.DefBuckets,
	})

	SearchResults = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "supplier_search_results",
		Help:    "Number of ranked suppliers returned per search",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
	})

	SearchVerifiedFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "supplier_search_verified_fallbacks_total",
		Help: "Searches where the empty verified set fell back to all candidates",
	})

	ReviewsSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reviews_submitted_total",
		Help: "Total number of reviews applied to supplier ratings",
	})

	ReviewsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reviews_rejected_total",
		Help: "Total number of rejected review submissions",
	}, []string{"reason"})

	NotificationsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_sent_total",
		Help: "Events delivered to live connections",
	}, []string{"event"})

	NotificationsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_dropped_total",
		Help: "Events dropped because no live connection or a slow client",
	}, []string{"reason"})

	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently registered live connections",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
