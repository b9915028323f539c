package controller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type metrics struct {
	registry   *prometheus.Registry
	conns      prometheus.Gauge
	events     *prometheus.CounterVec
	failures   *prometheus.CounterVec
	broadcasts *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

func newMetrics(reg *prometheus.Registry) *metrics {
	m := &metrics{
		registry: reg,
		conns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "relay",
			Name:      "connections",
			Help:      "Open websocket connections.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "events_total",
			Help:      "Inbound websocket events by name.",
		}, []string{"event"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "event_failures_total",
			Help:      "Inbound websocket events whose handler failed.",
		}, []string{"event"}),
		broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "deliveries_total",
			Help:      "Outbound frames by event name.",
		}, []string{"event"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "relay",
			Name:      "event_duration_seconds",
			Help:      "Time spent handling an inbound event.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"event"}),
	}

	reg.MustRegister(
		m.conns,
		m.events,
		m.failures,
		m.broadcasts,
		m.duration,
		collectors.NewGoCollector(),
	)

	return m
}
