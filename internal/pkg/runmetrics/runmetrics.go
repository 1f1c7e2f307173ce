// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package runmetrics collects the metrics of a single command run.
//
// Metrics live on a private registry and are written once at the end of a run
// in the node-exporter textfile collector format.
package runmetrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dxctl"

const (
	outcomeSuccess = "success"
	outcomeError   = "error"
)

// Recorder records query, request, and report metrics.
//
// A Recorder satisfies sqlstore.Observer and restclient.Observer.
type Recorder interface {
	// ObserveQuery records a query against a target.
	ObserveQuery(target string, duration time.Duration, err error)
	// ObserveRequest records an HTTP request of a client.
	ObserveRequest(client string, method string, statusCode int, duration time.Duration, err error)
	// ObserveReport records the number of rows a report produced.
	ObserveReport(report string, rows int)
	// Gatherer returns the registry the metrics are collected on.
	Gatherer() prometheus.Gatherer
	// WriteToTextfile writes the metrics to the file at path.
	WriteToTextfile(path string) error
}

// NewRecorder returns a new Recorder with its own registry.
func NewRecorder() Recorder {
	registry := prometheus.NewRegistry()
	r := &recorder{
		registry: registry,
		queriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Total number of SQL queries by target and outcome.",
			},
			[]string{"target", "outcome"},
		),
		queryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_duration_seconds",
				Help:      "SQL query duration in seconds.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"target"},
		),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by client, method, and status.",
			},
			[]string{"client", "method", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"client"},
		),
		reportRows: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "report_rows",
				Help:      "Number of rows produced by a report.",
			},
			[]string{"report"},
		),
	}
	registry.MustRegister(
		r.queriesTotal,
		r.queryDuration,
		r.requestsTotal,
		r.requestDuration,
		r.reportRows,
	)
	return r
}

// *** PRIVATE ***

type recorder struct {
	registry        *prometheus.Registry
	queriesTotal    *prometheus.CounterVec
	queryDuration   *prometheus.HistogramVec
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	reportRows      *prometheus.GaugeVec
}

func (r *recorder) ObserveQuery(target string, duration time.Duration, err error) {
	r.queriesTotal.WithLabelValues(target, outcome(err)).Inc()
	r.queryDuration.WithLabelValues(target).Observe(duration.Seconds())
}

func (r *recorder) ObserveRequest(client string, method string, statusCode int, duration time.Duration, err error) {
	status := strconv.Itoa(statusCode)
	if statusCode == 0 {
		// No response was received.
		status = outcomeError
	}
	r.requestsTotal.WithLabelValues(client, method, status).Inc()
	r.requestDuration.WithLabelValues(client).Observe(duration.Seconds())
}

func (r *recorder) ObserveReport(report string, rows int) {
	r.reportRows.WithLabelValues(report).Set(float64(rows))
}

func (r *recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

func (r *recorder) WriteToTextfile(path string) error {
	if path == "" {
		return errors.New("metrics file path is empty")
	}
	return prometheus.WriteToTextfile(path, r.registry)
}

func outcome(err error) string {
	if err != nil {
		return outcomeError
	}
	return outcomeSuccess
}
