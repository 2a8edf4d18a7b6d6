// Copyright (c) 2025 The IncidentWatch Authors.
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the ingestion counters, labeled by signal kind where the
// pipeline handles all three.
type Metrics struct {
	RecordsDecoded    *prometheus.CounterVec
	RecordsDropped    *prometheus.CounterVec
	PayloadErrors     *prometheus.CounterVec
	IncidentsDetected *prometheus.CounterVec
	IncidentsAdmitted prometheus.Counter
}

// NewMetrics registers the pipeline counters with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RecordsDecoded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incidentwatch",
			Name:      "records_decoded_total",
			Help:      "Telemetry records decoded successfully.",
		}, []string{"signal"}),
		RecordsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incidentwatch",
			Name:      "records_dropped_total",
			Help:      "Malformed records dropped during decoding.",
		}, []string{"signal"}),
		PayloadErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incidentwatch",
			Name:      "payload_errors_total",
			Help:      "Export payloads rejected as unparseable.",
		}, []string{"signal"}),
		IncidentsDetected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incidentwatch",
			Name:      "incidents_detected_total",
			Help:      "Incident candidates produced by rule evaluation.",
		}, []string{"type", "severity"}),
		IncidentsAdmitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "incidentwatch",
			Name:      "incidents_admitted_total",
			Help:      "Incidents admitted to the active registry.",
		}),
	}
}
