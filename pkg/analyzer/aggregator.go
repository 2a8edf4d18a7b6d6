// Copyright (c) 2025 The IncidentWatch Authors.
// SPDX-License-Identifier: Apache-2.0

// Package analyzer groups decoded telemetry by originating service, computes
// per-group statistics, and evaluates fixed detection rules against them.
// Everything in this package is deterministic and free of side effects.
package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/incidentwatch/incidentwatch/model"
)

// Keyword sets used to classify log records by substring match against the
// stringified body, case-insensitive.
var (
	errorKeywords   = []string{"error", "exception", "failed", "timeout", "crash", "panic"}
	warningKeywords = []string{"warning", "slow", "delay", "retry", "fallback"}
)

// minMetricPoints is the minimum series length required before a metric
// group carries enough signal to analyze.
const minMetricPoints = 5

// LogStats summarizes the log records of one service.
type LogStats struct {
	Service      string
	Total        int
	ErrorCount   int
	WarningCount int
	ErrorRate    float64
	WarningRate  float64
}

// SpanStats summarizes the spans of one service.
type SpanStats struct {
	Service           string
	Total             int
	ErrorCount        int
	AvgDurationMillis float64
	P95DurationMillis float64
	MaxDurationMillis float64
	ErrorRate         float64
}

// MetricStats summarizes one metric time series, identified by metric name
// plus sorted attribute signature.
type MetricStats struct {
	Key          string
	Name         string
	Service      string
	Points       int
	CurrentValue float64
	Baseline     float64
}

// AggregateLogs groups logs by service name and counts error and warning
// keyword hits. Output is sorted by service for determinism.
func AggregateLogs(logs []model.LogRecord) []LogStats {
	groups := make(map[string][]model.LogRecord)
	for _, l := range logs {
		groups[l.ServiceName] = append(groups[l.ServiceName], l)
	}

	stats := make([]LogStats, 0, len(groups))
	for service, group := range groups {
		s := LogStats{Service: service, Total: len(group)}
		for _, l := range group {
			body := strings.ToLower(fmt.Sprint(l.Body))
			if containsAny(body, errorKeywords) {
				s.ErrorCount++
			}
			if containsAny(body, warningKeywords) {
				s.WarningCount++
			}
		}
		if s.Total > 0 {
			s.ErrorRate = float64(s.ErrorCount) / float64(s.Total)
			s.WarningRate = float64(s.WarningCount) / float64(s.Total)
		}
		stats = append(stats, s)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Service < stats[j].Service })
	return stats
}

// AggregateSpans groups spans by service name and computes duration
// statistics. The p95 uses linear interpolation between closest ranks.
func AggregateSpans(spans []model.SpanRecord) []SpanStats {
	groups := make(map[string][]model.SpanRecord)
	for _, s := range spans {
		groups[s.ServiceName] = append(groups[s.ServiceName], s)
	}

	stats := make([]SpanStats, 0, len(groups))
	for service, group := range groups {
		s := SpanStats{Service: service, Total: len(group)}
		durations := make([]float64, 0, len(group))
		var sum float64
		for _, span := range group {
			d := span.DurationMillis()
			durations = append(durations, d)
			sum += d
			if !span.OK() {
				s.ErrorCount++
			}
		}
		sort.Float64s(durations)
		s.AvgDurationMillis = sum / float64(len(durations))
		s.P95DurationMillis = percentile(durations, 95)
		s.MaxDurationMillis = durations[len(durations)-1]
		s.ErrorRate = float64(s.ErrorCount) / float64(s.Total)
		stats = append(stats, s)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Service < stats[j].Service })
	return stats
}

// AggregateMetrics groups points into time series by signature key. Series
// shorter than minMetricPoints are skipped. The current value is the last
// point in arrival order; the baseline is the mean of all earlier points.
func AggregateMetrics(points []model.MetricPoint) []MetricStats {
	order := make([]string, 0)
	groups := make(map[string][]model.MetricPoint)
	for _, p := range points {
		key := p.SignatureKey()
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], p)
	}

	var stats []MetricStats
	for _, key := range order {
		group := groups[key]
		if len(group) < minMetricPoints {
			continue
		}
		last := group[len(group)-1]
		s := MetricStats{
			Key:          key,
			Name:         last.Name,
			Service:      metricService(last),
			Points:       len(group),
			CurrentValue: last.Value,
		}
		var sum float64
		for _, p := range group[:len(group)-1] {
			sum += p.Value
		}
		s.Baseline = sum / float64(len(group)-1)
		stats = append(stats, s)
	}
	return stats
}

// metricService resolves the owning service of a metric series from the
// data point's own "service" attribute.
func metricService(p model.MetricPoint) string {
	if s, ok := p.Attributes["service"]; ok && s != "" {
		return s
	}
	return model.ServiceNameUnknown
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// percentile computes the p-th percentile of sorted values using linear
// interpolation between closest ranks (the numpy default).
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(n-1)
	lo := int(rank)
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
