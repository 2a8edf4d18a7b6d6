// Copyright (c) 2025 The IncidentWatch Authors.
// SPDX-License-Identifier: Apache-2.0

package analyzer

import (
	"fmt"
	"strings"
	"time"

	"github.com/incidentwatch/incidentwatch/model"
)

// Detection thresholds. These are deliberately fixed: the statistical model
// downstream depends on their exact values.
const (
	criticalErrorRate    = 0.1
	elevatedErrorRate    = 0.05
	warningRateThreshold = 0.2
	p95LatencyMillis     = 1000
	spanErrorRate        = 0.1
	cpuThreshold         = 80
	memoryThreshold      = 85
	spikeFactor          = 2
)

// Evaluator turns aggregated statistics into incident candidates by applying
// fixed thresholds. It holds no state beyond a clock.
type Evaluator struct {
	now func() time.Time
}

// NewEvaluator creates an Evaluator using the wall clock.
func NewEvaluator() *Evaluator {
	return &Evaluator{now: time.Now}
}

// EvaluateLogs produces at most one incident per service: the error-rate
// branches take priority over the warning branch.
func (e *Evaluator) EvaluateLogs(stats []LogStats) []model.Incident {
	var incidents []model.Incident
	for _, s := range stats {
		if s.Total == 0 {
			continue
		}
		evidence := map[string]float64{
			"error_count":   float64(s.ErrorCount),
			"warning_count": float64(s.WarningCount),
			"total_logs":    float64(s.Total),
		}
		switch {
		case s.ErrorRate > criticalErrorRate:
			evidence["error_rate"] = s.ErrorRate
			incidents = append(incidents, model.Incident{
				Type:        model.IncidentTypeLogErrors,
				Service:     s.Service,
				Severity:    model.SeverityCritical,
				Description: fmt.Sprintf("High error rate in service %s", s.Service),
				Metrics:     evidence,
				Timestamp:   e.now(),
			})
		case s.ErrorRate > elevatedErrorRate:
			evidence["error_rate"] = s.ErrorRate
			incidents = append(incidents, model.Incident{
				Type:        model.IncidentTypeLogErrors,
				Service:     s.Service,
				Severity:    model.SeverityHigh,
				Description: fmt.Sprintf("Elevated error rate in service %s", s.Service),
				Metrics:     evidence,
				Timestamp:   e.now(),
			})
		case s.WarningRate > warningRateThreshold:
			evidence["warning_rate"] = s.WarningRate
			incidents = append(incidents, model.Incident{
				Type:        model.IncidentTypeLogWarnings,
				Service:     s.Service,
				Severity:    model.SeverityMedium,
				Description: fmt.Sprintf("High volume of warnings in service %s", s.Service),
				Metrics:     evidence,
				Timestamp:   e.now(),
			})
		}
	}
	return incidents
}

// EvaluateSpans checks latency and trace error rates. The two branches are
// independent and may both fire for the same service.
func (e *Evaluator) EvaluateSpans(stats []SpanStats) []model.Incident {
	var incidents []model.Incident
	for _, s := range stats {
		if s.Total == 0 {
			continue
		}
		if s.P95DurationMillis > p95LatencyMillis {
			incidents = append(incidents, model.Incident{
				Type:        model.IncidentTypeHighLatency,
				Service:     s.Service,
				Severity:    model.SeverityHigh,
				Description: fmt.Sprintf("High latency in service %s", s.Service),
				Metrics: map[string]float64{
					"p95_duration_ms": s.P95DurationMillis,
					"avg_duration_ms": s.AvgDurationMillis,
					"max_duration_ms": s.MaxDurationMillis,
					"error_rate":      s.ErrorRate,
				},
				Timestamp: e.now(),
			})
		}
		if s.ErrorRate > spanErrorRate {
			incidents = append(incidents, model.Incident{
				Type:        model.IncidentTypeTraceErrors,
				Service:     s.Service,
				Severity:    model.SeverityCritical,
				Description: fmt.Sprintf("High error rate in traces of service %s", s.Service),
				Metrics: map[string]float64{
					"error_count": float64(s.ErrorCount),
					"total_spans": float64(s.Total),
					"error_rate":  s.ErrorRate,
				},
				Timestamp: e.now(),
			})
		}
	}
	return incidents
}

// EvaluateMetrics applies per-kind anomaly rules. Metric kinds are matched
// on the name in priority order: cpu, then memory, then response time.
func (e *Evaluator) EvaluateMetrics(stats []MetricStats) []model.Incident {
	var incidents []model.Incident
	for _, s := range stats {
		name := strings.ToLower(s.Name)
		evidence := map[string]float64{
			"current_value": s.CurrentValue,
			"avg_value":     s.Baseline,
		}
		switch {
		case strings.Contains(name, "cpu"):
			if s.CurrentValue > cpuThreshold {
				incidents = append(incidents, model.Incident{
					Type:        model.IncidentTypeHighCPU,
					Service:     s.Service,
					Severity:    model.SeverityHigh,
					Description: fmt.Sprintf("High CPU usage: %.1f%%", s.CurrentValue),
					Metrics:     evidence,
					Timestamp:   e.now(),
				})
			}
		case strings.Contains(name, "memory"):
			if s.CurrentValue > memoryThreshold {
				incidents = append(incidents, model.Incident{
					Type:        model.IncidentTypeHighMemory,
					Service:     s.Service,
					Severity:    model.SeverityHigh,
					Description: fmt.Sprintf("High memory usage: %.1f%%", s.CurrentValue),
					Metrics:     evidence,
					Timestamp:   e.now(),
				})
			}
		case strings.Contains(name, "response_time") || strings.Contains(name, "duration"):
			if s.CurrentValue > s.Baseline*spikeFactor {
				incidents = append(incidents, model.Incident{
					Type:        model.IncidentTypeResponseTimeSpike,
					Service:     s.Service,
					Severity:    model.SeverityMedium,
					Description: fmt.Sprintf("Response time spike: %.1fms (baseline %.1fms)", s.CurrentValue, s.Baseline),
					Metrics:     evidence,
					Timestamp:   e.now(),
				})
			}
		}
	}
	return incidents
}
