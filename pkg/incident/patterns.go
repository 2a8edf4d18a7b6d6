// Copyright (c) 2025 The IncidentWatch Authors.
// SPDX-License-Identifier: Apache-2.0

package incident

import (
	"time"

	"github.com/incidentwatch/incidentwatch/model"
)

// DefaultPatterns returns the built-in incident pattern catalog. It is
// loaded once at startup and exposed read-only; patterns feed similarity
// matching against historical incidents, not the detection rules.
func DefaultPatterns() []model.IncidentPattern {
	now := time.Now()
	return []model.IncidentPattern{
		{
			ID:          "high_latency",
			PatternType: "trace_latency",
			Description: "High latency across a microservice call chain",
			Symptoms: []string{
				"Response time > 1s",
				"Slow database queries",
				"Network latency",
			},
			RootCauses: []string{
				"Database overload",
				"Network issues",
				"Inefficient code",
				"Resource constraints",
			},
			Recommendations: []string{
				"Scale the service",
				"Optimize database queries",
				"Add caching",
				"Check network connectivity",
			},
			Severity:  model.SeverityHigh,
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:          "service_error",
			PatternType: "log_error",
			Description: "Frequent errors in a service",
			Symptoms: []string{
				"5xx errors in logs",
				"Failed requests",
				"Exception stack traces",
			},
			RootCauses: []string{
				"Bug in code",
				"Dependency failure",
				"Configuration issues",
				"Resource exhaustion",
			},
			Recommendations: []string{
				"Check application logs",
				"Verify dependencies",
				"Review recent deployments",
				"Check resource usage",
			},
			Severity:  model.SeverityMedium,
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:          "memory_pressure",
			PatternType: "metric_anomaly",
			Description: "High memory consumption",
			Symptoms: []string{
				"Memory usage > 80%",
				"Frequent garbage collection",
				"OOM killer activations",
			},
			RootCauses: []string{
				"Memory leaks",
				"Inefficient data structures",
				"High load",
				"Insufficient resources",
			},
			Recommendations: []string{
				"Profile memory usage",
				"Check for memory leaks",
				"Increase memory limits",
				"Scale horizontally",
			},
			Severity:  model.SeverityHigh,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}
