// Copyright (c) 2025 The IncidentWatch Authors.
// SPDX-License-Identifier: Apache-2.0

package model

import "time"

// Incident taxonomy strings produced by the rule evaluator.
const (
	IncidentTypeLogErrors         = "log_errors"
	IncidentTypeLogWarnings       = "log_warnings"
	IncidentTypeHighLatency       = "high_latency"
	IncidentTypeTraceErrors       = "trace_errors"
	IncidentTypeHighCPU           = "high_cpu"
	IncidentTypeHighMemory        = "high_memory"
	IncidentTypeResponseTimeSpike = "response_time_spike"
)

// Incident is a detected incident condition. The rule evaluator creates it,
// the enricher may attach an AI analysis exactly once, and the registry
// keeps it until it ages out of the retention window.
type Incident struct {
	ID          string             `json:"id,omitempty"`
	Type        string             `json:"type"`
	Service     string             `json:"service"`
	Severity    Severity           `json:"severity"`
	Description string             `json:"description"`
	Metrics     map[string]float64 `json:"metrics"`
	Timestamp   time.Time          `json:"timestamp"`
	AIAnalysis  string             `json:"ai_analysis,omitempty"`
	AnalyzedAt  time.Time          `json:"analyzed_at,omitzero"`
}

// IncidentPattern is a static reference entry describing a known class of
// incident. The catalog is loaded once at startup and is read-only; it feeds
// similarity matching, not detection.
type IncidentPattern struct {
	ID               string    `json:"id"`
	PatternType      string    `json:"pattern_type"`
	Description      string    `json:"description"`
	Symptoms         []string  `json:"symptoms"`
	RootCauses       []string  `json:"root_causes"`
	Recommendations  []string  `json:"recommendations"`
	Severity         Severity  `json:"severity"`
	ServicesAffected []string  `json:"services_affected"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TrainingExample is one input/output pair used to build the analysis model.
type TrainingExample struct {
	Input       string    `json:"input"`
	Output      string    `json:"output"`
	PatternType string    `json:"pattern_type"`
	Services    []string  `json:"services"`
	Severity    Severity  `json:"severity"`
	CreatedAt   time.Time `json:"created_at"`
}
