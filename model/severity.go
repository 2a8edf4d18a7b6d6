// Copyright (c) 2025 The IncidentWatch Authors.
// SPDX-License-Identifier: Apache-2.0

package model

// Severity classifies how urgent an incident is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AllSeverities lists every severity, most urgent first. The registry
// statistics report a fixed-key count over this list.
var AllSeverities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// Significant reports whether an incident of this severity is worth
// admitting to the registry. Low-severity candidates are discarded.
func (s Severity) Significant() bool {
	switch s {
	case SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}
