// Copyright (c) 2025 The IncidentWatch Authors.
// SPDX-License-Identifier: Apache-2.0

// Package incident holds the time-windowed registry of active incidents and
// the static pattern catalog.
package incident

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/incidentwatch/incidentwatch/model"
)

// RetentionWindow is how long an admitted incident stays active.
const RetentionWindow = time.Hour

// Registry is the process-wide collection of active incidents. All access
// goes through one mutex: Active prunes while reading, so even reads are
// writes here.
//
// The registry intentionally does not deduplicate: repeated identical
// conditions produce repeated entries, and repetition frequency is itself
// diagnostic signal. Within the retention window the collection is
// unbounded.
type Registry struct {
	mu        sync.Mutex
	incidents []model.Incident
	logger    *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{logger: logger}
}

// Admit appends an incident if its severity is at least medium. Low-severity
// candidates are discarded. An ID is assigned if the incident has none.
// Returns whether the incident was admitted.
func (r *Registry) Admit(inc model.Incident) bool {
	if !inc.Severity.Significant() {
		return false
	}
	if inc.ID == "" {
		inc.ID = uuid.NewString()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.incidents = append(r.incidents, inc)
	r.logger.Info("Admitted incident",
		zap.String("id", inc.ID),
		zap.String("type", inc.Type),
		zap.String("service", inc.Service),
		zap.String("severity", string(inc.Severity)))
	return true
}

// Active returns all incidents newer than the retention cutoff and, as a
// side effect, prunes everything older from the stored collection.
func (r *Registry) Active(now time.Time) []model.Incident {
	cutoff := now.Add(-RetentionWindow)
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.incidents[:0]
	for _, inc := range r.incidents {
		if inc.Timestamp.After(cutoff) {
			kept = append(kept, inc)
		}
	}
	// release evicted tail entries
	for i := len(kept); i < len(r.incidents); i++ {
		r.incidents[i] = model.Incident{}
	}
	r.incidents = kept

	out := make([]model.Incident, len(kept))
	copy(out, kept)
	return out
}

// Size returns the number of stored incidents, including any not yet pruned.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.incidents)
}

// Statistics summarizes the active incidents.
type Statistics struct {
	TotalActive int            `json:"total_active_incidents"`
	ByType      map[string]int `json:"by_type"`
	BySeverity  map[string]int `json:"by_severity"`
	LastUpdated time.Time      `json:"last_updated"`
}

// Statistics returns counts of active incidents by type and severity. The
// by-severity map always carries all four severity keys; by-type only the
// types actually present.
func (r *Registry) Statistics(now time.Time) Statistics {
	active := r.Active(now)
	stats := Statistics{
		TotalActive: len(active),
		ByType:      make(map[string]int),
		BySeverity:  make(map[string]int, len(model.AllSeverities)),
		LastUpdated: now,
	}
	for _, sev := range model.AllSeverities {
		stats.BySeverity[string(sev)] = 0
	}
	for _, inc := range active {
		stats.ByType[inc.Type]++
		stats.BySeverity[string(inc.Severity)]++
	}
	return stats
}
