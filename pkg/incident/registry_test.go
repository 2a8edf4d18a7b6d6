// Copyright (c) 2025 The IncidentWatch Authors.
// SPDX-License-Identifier: Apache-2.0

package incident

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/incidentwatch/incidentwatch/model"
)

func makeIncident(severity model.Severity, ts time.Time) model.Incident {
	return model.Incident{
		Type:        model.IncidentTypeLogErrors,
		Service:     "auth",
		Severity:    severity,
		Description: "High error rate in service auth",
		Metrics:     map[string]float64{"error_rate": 0.12},
		Timestamp:   ts,
	}
}

func TestAdmitSeverityGate(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	now := time.Unix(1700000000, 0)

	assert.False(t, r.Admit(makeIncident(model.SeverityLow, now)))
	assert.True(t, r.Admit(makeIncident(model.SeverityMedium, now)))
	assert.True(t, r.Admit(makeIncident(model.SeverityHigh, now)))
	assert.True(t, r.Admit(makeIncident(model.SeverityCritical, now)))

	active := r.Active(now)
	require.Len(t, active, 3)
	for _, inc := range active {
		assert.NotEqual(t, model.SeverityLow, inc.Severity)
		assert.NotEmpty(t, inc.ID)
	}
}

func TestActivePrunesOnRead(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	now := time.Unix(1700000000, 0)
	r.Admit(makeIncident(model.SeverityHigh, now))

	assert.Len(t, r.Active(now), 1)

	// one minute past the retention window: gone, and pruned from storage
	later := now.Add(61 * time.Minute)
	assert.Empty(t, r.Active(later))
	assert.Zero(t, r.Size())
}

func TestActiveKeepsRecentDropsOld(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	now := time.Unix(1700000000, 0)
	r.Admit(makeIncident(model.SeverityHigh, now.Add(-2*time.Hour)))
	r.Admit(makeIncident(model.SeverityHigh, now.Add(-30*time.Minute)))
	r.Admit(makeIncident(model.SeverityCritical, now))

	active := r.Active(now)
	assert.Len(t, active, 2)
	assert.Equal(t, 2, r.Size())
}

func TestNoDeduplication(t *testing.T) {
	// repeated identical conditions are kept as separate entries; within the
	// retention window the registry grows without bound
	r := NewRegistry(zap.NewNop())
	now := time.Unix(1700000000, 0)
	for i := 0; i < 100; i++ {
		r.Admit(makeIncident(model.SeverityHigh, now))
	}
	assert.Len(t, r.Active(now), 100)
}

func TestStatistics(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	now := time.Unix(1700000000, 0)

	r.Admit(makeIncident(model.SeverityCritical, now))
	r.Admit(makeIncident(model.SeverityHigh, now))
	high := makeIncident(model.SeverityHigh, now)
	high.Type = model.IncidentTypeHighLatency
	r.Admit(high)
	r.Admit(makeIncident(model.SeverityLow, now)) // discarded

	stats := r.Statistics(now)
	assert.Equal(t, 3, stats.TotalActive)
	assert.Equal(t, map[string]int{
		model.IncidentTypeLogErrors:   2,
		model.IncidentTypeHighLatency: 1,
	}, stats.ByType)
	// low is always present even though it can never be admitted
	assert.Equal(t, map[string]int{
		"critical": 1,
		"high":     2,
		"medium":   0,
		"low":      0,
	}, stats.BySeverity)
}

func TestStatisticsEmpty(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	stats := r.Statistics(time.Unix(1700000000, 0))
	assert.Zero(t, stats.TotalActive)
	assert.Empty(t, stats.ByType)
	assert.Len(t, stats.BySeverity, 4)
}

func TestConcurrentAccess(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	now := time.Unix(1700000000, 0)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				inc := makeIncident(model.SeverityHigh, now)
				inc.Service = fmt.Sprintf("svc-%d", i)
				r.Admit(inc)
				r.Active(now)
				r.Statistics(now)
			}
		}(i)
	}
	wg.Wait()
	assert.Len(t, r.Active(now), 500)
}

func TestDefaultPatterns(t *testing.T) {
	patterns := DefaultPatterns()
	require.Len(t, patterns, 3)
	ids := make(map[string]bool)
	for _, p := range patterns {
		ids[p.ID] = true
		assert.NotEmpty(t, p.Symptoms)
		assert.NotEmpty(t, p.RootCauses)
		assert.NotEmpty(t, p.Recommendations)
		assert.True(t, p.Severity.Significant())
	}
	assert.True(t, ids["high_latency"] && ids["service_error"] && ids["memory_pressure"])
}
