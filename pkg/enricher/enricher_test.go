// Copyright (c) 2025 The IncidentWatch Authors.
// SPDX-License-Identifier: Apache-2.0

package enricher

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/incidentwatch/incidentwatch/model"
)

type fakeGenerator struct {
	mu       sync.Mutex
	fail     map[string]bool // prompts containing these substrings fail
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration
	calls    atomic.Int32
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls.Add(1)
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		prev := f.maxSeen.Load()
		if cur <= prev || f.maxSeen.CompareAndSwap(prev, cur) {
			break
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for substr := range f.fail {
		if strings.Contains(prompt, substr) {
			return "", errors.New("model unavailable")
		}
	}
	return "analysis for: " + prompt[:40], nil
}

func candidate(service string) model.Incident {
	return model.Incident{
		Type:        model.IncidentTypeLogErrors,
		Service:     service,
		Severity:    model.SeverityCritical,
		Description: "High error rate in service " + service,
		Metrics:     map[string]float64{"error_rate": 0.12, "total_logs": 100},
		Timestamp:   time.Unix(1700000000, 0),
	}
}

func TestEnrichAttachesAnalysis(t *testing.T) {
	llm := &fakeGenerator{}
	e := New(llm, Config{}, zap.NewNop())
	e.now = func() time.Time { return time.Unix(1700000100, 0) }

	enriched := e.Enrich(context.Background(), []model.Incident{candidate("auth")})
	require.Len(t, enriched, 1)
	assert.NotEmpty(t, enriched[0].AIAnalysis)
	assert.Equal(t, time.Unix(1700000100, 0), enriched[0].AnalyzedAt)
}

func TestEnrichFailureIsolatedPerCandidate(t *testing.T) {
	llm := &fakeGenerator{fail: map[string]bool{"billing": true}}
	e := New(llm, Config{}, zap.NewNop())

	in := []model.Incident{candidate("auth"), candidate("billing"), candidate("orders")}
	out := e.Enrich(context.Background(), in)
	require.Len(t, out, 3)

	assert.NotEmpty(t, out[0].AIAnalysis)
	assert.NotEmpty(t, out[2].AIAnalysis)

	// the failed candidate passes through unchanged
	assert.Empty(t, out[1].AIAnalysis)
	assert.True(t, out[1].AnalyzedAt.IsZero())
	assert.Equal(t, in[1].Description, out[1].Description)
	assert.Equal(t, in[1].Metrics, out[1].Metrics)
}

func TestEnrichBoundedConcurrency(t *testing.T) {
	llm := &fakeGenerator{delay: 20 * time.Millisecond}
	e := New(llm, Config{Parallelism: 2}, zap.NewNop())

	var in []model.Incident
	for i := 0; i < 8; i++ {
		in = append(in, candidate("svc"))
	}
	e.Enrich(context.Background(), in)
	assert.LessOrEqual(t, llm.maxSeen.Load(), int32(2))
	assert.Equal(t, int32(8), llm.calls.Load())
}

func TestEnrichCancellation(t *testing.T) {
	llm := &fakeGenerator{delay: 50 * time.Millisecond}
	e := New(llm, Config{Parallelism: 1, Timeout: time.Second}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := e.Enrich(ctx, []model.Incident{candidate("auth"), candidate("billing")})
	require.Len(t, out, 2)
	for _, inc := range out {
		assert.Empty(t, inc.AIAnalysis)
	}
}

func TestEnrichEmptyBatch(t *testing.T) {
	e := New(&fakeGenerator{}, Config{}, zap.NewNop())
	assert.Nil(t, e.Enrich(context.Background(), nil))
}

func TestBuildPromptDeterministic(t *testing.T) {
	inc := candidate("auth")
	first := BuildPrompt(inc)
	second := BuildPrompt(inc)
	assert.Equal(t, first, second)

	assert.Contains(t, first, "Incident type: log_errors")
	assert.Contains(t, first, "Service: auth")
	assert.Contains(t, first, "- error_rate: 0.12")
	assert.Contains(t, first, "- total_logs: 100")
	assert.Contains(t, first, "ROOT CAUSE")
	// sorted evidence keys
	assert.Less(t, strings.Index(first, "error_rate"), strings.Index(first, "total_logs"))
}
