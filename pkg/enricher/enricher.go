// Copyright (c) 2025 The IncidentWatch Authors.
// SPDX-License-Identifier: Apache-2.0

// Package enricher attaches an LLM-generated root-cause analysis to incident
// candidates. Enrichment is strictly best-effort: a failed or timed-out
// model call leaves the candidate unchanged, never drops it.
package enricher

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/incidentwatch/incidentwatch/model"
)

// Defaults for the enrichment fan-out.
const (
	DefaultParallelism = 4
	DefaultTimeout     = 30 * time.Second
)

// Generator produces a free-text completion for a prompt. Implemented by
// the Ollama client.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config controls the enrichment fan-out.
type Config struct {
	// Parallelism bounds concurrent model calls; the collaborator is a
	// rate-limited external service.
	Parallelism int
	// Timeout applies per call. Candidates never share a deadline.
	Timeout time.Duration
}

// Enricher calls the model once per candidate with bounded concurrency.
type Enricher struct {
	llm    Generator
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// New creates an Enricher.
func New(llm Generator, cfg Config, logger *zap.Logger) *Enricher {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = DefaultParallelism
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Enricher{llm: llm, cfg: cfg, logger: logger, now: time.Now}
}

// Enrich runs the model for every candidate and attaches the analysis where
// it succeeds. The returned slice preserves candidate order. A cancelled ctx
// stops issuing new calls; already-finished candidates keep their analysis.
func (e *Enricher) Enrich(ctx context.Context, candidates []model.Incident) []model.Incident {
	if len(candidates) == 0 {
		return nil
	}
	out := make([]model.Incident, len(candidates))
	copy(out, candidates)

	var g errgroup.Group
	g.SetLimit(e.cfg.Parallelism)
	for i := range out {
		i := i
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			callCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
			defer cancel()

			analysis, err := e.llm.Generate(callCtx, BuildPrompt(out[i]))
			if err != nil {
				e.logger.Warn("Incident enrichment failed",
					zap.String("type", out[i].Type),
					zap.String("service", out[i].Service),
					zap.Error(err))
				return nil
			}
			out[i].AIAnalysis = analysis
			out[i].AnalyzedAt = e.now()
			return nil
		})
	}
	g.Wait()
	return out
}

// BuildPrompt renders the deterministic analysis prompt for an incident.
// Evidence metrics are emitted in sorted key order.
func BuildPrompt(inc model.Incident) string {
	var sb strings.Builder
	sb.WriteString("Analyze the following incident in a microservice system:\n\n")
	sb.WriteString("Incident type: " + inc.Type + "\n")
	sb.WriteString("Service: " + inc.Service + "\n")
	sb.WriteString("Description: " + inc.Description + "\n\n")
	sb.WriteString("Metrics:\n")

	keys := make([]string, 0, len(inc.Metrics))
	for k := range inc.Metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString("- " + k + ": " + strconv.FormatFloat(inc.Metrics[k], 'g', -1, 64) + "\n")
	}

	sb.WriteString(`
Analyze this incident and provide:
1. ROOT CAUSE: the most likely underlying cause
2. SYMPTOMS: observable manifestations of the problem
3. IMPACT: what this incident affects
4. RECOMMENDATIONS: concrete remediation steps

Be technically precise and suggest practical solutions.`)
	return sb.String()
}
