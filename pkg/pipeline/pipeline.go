// Copyright (c) 2025 The IncidentWatch Authors.
// SPDX-License-Identifier: Apache-2.0

// Package pipeline wires the processing chain: decode, aggregate, evaluate,
// enrich, admit. Decoding and evaluation are pure; the registry is the only
// shared state, and the collaborators are reached exclusively through the
// enricher and the persistence hook.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/incidentwatch/incidentwatch/model"
	"github.com/incidentwatch/incidentwatch/pkg/analyzer"
	"github.com/incidentwatch/incidentwatch/pkg/incident"
	"github.com/incidentwatch/incidentwatch/pkg/otlpjson"
	"github.com/incidentwatch/incidentwatch/pkg/vectorstore"
)

const persistTimeout = 30 * time.Second

// Enricher attaches analyses to incident candidates.
type Enricher interface {
	Enrich(ctx context.Context, candidates []model.Incident) []model.Incident
}

// Store persists telemetry documents. Persistence is fire-and-forget: a
// store failure is logged, never surfaced.
type Store interface {
	Add(ctx context.Context, collection string, docs []vectorstore.Document) error
}

// Params groups the pipeline dependencies.
type Params struct {
	Decoder   *otlpjson.Decoder
	Evaluator *analyzer.Evaluator
	Enricher  Enricher
	Registry  *incident.Registry
	Store     Store // optional
	Logger    *zap.Logger
	Metrics   *Metrics
}

// Result is the synchronous outcome of processing one export payload.
type Result struct {
	Processed int              `json:"processed"`
	Dropped   int              `json:"dropped,omitempty"`
	Incidents []model.Incident `json:"incidents"`
}

// Pipeline processes raw OTLP payloads into registry incidents.
type Pipeline struct {
	decoder   *otlpjson.Decoder
	evaluator *analyzer.Evaluator
	enricher  Enricher
	registry  *incident.Registry
	store     Store
	logger    *zap.Logger
	metrics   *Metrics
}

// New creates a Pipeline from its dependencies.
func New(params Params) *Pipeline {
	return &Pipeline{
		decoder:   params.Decoder,
		evaluator: params.Evaluator,
		enricher:  params.Enricher,
		registry:  params.Registry,
		store:     params.Store,
		logger:    params.Logger,
		metrics:   params.Metrics,
	}
}

// ProcessLogs ingests a logs export payload.
func (p *Pipeline) ProcessLogs(ctx context.Context, payload []byte) (Result, error) {
	logs, dropped, err := p.decoder.DecodeLogs(payload)
	if err != nil {
		p.metrics.PayloadErrors.WithLabelValues("logs").Inc()
		return Result{}, err
	}
	p.count("logs", len(logs), dropped)

	candidates := p.evaluator.EvaluateLogs(analyzer.AggregateLogs(logs))
	admitted := p.finish(ctx, candidates)
	p.persist(vectorstore.CollectionLogs, vectorstore.LogDocuments(logs))
	return Result{Processed: len(logs), Dropped: dropped, Incidents: admitted}, nil
}

// ProcessTraces ingests a traces export payload.
func (p *Pipeline) ProcessTraces(ctx context.Context, payload []byte) (Result, error) {
	spans, dropped, err := p.decoder.DecodeTraces(payload)
	if err != nil {
		p.metrics.PayloadErrors.WithLabelValues("traces").Inc()
		return Result{}, err
	}
	p.count("traces", len(spans), dropped)

	candidates := p.evaluator.EvaluateSpans(analyzer.AggregateSpans(spans))
	admitted := p.finish(ctx, candidates)
	p.persist(vectorstore.CollectionTraces, vectorstore.SpanDocuments(spans))
	return Result{Processed: len(spans), Dropped: dropped, Incidents: admitted}, nil
}

// ProcessMetrics ingests a metrics export payload. Metric points are not
// persisted; only logs and traces have store collections.
func (p *Pipeline) ProcessMetrics(ctx context.Context, payload []byte) (Result, error) {
	points, dropped, err := p.decoder.DecodeMetrics(payload)
	if err != nil {
		p.metrics.PayloadErrors.WithLabelValues("metrics").Inc()
		return Result{}, err
	}
	p.count("metrics", len(points), dropped)

	candidates := p.evaluator.EvaluateMetrics(analyzer.AggregateMetrics(points))
	admitted := p.finish(ctx, candidates)
	return Result{Processed: len(points), Dropped: dropped, Incidents: admitted}, nil
}

// finish enriches candidates and admits the significant ones. Candidates
// produced before a cancellation stay admitted; enrichment is best-effort.
func (p *Pipeline) finish(ctx context.Context, candidates []model.Incident) []model.Incident {
	if len(candidates) == 0 {
		return nil
	}
	for _, c := range candidates {
		p.metrics.IncidentsDetected.WithLabelValues(c.Type, string(c.Severity)).Inc()
	}

	enriched := p.enricher.Enrich(ctx, candidates)
	var admitted []model.Incident
	for _, inc := range enriched {
		if inc.ID == "" {
			inc.ID = uuid.NewString()
		}
		if p.registry.Admit(inc) {
			p.metrics.IncidentsAdmitted.Inc()
			admitted = append(admitted, inc)
		}
	}
	if len(admitted) > 0 {
		p.logger.Info("Detected significant incidents", zap.Int("count", len(admitted)))
	}
	return admitted
}

func (p *Pipeline) count(signal string, decoded, dropped int) {
	p.metrics.RecordsDecoded.WithLabelValues(signal).Add(float64(decoded))
	if dropped > 0 {
		p.metrics.RecordsDropped.WithLabelValues(signal).Add(float64(dropped))
	}
}

// persist ships documents to the vector store in the background, detached
// from the request context.
func (p *Pipeline) persist(collection string, docs []vectorstore.Document) {
	if p.store == nil || len(docs) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := p.store.Add(ctx, collection, docs); err != nil {
			p.logger.Error("Persisting telemetry failed",
				zap.String("collection", collection),
				zap.Int("documents", len(docs)),
				zap.Error(err))
		}
	}()
}
