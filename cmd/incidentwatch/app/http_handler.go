// Copyright (c) 2025 The IncidentWatch Authors.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/incidentwatch/incidentwatch/model"
	"github.com/incidentwatch/incidentwatch/pkg/incident"
	"github.com/incidentwatch/incidentwatch/pkg/otlpjson"
	"github.com/incidentwatch/incidentwatch/pkg/pipeline"
	"github.com/incidentwatch/incidentwatch/pkg/trainer"
	"github.com/incidentwatch/incidentwatch/pkg/vectorstore"
)

const defaultSimilarResults = 5

// Trainer is the training surface exposed over the API.
type Trainer interface {
	TrainOnce(ctx context.Context) error
	Status(ctx context.Context) trainer.Status
}

// SimilaritySearcher finds stored incidents resembling a free-text query.
type SimilaritySearcher interface {
	QuerySimilar(ctx context.Context, collection, text string, k int) ([]vectorstore.Result, error)
}

// APIHandler implements the HTTP API: OTLP ingestion plus incident and
// training inspection.
type APIHandler struct {
	pipeline *pipeline.Pipeline
	registry *incident.Registry
	trainer  Trainer
	searcher SimilaritySearcher // optional
	logger   *zap.Logger
}

// NewAPIHandler creates an APIHandler.
func NewAPIHandler(
	p *pipeline.Pipeline,
	registry *incident.Registry,
	t Trainer,
	searcher SimilaritySearcher,
	logger *zap.Logger,
) *APIHandler {
	return &APIHandler{
		pipeline: p,
		registry: registry,
		trainer:  t,
		searcher: searcher,
		logger:   logger,
	}
}

// RegisterRoutes registers the API routes on the router.
func (h *APIHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/otel/v1/logs", h.ingest(h.pipeline.ProcessLogs)).Methods(http.MethodPost)
	router.HandleFunc("/otel/v1/traces", h.ingest(h.pipeline.ProcessTraces)).Methods(http.MethodPost)
	router.HandleFunc("/otel/v1/metrics", h.ingest(h.pipeline.ProcessMetrics)).Methods(http.MethodPost)

	router.HandleFunc("/api/incidents", h.incidents).Methods(http.MethodGet)
	router.HandleFunc("/api/incidents/statistics", h.statistics).Methods(http.MethodGet)
	router.HandleFunc("/api/incidents/similar", h.similar).Methods(http.MethodGet)
	router.HandleFunc("/api/patterns", h.patterns).Methods(http.MethodGet)

	router.HandleFunc("/api/training/status", h.trainingStatus).Methods(http.MethodGet)
	router.HandleFunc("/api/training/run", h.trainingRun).Methods(http.MethodPost)
}

type ingestResponse struct {
	Status    string           `json:"status"`
	Processed int              `json:"processed"`
	Dropped   int              `json:"dropped,omitempty"`
	Incidents []model.Incident `json:"incidents"`
}

func (h *APIHandler) ingest(process func(context.Context, []byte) (pipeline.Result, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "cannot read request body", http.StatusBadRequest)
			return
		}
		res, err := process(r.Context(), payload)
		if err != nil {
			if errors.Is(err, otlpjson.ErrInvalidPayload) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			h.logger.Error("Ingestion failed", zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		// a quiet payload still encodes incidents as an empty array
		incidents := res.Incidents
		if incidents == nil {
			incidents = []model.Incident{}
		}
		h.writeJSON(w, ingestResponse{
			Status:    "success",
			Processed: res.Processed,
			Dropped:   res.Dropped,
			Incidents: incidents,
		})
	}
}

func (h *APIHandler) incidents(w http.ResponseWriter, _ *http.Request) {
	active := h.registry.Active(time.Now())
	h.writeJSON(w, map[string]any{
		"total":     len(active),
		"incidents": active,
	})
}

func (h *APIHandler) statistics(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, h.registry.Statistics(time.Now()))
}

func (h *APIHandler) similar(w http.ResponseWriter, r *http.Request) {
	if h.searcher == nil {
		http.Error(w, "similarity search unavailable", http.StatusServiceUnavailable)
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, "missing query parameter 'q'", http.StatusBadRequest)
		return
	}
	k := defaultSimilarResults
	if raw := r.URL.Query().Get("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "parameter 'k' must be a positive integer", http.StatusBadRequest)
			return
		}
		k = parsed
	}

	results, err := h.searcher.QuerySimilar(r.Context(), vectorstore.CollectionIncidents, query, k)
	if err != nil {
		h.logger.Error("Similarity search failed", zap.Error(err))
		http.Error(w, "similarity search failed", http.StatusBadGateway)
		return
	}
	h.writeJSON(w, map[string]any{
		"query":   query,
		"results": results,
	})
}

func (h *APIHandler) patterns(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, map[string]any{
		"patterns": incident.DefaultPatterns(),
	})
}

func (h *APIHandler) trainingStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.trainer.Status(r.Context()))
}

func (h *APIHandler) trainingRun(w http.ResponseWriter, r *http.Request) {
	if err := h.trainer.TrainOnce(r.Context()); err != nil {
		h.logger.Error("On-demand training failed", zap.Error(err))
		http.Error(w, "training failed", http.StatusBadGateway)
		return
	}
	h.writeJSON(w, map[string]any{"status": "success"})
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Writing response failed", zap.Error(err))
	}
}
