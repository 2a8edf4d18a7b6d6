// Copyright (c) 2025 The IncidentWatch Authors.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/incidentwatch/incidentwatch/pkg/analyzer"
	"github.com/incidentwatch/incidentwatch/pkg/healthcheck"
	"github.com/incidentwatch/incidentwatch/pkg/incident"
	"github.com/incidentwatch/incidentwatch/pkg/otlpjson"
	"github.com/incidentwatch/incidentwatch/pkg/pipeline"
	"github.com/incidentwatch/incidentwatch/pkg/trainer"
)

func newTestServer(t *testing.T) (*Server, *healthcheck.HealthCheck) {
	t.Helper()
	logger := zap.NewNop()
	registry := incident.NewRegistry(logger)
	metricsReg := prometheus.NewRegistry()
	p := pipeline.New(pipeline.Params{
		Decoder:   otlpjson.NewDecoder(logger),
		Evaluator: analyzer.NewEvaluator(),
		Enricher:  noopEnricher{},
		Registry:  registry,
		Logger:    logger,
		Metrics:   pipeline.NewMetrics(metricsReg),
	})
	hc := healthcheck.New(logger)
	return NewServer(ServerParams{
		HostPort:    "127.0.0.1:0",
		Handler:     NewAPIHandler(p, registry, &fakeTrainer{}, nil, logger),
		HealthCheck: hc,
		MetricsReg:  metricsReg,
		Logger:      logger,
	}), hc
}

func TestServerRoutes(t *testing.T) {
	server, hc := newTestServer(t)

	rec := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	hc.Ready()
	rec = httptest.NewRecorder()
	server.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	server.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServerStartClose(t *testing.T) {
	server, _ := newTestServer(t)
	require.NoError(t, server.Start())
	require.NoError(t, server.Close())
}

type panicTrainer struct{ fakeTrainer }

func (panicTrainer) Status(context.Context) trainer.Status { panic("boom") }

func TestServerPanicsRecovered(t *testing.T) {
	logger := zap.NewNop()
	registry := incident.NewRegistry(logger)
	metricsReg := prometheus.NewRegistry()
	p := pipeline.New(pipeline.Params{
		Decoder:   otlpjson.NewDecoder(logger),
		Evaluator: analyzer.NewEvaluator(),
		Enricher:  noopEnricher{},
		Registry:  registry,
		Logger:    logger,
		Metrics:   pipeline.NewMetrics(metricsReg),
	})
	server := NewServer(ServerParams{
		HostPort:    "127.0.0.1:0",
		Handler:     NewAPIHandler(p, registry, &panicTrainer{}, nil, logger),
		HealthCheck: healthcheck.New(logger),
		MetricsReg:  metricsReg,
		Logger:      logger,
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/training/status", nil)
	assert.NotPanics(t, func() {
		server.server.Handler.ServeHTTP(rec, req)
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
