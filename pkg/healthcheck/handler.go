// Copyright (c) 2025 The IncidentWatch Authors.
// SPDX-License-Identifier: Apache-2.0

// Package healthcheck tracks the readiness of the server and its
// collaborators and exposes it over HTTP.
package healthcheck

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// HealthCheck holds the mutable health state of the process. Components
// (ollama, vector store, trainer) report their availability individually;
// the overall status degrades while any of them is down but the endpoint
// keeps answering 200 so that probes only fail when the server itself is
// not ready.
type HealthCheck struct {
	logger *zap.Logger

	mu         sync.Mutex
	ready      bool
	components map[string]bool
	started    time.Time
}

type healthResponse struct {
	Status     string          `json:"status"`
	Components map[string]bool `json:"components"`
	UptimeSecs float64         `json:"uptime_seconds"`
}

// New creates a HealthCheck in the not-ready state.
func New(logger *zap.Logger) *HealthCheck {
	return &HealthCheck{
		logger:     logger,
		components: make(map[string]bool),
		started:    time.Now(),
	}
}

// Ready marks the server itself as ready to serve.
func (hc *HealthCheck) Ready() {
	hc.mu.Lock()
	hc.ready = true
	hc.mu.Unlock()
	hc.logger.Info("Health Check state change", zap.String("status", "ready"))
}

// SetComponent records the availability of a named collaborator.
func (hc *HealthCheck) SetComponent(name string, available bool) {
	hc.mu.Lock()
	prev, seen := hc.components[name]
	hc.components[name] = available
	hc.mu.Unlock()
	if !seen || prev != available {
		hc.logger.Info("Component availability change",
			zap.String("component", name),
			zap.Bool("available", available))
	}
}

// Handler answers health probes. Not-ready yields 503; otherwise 200 with
// a JSON body describing component availability.
func (hc *HealthCheck) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hc.mu.Lock()
		resp := healthResponse{
			Status:     "healthy",
			Components: make(map[string]bool, len(hc.components)),
			UptimeSecs: time.Since(hc.started).Seconds(),
		}
		ready := hc.ready
		for name, ok := range hc.components {
			resp.Components[name] = ok
			if !ok {
				resp.Status = "degraded"
			}
		}
		hc.mu.Unlock()

		if !ready {
			http.Error(w, "Server not available", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})
}

// Components returns the names of tracked components, sorted.
func (hc *HealthCheck) Components() []string {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	names := make([]string, 0, len(hc.components))
	for name := range hc.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
