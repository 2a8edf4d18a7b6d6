// Copyright (c) 2025 The IncidentWatch Authors.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/incidentwatch/incidentwatch/pkg/healthcheck"
	"github.com/incidentwatch/incidentwatch/pkg/recoveryhandler"
)

const shutdownTimeout = 5 * time.Second

// ServerParams groups the dependencies of the HTTP server.
type ServerParams struct {
	HostPort    string
	Handler     *APIHandler
	HealthCheck *healthcheck.HealthCheck
	MetricsReg  *prometheus.Registry
	Logger      *zap.Logger
}

// Server is the incidentwatch HTTP server.
type Server struct {
	params ServerParams
	server *http.Server

	bgFinished chan error
}

// NewServer creates the server and assembles its routes.
func NewServer(params ServerParams) *Server {
	router := mux.NewRouter()
	params.Handler.RegisterRoutes(router)
	router.Handle("/health", params.HealthCheck.Handler()).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(params.MetricsReg,
		promhttp.HandlerOpts{})).Methods(http.MethodGet)

	recovery := recoveryhandler.NewRecoveryHandler(params.Logger, true)
	return &Server{
		params: params,
		server: &http.Server{
			Addr:    params.HostPort,
			Handler: recovery(handlers.CompressHandler(router)),
		},
		bgFinished: make(chan error, 1),
	}
}

// Start begins serving in the background. It binds the listener
// synchronously so that a bad host-port fails fast.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.params.HostPort)
	if err != nil {
		return err
	}
	s.params.Logger.Info("Starting HTTP server", zap.String("addr", s.params.HostPort))
	go func() {
		err := s.server.Serve(listener)
		if err != nil && err != http.ErrServerClosed {
			s.params.Logger.Error("HTTP server stopped", zap.Error(err))
		}
		s.bgFinished <- err
	}()
	s.params.HealthCheck.Ready()
	return nil
}

// Close drains in-flight requests and stops the server.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	<-s.bgFinished
	return nil
}
